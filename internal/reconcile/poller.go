package reconcile

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/metrics"
)

// ActiveLister is the read side of the media server control API used by the
// poller.
type ActiveLister interface {
	ActiveStreams(ctx context.Context) (map[string]struct{}, error)
}

const (
	// DefaultPollInterval matches the media server's session reporting cadence.
	DefaultPollInterval = 15 * time.Second

	pollTimeout = 10 * time.Second
)

type pollTicker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct {
	ticker *time.Ticker
}

func (t timeTicker) C() <-chan time.Time {
	return t.ticker.C
}

func (t timeTicker) Stop() {
	t.ticker.Stop()
}

type tickerFactory func(time.Duration) pollTicker

// Poller periodically pulls the media server's active session list and lets
// the engine correct any registry drift. One sweep runs at a time.
type Poller struct {
	Controller ActiveLister
	Engine     *Engine
	Interval   time.Duration
	Logger     *slog.Logger
	Recorder   *metrics.Recorder
}

// Start launches the poll loop and returns an idempotent stop function that
// blocks until the loop has exited.
func (p *Poller) Start(ctx context.Context) func() {
	return p.startWithTicker(ctx, func(d time.Duration) pollTicker {
		return timeTicker{ticker: time.NewTicker(d)}
	})
}

func (p *Poller) startWithTicker(ctx context.Context, newTicker tickerFactory) func() {
	if p.Controller == nil || p.Engine == nil {
		return func() {}
	}
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	workerCtx, cancel := context.WithCancel(ctx)
	ticker := newTicker(interval)
	done := make(chan struct{})
	go func() {
		defer func() {
			ticker.Stop()
			close(done)
		}()
		for {
			select {
			case <-workerCtx.Done():
				return
			case <-ticker.C():
				p.tick(workerCtx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}
}

// tick runs a single reconciliation sweep. A transport failure skips the
// sweep entirely so an unreachable media server never marks streams offline.
func (p *Poller) tick(ctx context.Context) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := p.Recorder
	if recorder == nil {
		recorder = metrics.Default()
	}

	tickCtx, cancel := context.WithTimeout(ctx, pollTimeout)
	defer cancel()

	active, err := p.Controller.ActiveStreams(tickCtx)
	if err != nil {
		recorder.SetMediaServerHealth("unreachable")
		recorder.ObservePollTick("skipped")
		logger.Warn("stream poll skipped, media server unreachable", "error", err)
		return
	}
	recorder.SetMediaServerHealth("ok")

	changed := p.Engine.Reconcile(tickCtx, active)
	recorder.ObservePollTick("ok")
	if changed > 0 {
		logger.Info("stream poll applied transitions", "active", len(active), "changed", changed)
	} else {
		logger.Debug("stream poll found no drift", "active", len(active))
	}
}
