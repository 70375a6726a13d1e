package reconcile

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/events"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/metrics"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/storage"
)

// Registry is the slice of the persistence layer the reconciler needs.
type Registry interface {
	GetStreamByKey(ingestKey string) (models.Stream, bool)
	MarkStreamLive(ingestKey string) (models.Stream, error)
	MarkStreamOffline(ingestKey string) (models.Stream, error)
	ListStreams() []models.Stream
	CreateRecording(params storage.CreateRecordingParams) (models.Recording, error)
}

const publishTimeout = 2 * time.Second

// Engine applies lifecycle transitions reported by the media server, both
// from push webhooks and from the pull poller. The registry stays the
// authority: transitions commit to storage first, then emit best-effort
// events and metrics.
type Engine struct {
	store    Registry
	queue    events.Queue
	logger   *slog.Logger
	recorder *metrics.Recorder
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithQueue attaches a lifecycle event queue. Without one, transitions are
// applied silently.
func WithQueue(queue events.Queue) EngineOption {
	return func(e *Engine) {
		e.queue = queue
	}
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithRecorder overrides the default metrics recorder.
func WithRecorder(recorder *metrics.Recorder) EngineOption {
	return func(e *Engine) {
		if recorder != nil {
			e.recorder = recorder
		}
	}
}

// NewEngine builds an Engine around the given registry.
func NewEngine(store Registry, opts ...EngineOption) *Engine {
	engine := &Engine{
		store:    store,
		logger:   slog.Default(),
		recorder: metrics.Default(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine
}

// HandlePublish marks the stream behind ingestKey live. Repeated publish
// signals for an already-live stream are accepted without emitting a second
// event.
func (e *Engine) HandlePublish(ctx context.Context, ingestKey string) (models.Stream, error) {
	prior, ok := e.store.GetStreamByKey(ingestKey)
	if !ok {
		return models.Stream{}, storage.ErrStreamNotFound
	}
	stream, err := e.store.MarkStreamLive(ingestKey)
	if err != nil {
		return models.Stream{}, err
	}
	if !prior.IsLive {
		e.recorder.StreamLive()
		e.emit(ctx, events.Event{
			Type:      events.TypeStreamLive,
			StreamID:  stream.ID,
			UserID:    stream.UserID,
			IngestKey: stream.IngestKey,
		})
	}
	return stream, nil
}

// HandleUnpublish marks the stream behind ingestKey offline and clears its
// playback URL. Unpublish for an already-offline stream is a no-op.
func (e *Engine) HandleUnpublish(ctx context.Context, ingestKey string) (models.Stream, error) {
	prior, ok := e.store.GetStreamByKey(ingestKey)
	if !ok {
		return models.Stream{}, storage.ErrStreamNotFound
	}
	stream, err := e.store.MarkStreamOffline(ingestKey)
	if err != nil {
		return models.Stream{}, err
	}
	if prior.IsLive {
		e.recorder.StreamOffline()
		e.emit(ctx, events.Event{
			Type:      events.TypeStreamOffline,
			StreamID:  stream.ID,
			UserID:    stream.UserID,
			IngestKey: stream.IngestKey,
		})
	}
	return stream, nil
}

// HandleRecording registers a completed recording file for the stream behind
// ingestKey.
func (e *Engine) HandleRecording(ctx context.Context, ingestKey, path string) (models.Recording, error) {
	recording, err := e.store.CreateRecording(storage.CreateRecordingParams{
		IngestKey:    ingestKey,
		ExternalPath: path,
	})
	if err != nil {
		return models.Recording{}, err
	}
	e.emit(ctx, events.Event{
		Type:        events.TypeRecordingCreated,
		StreamID:    recording.StreamID,
		IngestKey:   ingestKey,
		RecordingID: recording.ID,
	})
	return recording, nil
}

// Reconcile diffs the media server's active ingest keys against every known
// stream and flips registry state to match. Streams already consistent are
// left alone, except that a live stream missing its playback URL is repaired.
// Per-stream failures are logged and do not stop the sweep.
func (e *Engine) Reconcile(ctx context.Context, active map[string]struct{}) (changed int) {
	for _, stream := range e.store.ListStreams() {
		_, isActive := active[stream.IngestKey]
		switch {
		case isActive && !stream.IsLive:
			if _, err := e.HandlePublish(ctx, stream.IngestKey); err != nil {
				e.logger.Error("reconcile: mark live failed", "ingestKey", stream.IngestKey, "error", err)
				continue
			}
			changed++
		case isActive && stream.PlaybackURL == "":
			if _, err := e.store.MarkStreamLive(stream.IngestKey); err != nil {
				e.logger.Error("reconcile: playback repair failed", "ingestKey", stream.IngestKey, "error", err)
				continue
			}
			changed++
		case !isActive && stream.IsLive:
			if _, err := e.HandleUnpublish(ctx, stream.IngestKey); err != nil {
				e.logger.Error("reconcile: mark offline failed", "ingestKey", stream.IngestKey, "error", err)
				continue
			}
			changed++
		}
	}
	return changed
}

func (e *Engine) emit(ctx context.Context, event events.Event) {
	if e.queue == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	publishCtx, cancel := context.WithTimeout(withoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := e.queue.Publish(publishCtx, event); err != nil {
		e.logger.Warn("lifecycle event publish failed", "type", string(event.Type), "streamId", event.StreamID, "error", err)
		return
	}
	e.recorder.ObserveQueueEvent(string(event.Type))
}

// withoutCancel keeps request-scoped values while detaching from the caller's
// cancellation, so events still flush when a handler's context is done.
func withoutCancel(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
