package metrics

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type requestLabel struct {
	method string
	path   string
	status string
}

type webhookLabel struct {
	action  string
	outcome string
}

// Recorder aggregates in-memory counters and gauges for HTTP requests, stream
// lifecycle transitions, reconciliation poll ticks, webhook deliveries, and
// media-server control calls. Writers coordinate via a RWMutex; the live
// stream gauge is atomic so reconciliation paths can update it lock-free.
type Recorder struct {
	mu              sync.RWMutex
	requestCount    map[requestLabel]uint64
	requestDuration map[requestLabel]time.Duration
	streamEvents    map[string]uint64
	webhookEvents   map[webhookLabel]uint64
	pollTicks       map[string]uint64
	controlAttempts map[string]uint64
	controlFailures map[string]uint64
	queueEvents     map[string]uint64
	mediaHealth     float64
	mediaStatus     string
	liveStreams     atomic.Int64
}

var defaultRecorder = New()

// New constructs an empty Recorder with initialized backing maps so callers
// can record immediately without additional setup.
func New() *Recorder {
	return &Recorder{
		requestCount:    make(map[requestLabel]uint64),
		requestDuration: make(map[requestLabel]time.Duration),
		streamEvents:    make(map[string]uint64),
		webhookEvents:   make(map[webhookLabel]uint64),
		pollTicks:       make(map[string]uint64),
		controlAttempts: make(map[string]uint64),
		controlFailures: make(map[string]uint64),
		queueEvents:     make(map[string]uint64),
		mediaStatus:     "unknown",
		mediaHealth:     -1,
	}
}

// Default returns the singleton Recorder shared by packages that do not carry
// their own instrumentation pipeline.
func Default() *Recorder {
	return defaultRecorder
}

// ObserveRequest accumulates request count and cumulative duration by HTTP
// method, normalized path, and status code.
func (r *Recorder) ObserveRequest(method, path string, status int, duration time.Duration) {
	label := requestLabel{
		method: strings.ToUpper(method),
		path:   normalizePath(path),
		status: fmt.Sprintf("%d", status),
	}
	r.mu.Lock()
	r.requestCount[label]++
	r.requestDuration[label] += duration
	r.mu.Unlock()
}

// StreamLive records a transition to live and bumps the live gauge.
func (r *Recorder) StreamLive() {
	r.incrementStreamEvent("live")
	r.liveStreams.Add(1)
}

// StreamOffline records a transition to offline and decrements the live
// gauge, guarding against negative counts when transitions race.
func (r *Recorder) StreamOffline() {
	r.incrementStreamEvent("offline")
	r.decrementGauge(&r.liveStreams)
}

func (r *Recorder) incrementStreamEvent(event string) {
	r.mu.Lock()
	r.streamEvents[normalizeName(event)]++
	r.mu.Unlock()
}

// ObserveWebhook records an inbound lifecycle webhook by action
// (publish/unpublish/recording) and outcome (ok/not_found/malformed/error).
func (r *Recorder) ObserveWebhook(action, outcome string) {
	label := webhookLabel{action: normalizeName(action), outcome: normalizeName(outcome)}
	r.mu.Lock()
	r.webhookEvents[label]++
	r.mu.Unlock()
}

// ObservePollTick records one reconciliation tick with its result
// (ok/skipped).
func (r *Recorder) ObservePollTick(result string) {
	r.mu.Lock()
	r.pollTicks[normalizeName(result)]++
	r.mu.Unlock()
}

// ObserveControlAttempt records a media-server control call by command name.
func (r *Recorder) ObserveControlAttempt(command string) {
	r.mu.Lock()
	r.controlAttempts[normalizeName(command)]++
	r.mu.Unlock()
}

// ObserveControlFailure records a failed control call. The caller records the
// attempt separately.
func (r *Recorder) ObserveControlFailure(command string) {
	r.mu.Lock()
	r.controlFailures[normalizeName(command)]++
	r.mu.Unlock()
}

// ObserveQueueEvent records a lifecycle event published to the event queue.
func (r *Recorder) ObserveQueueEvent(eventType string) {
	r.mu.Lock()
	r.queueEvents[normalizeName(eventType)]++
	r.mu.Unlock()
}

// SetMediaServerHealth maps the reported status to a numeric health value
// (1=ok, 0=disabled, -1=degraded) and stores both for export.
func (r *Recorder) SetMediaServerHealth(status string) {
	normalized := normalizeName(status)
	value := -1.0
	switch normalized {
	case "ok", "healthy":
		value = 1
	case "disabled":
		value = 0
	}
	r.mu.Lock()
	r.mediaHealth = value
	r.mediaStatus = normalized
	r.mu.Unlock()
}

// LiveStreams exposes the current gauge of streams marked live.
func (r *Recorder) LiveStreams() int64 {
	return r.liveStreams.Load()
}

// PollTickCounts returns a copy of the per-result poll tick counters.
func (r *Recorder) PollTickCounts() map[string]uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]uint64, len(r.pollTicks))
	for k, v := range r.pollTicks {
		out[k] = v
	}
	return out
}

// ControlCounts returns copies of control attempt and failure counters.
func (r *Recorder) ControlCounts() (attempts, failures map[string]uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	attempts = make(map[string]uint64, len(r.controlAttempts))
	for k, v := range r.controlAttempts {
		attempts[k] = v
	}
	failures = make(map[string]uint64, len(r.controlFailures))
	for k, v := range r.controlFailures {
		failures[k] = v
	}
	return attempts, failures
}

// Reset clears all counters and gauges. Intended for test setups.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestCount = make(map[requestLabel]uint64)
	r.requestDuration = make(map[requestLabel]time.Duration)
	r.streamEvents = make(map[string]uint64)
	r.webhookEvents = make(map[webhookLabel]uint64)
	r.pollTicks = make(map[string]uint64)
	r.controlAttempts = make(map[string]uint64)
	r.controlFailures = make(map[string]uint64)
	r.queueEvents = make(map[string]uint64)
	r.mediaHealth = -1
	r.mediaStatus = "unknown"
	r.liveStreams.Store(0)
}

// Handler exposes the Recorder as an http.Handler writing Prometheus text
// exposition data.
func (r *Recorder) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		r.Write(w)
	})
}

// Write renders the metrics in Prometheus text format, sorting label sets so
// output is stable for scrapes and tests.
func (r *Recorder) Write(w io.Writer) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	requestLabels := r.sortedRequestLabels()

	fmt.Fprintln(w, "# HELP gbstream_http_requests_total Total number of HTTP requests processed by the API")
	fmt.Fprintln(w, "# TYPE gbstream_http_requests_total counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "gbstream_http_requests_total{method=%q,path=%q,status=%q} %d\n", label.method, label.path, label.status, r.requestCount[label])
	}

	fmt.Fprintln(w, "# HELP gbstream_http_request_duration_seconds_sum Cumulative duration of HTTP requests in seconds")
	fmt.Fprintln(w, "# TYPE gbstream_http_request_duration_seconds_sum counter")
	for _, label := range requestLabels {
		fmt.Fprintf(w, "gbstream_http_request_duration_seconds_sum{method=%q,path=%q,status=%q} %f\n", label.method, label.path, label.status, r.requestDuration[label].Seconds())
	}

	fmt.Fprintln(w, "# HELP gbstream_stream_events_total Stream lifecycle transitions by type")
	fmt.Fprintln(w, "# TYPE gbstream_stream_events_total counter")
	for _, event := range sortedKeys(r.streamEvents) {
		fmt.Fprintf(w, "gbstream_stream_events_total{event=%q} %d\n", event, r.streamEvents[event])
	}

	fmt.Fprintln(w, "# HELP gbstream_live_streams Current number of streams marked live")
	fmt.Fprintln(w, "# TYPE gbstream_live_streams gauge")
	fmt.Fprintf(w, "gbstream_live_streams %d\n", r.liveStreams.Load())

	fmt.Fprintln(w, "# HELP gbstream_webhook_events_total Inbound lifecycle webhooks by action and outcome")
	fmt.Fprintln(w, "# TYPE gbstream_webhook_events_total counter")
	for _, label := range r.sortedWebhookLabels() {
		fmt.Fprintf(w, "gbstream_webhook_events_total{action=%q,outcome=%q} %d\n", label.action, label.outcome, r.webhookEvents[label])
	}

	fmt.Fprintln(w, "# HELP gbstream_poll_ticks_total Reconciliation poll ticks by result")
	fmt.Fprintln(w, "# TYPE gbstream_poll_ticks_total counter")
	for _, result := range sortedKeys(r.pollTicks) {
		fmt.Fprintf(w, "gbstream_poll_ticks_total{result=%q} %d\n", result, r.pollTicks[result])
	}

	controlCommands := r.sortedControlCommands()
	fmt.Fprintln(w, "# HELP gbstream_control_attempts_total Media-server control calls attempted by command")
	fmt.Fprintln(w, "# TYPE gbstream_control_attempts_total counter")
	for _, command := range controlCommands {
		fmt.Fprintf(w, "gbstream_control_attempts_total{command=%q} %d\n", command, r.controlAttempts[command])
	}

	fmt.Fprintln(w, "# HELP gbstream_control_failures_total Media-server control call failures by command")
	fmt.Fprintln(w, "# TYPE gbstream_control_failures_total counter")
	for _, command := range controlCommands {
		fmt.Fprintf(w, "gbstream_control_failures_total{command=%q} %d\n", command, r.controlFailures[command])
	}

	fmt.Fprintln(w, "# HELP gbstream_queue_events_total Lifecycle events published to the event queue by type")
	fmt.Fprintln(w, "# TYPE gbstream_queue_events_total counter")
	for _, event := range sortedKeys(r.queueEvents) {
		fmt.Fprintf(w, "gbstream_queue_events_total{event=%q} %d\n", event, r.queueEvents[event])
	}

	fmt.Fprintln(w, "# HELP gbstream_media_server_health Media server control-plane health (1=ok,0=disabled,-1=degraded)")
	fmt.Fprintln(w, "# TYPE gbstream_media_server_health gauge")
	fmt.Fprintf(w, "gbstream_media_server_health{status=%q} %f\n", r.mediaStatus, r.mediaHealth)
}

func (r *Recorder) sortedRequestLabels() []requestLabel {
	labels := make([]requestLabel, 0, len(r.requestCount))
	for label := range r.requestCount {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].method != labels[j].method {
			return labels[i].method < labels[j].method
		}
		if labels[i].path != labels[j].path {
			return labels[i].path < labels[j].path
		}
		return labels[i].status < labels[j].status
	})
	return labels
}

func (r *Recorder) sortedWebhookLabels() []webhookLabel {
	labels := make([]webhookLabel, 0, len(r.webhookEvents))
	for label := range r.webhookEvents {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if labels[i].action != labels[j].action {
			return labels[i].action < labels[j].action
		}
		return labels[i].outcome < labels[j].outcome
	})
	return labels
}

func (r *Recorder) sortedControlCommands() []string {
	seen := make(map[string]struct{}, len(r.controlAttempts)+len(r.controlFailures))
	for command := range r.controlAttempts {
		seen[command] = struct{}{}
	}
	for command := range r.controlFailures {
		seen[command] = struct{}{}
	}
	commands := make([]string, 0, len(seen))
	for command := range seen {
		commands = append(commands, command)
	}
	sort.Strings(commands)
	return commands
}

func sortedKeys(m map[string]uint64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalizePath(path string) string {
	if path == "" || path == "/" {
		return "/"
	}
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if part == "" {
			continue
		}
		if looksLikeIdentifier(part) {
			parts[i] = ":id"
		}
	}
	normalized := strings.Join(parts, "/")
	if !strings.HasPrefix(normalized, "/") {
		normalized = "/" + normalized
	}
	if strings.HasSuffix(normalized, "/") && len(normalized) > 1 {
		normalized = strings.TrimSuffix(normalized, "/")
	}
	return normalized
}

func looksLikeIdentifier(segment string) bool {
	if len(segment) >= 16 {
		return true
	}
	digitCount := 0
	for _, r := range segment {
		if r >= '0' && r <= '9' {
			digitCount++
		}
	}
	return digitCount >= 3
}

func (r *Recorder) decrementGauge(gauge *atomic.Int64) {
	for {
		current := gauge.Load()
		if current <= 0 {
			return
		}
		if gauge.CompareAndSwap(current, current-1) {
			return
		}
	}
}

func normalizeName(name string) string {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// ObserveRequest records a request on the default recorder.
func ObserveRequest(method, path string, status int, duration time.Duration) {
	defaultRecorder.ObserveRequest(method, path, status, duration)
}

// StreamLive increments live counters on the default recorder.
func StreamLive() {
	defaultRecorder.StreamLive()
}

// StreamOffline decrements the live gauge on the default recorder.
func StreamOffline() {
	defaultRecorder.StreamOffline()
}

// SetMediaServerHealth updates media server health on the default recorder.
func SetMediaServerHealth(status string) {
	defaultRecorder.SetMediaServerHealth(status)
}

// Handler exposes the default recorder as an HTTP handler.
func Handler() http.Handler {
	return defaultRecorder.Handler()
}
