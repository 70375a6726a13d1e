package mediastub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// Options describes how the fake control plane should behave.
type Options struct {
	// Active seeds the set of ingest keys reported as publishing by
	// streams_status.
	Active []string

	// FailStatusCalls causes the first N streams_status requests to return
	// HTTP 503. Subsequent calls succeed.
	FailStatusCalls int

	// RejectProvision makes addstream answer without any success marker.
	RejectProvision bool

	// IncompleteDelete makes deletestream report a partially applied delete.
	IncompleteDelete bool
}

// Operation records one decoded control command.
type Operation struct {
	Command   string
	Keys      []string
	Status    int
	Timestamp time.Time
}

// ControlPlane hosts a single httptest.Server speaking the command RPC
// protocol: form field "command" carrying {"<command>": <payload>}.
type ControlPlane struct {
	server *httptest.Server
	opts   Options

	mu         sync.Mutex
	active     map[string]struct{}
	operations []Operation
	statusErr  int
}

// Start spins up a new control-plane stub using the provided options.
func Start(opts Options) *ControlPlane {
	cp := &ControlPlane{opts: opts, active: make(map[string]struct{})}
	for _, key := range opts.Active {
		cp.active[key] = struct{}{}
	}
	cp.server = httptest.NewServer(http.HandlerFunc(cp.handle))
	return cp
}

// Close shuts down the underlying HTTP server.
func (c *ControlPlane) Close() {
	if c.server != nil {
		c.server.Close()
	}
}

// BaseURL returns the control endpoint URL.
func (c *ControlPlane) BaseURL() string {
	return c.server.URL
}

// SetActive replaces the reported active key set.
func (c *ControlPlane) SetActive(keys ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = make(map[string]struct{}, len(keys))
	for _, key := range keys {
		c.active[key] = struct{}{}
	}
}

// Operations returns a copy of all recorded commands in arrival order.
func (c *ControlPlane) Operations() []Operation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Operation, len(c.operations))
	copy(out, c.operations)
	return out
}

func (c *ControlPlane) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "unexpected method", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	var document map[string]json.RawMessage
	if err := json.Unmarshal([]byte(r.PostFormValue("command")), &document); err != nil {
		http.Error(w, "bad command", http.StatusBadRequest)
		return
	}

	switch {
	case hasCommand(document, "addstream"):
		c.handleAddStream(w, document["addstream"])
	case hasCommand(document, "deletestream"):
		c.handleDeleteStream(w, document["deletestream"])
	case hasCommand(document, "streams_status"):
		c.handleStreamsStatus(w)
	default:
		http.Error(w, "unknown command", http.StatusNotFound)
	}
}

func hasCommand(document map[string]json.RawMessage, name string) bool {
	_, ok := document[name]
	return ok
}

func (c *ControlPlane) handleAddStream(w http.ResponseWriter, payload json.RawMessage) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	keys := payloadKeys(body)
	c.record(Operation{Command: "addstream", Keys: keys, Status: http.StatusOK})

	if c.opts.RejectProvision {
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "stream limit reached"})
		return
	}

	c.mu.Lock()
	for _, key := range keys {
		c.active[key] = struct{}{}
	}
	c.mu.Unlock()

	response := make(map[string]any, len(keys))
	for _, key := range keys {
		response[key] = map[string]any{"status": "OK"}
	}
	_ = json.NewEncoder(w).Encode(response)
}

func (c *ControlPlane) handleDeleteStream(w http.ResponseWriter, payload json.RawMessage) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(payload, &body); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}
	keys := payloadKeys(body)
	c.record(Operation{Command: "deletestream", Keys: keys, Status: http.StatusOK})

	if c.opts.IncompleteDelete {
		_ = json.NewEncoder(w).Encode(map[string]any{"deletestream": "incomplete list"})
		return
	}

	c.mu.Lock()
	for _, key := range keys {
		delete(c.active, key)
	}
	c.mu.Unlock()

	_ = json.NewEncoder(w).Encode(map[string]any{"deletestream": "OK"})
}

func (c *ControlPlane) handleStreamsStatus(w http.ResponseWriter) {
	c.mu.Lock()
	c.statusErr++
	attempt := c.statusErr
	statuses := make(map[string]any, len(c.active))
	for key := range c.active {
		statuses[key] = map[string]any{"online": 1}
	}
	c.mu.Unlock()

	if attempt <= c.opts.FailStatusCalls {
		c.record(Operation{Command: "streams_status", Status: http.StatusServiceUnavailable})
		http.Error(w, "control plane unavailable", http.StatusServiceUnavailable)
		return
	}
	c.record(Operation{Command: "streams_status", Status: http.StatusOK})

	if len(statuses) == 0 {
		// Idle servers omit the status document entirely.
		_ = json.NewEncoder(w).Encode(map[string]any{"authorize": map[string]any{"status": "OK"}})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"streams_status": statuses})
}

func payloadKeys(body map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(body))
	for key := range body {
		if key == "stop_sessions" {
			continue
		}
		keys = append(keys, key)
	}
	return keys
}

func (c *ControlPlane) record(op Operation) {
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.operations = append(c.operations, op)
}
