package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

type componentStatus struct {
	Component string `json:"component"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func (h *Handler) componentHealth(ctx context.Context) ([]componentStatus, string, int) {
	overallStatus := "ok"
	statusCode := http.StatusOK
	recordComponent := func(component string, err error, advisory bool) componentStatus {
		status := "ok"
		message := ""
		if err != nil {
			status = "degraded"
			message = err.Error()
			overallStatus = "degraded"
			if !advisory {
				statusCode = http.StatusServiceUnavailable
			}
		}
		return componentStatus{Component: component, Status: status, Error: message}
	}

	components := make([]componentStatus, 0, 3)
	if h.Store != nil {
		components = append(components, recordComponent("datastore", h.Store.Ping(ctx), false))
	}
	components = append(components, recordComponent("sessions", h.sessionManager().Ping(ctx), false))

	// The media server is advisory: the registry keeps serving (and the
	// poller keeps retrying) while it is down.
	if h.Media != nil {
		check := recordComponent("media_server", h.Media.Healthy(ctx), true)
		h.recorder().SetMediaServerHealth(check.Status)
		components = append(components, check)
	}

	return components, overallStatus, statusCode
}

// Health reports component-level liveness for the datastore, session store
// and media server control API.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	components, status, code := h.componentHealth(r.Context())
	payload := map[string]interface{}{
		"status":     strings.ToLower(status),
		"components": components,
	}
	writeJSON(w, code, payload)
}
