package api

import (
	"fmt"
	"net/http"
	"strings"
)

// Recordings serves the public recording catalogue: the full list at
// /api/recordings and a single entry at /api/recordings/{id}.
func (h *Handler) Recordings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}

	remainder := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/recordings"), "/")
	if remainder == "" {
		writeJSON(w, http.StatusOK, map[string]any{
			"recordings": newRecordingResponses(h.Store.ListRecordings()),
		})
		return
	}
	if strings.Contains(remainder, "/") {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown recordings path"))
		return
	}
	recording, ok := h.Store.GetRecording(remainder)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("recording %s not found", remainder))
		return
	}
	writeJSON(w, http.StatusOK, newRecordingResponse(recording))
}
