package api

import (
	"fmt"
	"net/http"
)

// LiveStreams lists every stream currently marked live. The payload is the
// public viewer shape and deliberately omits ingest keys.
func (h *Handler) LiveStreams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	live := h.Store.ListLiveStreams()
	out := make([]liveStreamResponse, 0, len(live))
	for _, stream := range live {
		entry := liveStreamResponse{
			ID:          stream.ID,
			UserID:      stream.UserID,
			Title:       stream.Title,
			PlaybackURL: stream.PlaybackURL,
		}
		if owner, ok := h.Store.GetUser(stream.UserID); ok {
			entry.DisplayName = owner.DisplayName
		}
		out = append(out, entry)
	}
	writeJSON(w, http.StatusOK, map[string]any{"streams": out})
}
