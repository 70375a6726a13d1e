package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/storage"
)

type updateDashboardRequest struct {
	Title *string `json:"title"`
}

// Dashboard serves the owner's stream state on GET and updates the title on
// PATCH. The stream is created lazily for accounts that predate automatic
// provisioning.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		stream, err := h.Store.GetOrCreateStream(user.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusOK, dashboardResponse{
			User:       newUserResponse(user),
			Stream:     newStreamResponse(stream),
			Recordings: newRecordingResponses(h.Store.ListStreamRecordings(stream.ID)),
		})
	case http.MethodPatch:
		var req updateDashboardRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if req.Title == nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("title is required"))
			return
		}
		if strings.TrimSpace(*req.Title) == "" {
			writeError(w, http.StatusBadRequest, fmt.Errorf("title must not be empty"))
			return
		}
		stream, err := h.Store.UpdateStreamTitle(user.ID, *req.Title)
		if err != nil {
			writeError(w, storageErrorStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, newStreamResponse(stream))
	default:
		w.Header().Set("Allow", "GET, PATCH")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	}
}

// ResetKey rotates the caller's ingest key. The new key is committed before
// the media server is told about it, so the response always reflects the
// stored key.
func (h *Handler) ResetKey(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
		return
	}
	user, ok := h.requireAuthenticatedUser(w, r)
	if !ok {
		return
	}
	stream, err := h.Store.ResetStreamKey(user.ID)
	if err != nil {
		writeError(w, storageErrorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newStreamResponse(stream))
}

func storageErrorStatus(err error) int {
	switch {
	case errors.Is(err, storage.ErrUserNotFound),
		errors.Is(err, storage.ErrStreamNotFound),
		errors.Is(err, storage.ErrRecordingNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
