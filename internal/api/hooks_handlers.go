package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/storage"
)

const (
	hookActionPublish   = "publish"
	hookActionUnpublish = "unpublish"
	hookActionRecording = "recording"
)

// mediaHookRequest is the media server's callback body. Publish and unpublish
// carry the ingest key; recording-complete adds the file path.
type mediaHookRequest struct {
	Stream string `json:"stream"`
	File   string `json:"file,omitempty"`
}

type mediaHookResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeHookSuccess(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, mediaHookResponse{Code: 0, Message: "Success"})
}

func writeHookError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, mediaHookResponse{Code: -1, Message: message})
}

// PublishHook handles the media server's stream-started callback.
func (h *Handler) PublishHook(w http.ResponseWriter, r *http.Request) {
	h.mediaHook(w, r, hookActionPublish)
}

// UnpublishHook handles the media server's stream-stopped callback.
func (h *Handler) UnpublishHook(w http.ResponseWriter, r *http.Request) {
	h.mediaHook(w, r, hookActionUnpublish)
}

// RecordingHook handles the media server's recording-complete callback.
func (h *Handler) RecordingHook(w http.ResponseWriter, r *http.Request) {
	h.mediaHook(w, r, hookActionRecording)
}

func (h *Handler) mediaHook(w http.ResponseWriter, r *http.Request, action string) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeHookError(w, http.StatusMethodNotAllowed, fmt.Sprintf("method %s not allowed", r.Method))
		return
	}
	if !h.hookAuthorized(r) {
		h.recorder().ObserveWebhook(action, "rejected")
		h.logger().Warn("media hook rejected token", "action", action, "remote", r.RemoteAddr)
		writeHookError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req mediaHookRequest
	if err := decodeJSONAllowUnknown(r, &req); err != nil {
		h.recorder().ObserveWebhook(action, "malformed")
		writeHookError(w, http.StatusBadRequest, "malformed payload")
		return
	}
	key := strings.TrimSpace(req.Stream)
	if key == "" {
		h.recorder().ObserveWebhook(action, "malformed")
		writeHookError(w, http.StatusBadRequest, "stream is required")
		return
	}

	var err error
	switch action {
	case hookActionPublish:
		_, err = h.engine().HandlePublish(r.Context(), key)
	case hookActionUnpublish:
		_, err = h.engine().HandleUnpublish(r.Context(), key)
	case hookActionRecording:
		if strings.TrimSpace(req.File) == "" {
			h.recorder().ObserveWebhook(action, "malformed")
			writeHookError(w, http.StatusBadRequest, "file is required")
			return
		}
		_, err = h.engine().HandleRecording(r.Context(), key, req.File)
	}

	switch {
	case err == nil:
		h.recorder().ObserveWebhook(action, "ok")
		writeHookSuccess(w)
	case errors.Is(err, storage.ErrStreamNotFound):
		h.recorder().ObserveWebhook(action, "unknown_stream")
		h.logger().Warn("media hook for unknown stream", "action", action, "ingestKey", key)
		writeHookError(w, http.StatusNotFound, "unknown stream")
	case errors.Is(err, storage.ErrRecordingSource):
		h.recorder().ObserveWebhook(action, "error")
		h.logger().Error("media hook recording source missing", "ingestKey", key, "file", req.File)
		writeHookError(w, http.StatusInternalServerError, "recording source unavailable")
	default:
		h.recorder().ObserveWebhook(action, "error")
		h.logger().Error("media hook failed", "action", action, "ingestKey", key, "error", err)
		writeHookError(w, http.StatusInternalServerError, "internal error")
	}
}
