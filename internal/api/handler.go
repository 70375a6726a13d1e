package api

import (
	"log/slog"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/auth"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/mediaserver"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/metrics"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/reconcile"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/storage"
)

// Handler bundles the HTTP surface: account and session endpoints, the
// dashboard, public stream and recording listings, and the media server
// webhooks.
type Handler struct {
	Store    storage.Repository
	Sessions *auth.SessionManager
	Engine   *reconcile.Engine
	Media    mediaserver.Controller

	// HookToken guards the /hooks/media endpoints. Empty means every hook
	// call is rejected.
	HookToken string

	SessionCookiePolicy SessionCookiePolicy
	Logger              *slog.Logger
	Recorder            *metrics.Recorder
}

// NewHandler wires a Handler around the given repository and session manager.
func NewHandler(store storage.Repository, sessions *auth.SessionManager) *Handler {
	if sessions == nil {
		sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return &Handler{Store: store, Sessions: sessions}
}

func (h *Handler) sessionManager() *auth.SessionManager {
	if h.Sessions == nil {
		h.Sessions = auth.NewSessionManager(24 * time.Hour)
	}
	return h.Sessions
}

func (h *Handler) engine() *reconcile.Engine {
	if h.Engine == nil {
		h.Engine = reconcile.NewEngine(h.Store)
	}
	return h.Engine
}

func (h *Handler) logger() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *Handler) recorder() *metrics.Recorder {
	if h.Recorder == nil {
		return metrics.Default()
	}
	return h.Recorder
}
