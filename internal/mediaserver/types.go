package mediaserver

import (
	"context"
	"errors"
)

// ErrUnavailable reports a transport or decoding failure while talking to the
// media server control API. Callers treat it as a degraded dependency rather
// than a fatal condition.
var ErrUnavailable = errors.New("media server unavailable")

// Controller abstracts the media server control plane: provisioning and
// revoking ingest keys and querying the set of actively publishing keys.
type Controller interface {
	// ProvisionKey registers key as a valid ingest target. Re-provisioning an
	// already known key is not an error.
	ProvisionKey(ctx context.Context, key string) error
	// RevokeKey removes key's ingest authorization. Best-effort; an orphaned
	// key on the media server is harmless once the registry drops it.
	RevokeKey(ctx context.Context, key string) error
	// ActiveStreams returns the set of ingest keys currently publishing. An
	// empty set is a valid answer; ErrUnavailable signals the query failed
	// and the caller must not treat the result as authoritative.
	ActiveStreams(ctx context.Context) (map[string]struct{}, error)
	// Healthy reports whether the control plane is reachable.
	Healthy(ctx context.Context) error
}

// NoopController satisfies Controller without contacting any media server.
// Used when no control API is configured and as a base for test fakes.
type NoopController struct{}

func (NoopController) ProvisionKey(context.Context, string) error { return nil }

func (NoopController) RevokeKey(context.Context, string) error { return nil }

func (NoopController) ActiveStreams(context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}

func (NoopController) Healthy(context.Context) error { return nil }

var _ Controller = NoopController{}
