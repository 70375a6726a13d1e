package storage

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/mediaserver"
)

// Option configures either storage backend.
type Option interface {
	applyJSON(*Storage)
	applyPostgres(*PostgresConfig)
}

type optionAdapter struct {
	json func(*Storage)
	pg   func(*PostgresConfig)
}

func (o optionAdapter) applyJSON(store *Storage) {
	if o.json != nil && store != nil {
		o.json(store)
	}
}

func (o optionAdapter) applyPostgres(cfg *PostgresConfig) {
	if o.pg != nil && cfg != nil {
		o.pg(cfg)
	}
}

func composeOption(json func(*Storage), pg func(*PostgresConfig)) Option {
	return optionAdapter{json: json, pg: pg}
}

func postgresOnlyOption(pg func(*PostgresConfig)) Option {
	return optionAdapter{pg: pg}
}

// WithMediaController installs the media server control client used for
// best-effort key provisioning and revocation.
func WithMediaController(controller mediaserver.Controller) Option {
	return composeOption(
		func(s *Storage) {
			s.mediaController = controller
		},
		func(cfg *PostgresConfig) {
			cfg.MediaController = controller
		},
	)
}

// WithMediaRetries configures retry behaviour for control-plane side effects.
func WithMediaRetries(maxAttempts int, interval time.Duration) Option {
	return composeOption(
		func(s *Storage) {
			if maxAttempts > 0 {
				s.mediaMaxAttempts = maxAttempts
			}
			if interval >= 0 {
				s.mediaRetryInterval = interval
			}
		},
		func(cfg *PostgresConfig) {
			if maxAttempts > 0 {
				cfg.MediaMaxAttempts = maxAttempts
			}
			if interval >= 0 {
				cfg.MediaRetryInterval = interval
			}
		},
	)
}

// WithPlaybackBase sets the HLS base URL playback URLs derive from.
func WithPlaybackBase(base string) Option {
	trimmed := strings.TrimSpace(base)
	return composeOption(
		func(s *Storage) {
			if trimmed != "" {
				s.playbackBase = trimmed
			}
		},
		func(cfg *PostgresConfig) {
			if trimmed != "" {
				cfg.PlaybackBase = trimmed
			}
		},
	)
}

// WithRecordingRoot sets the server-local prefix stripped from recording
// paths before they are persisted.
func WithRecordingRoot(root string) Option {
	trimmed := strings.TrimSpace(root)
	return composeOption(
		func(s *Storage) {
			s.recordingRoot = trimmed
		},
		func(cfg *PostgresConfig) {
			cfg.RecordingRoot = trimmed
		},
	)
}

// WithLogger overrides the logger used for side-effect reporting.
func WithLogger(logger *slog.Logger) Option {
	return composeOption(
		func(s *Storage) {
			if logger != nil {
				s.logger = logger
			}
		},
		func(cfg *PostgresConfig) {
			if logger != nil {
				cfg.Logger = logger
			}
		},
	)
}

// WithPostgresPool tunes pool sizing for the Postgres repository.
func WithPostgresPool(maxConns, minConns int32) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if maxConns > 0 {
			cfg.MaxConnections = maxConns
		}
		if minConns >= 0 {
			cfg.MinConnections = minConns
		}
	})
}

// WithPostgresConnLifetimes tunes connection lifetime limits.
func WithPostgresConnLifetimes(maxLifetime, maxIdle time.Duration) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if maxLifetime > 0 {
			cfg.MaxConnLifetime = maxLifetime
		}
		if maxIdle > 0 {
			cfg.MaxConnIdleTime = maxIdle
		}
	})
}

// WithPostgresApplicationName labels pool connections for server-side
// diagnostics.
func WithPostgresApplicationName(name string) Option {
	return postgresOnlyOption(func(cfg *PostgresConfig) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.ApplicationName = trimmed
		}
	})
}
