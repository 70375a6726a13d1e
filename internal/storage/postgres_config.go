package storage

import (
	"log/slog"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/mediaserver"
)

// PostgresConfig describes how the repository initialises its connection
// pool and wires the media controller side effects shared with the JSON
// store.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	ConnectTimeout      time.Duration
	ApplicationName     string

	MediaController    mediaserver.Controller
	MediaMaxAttempts   int
	MediaRetryInterval time.Duration

	PlaybackBase  string
	RecordingRoot string
	Logger        *slog.Logger
}

func newPostgresConfig(dsn string, opts ...Option) PostgresConfig {
	cfg := PostgresConfig{
		DSN:              dsn,
		MediaController:  mediaserver.NoopController{},
		MediaMaxAttempts: 1,
		PlaybackBase:     defaultPlaybackBase,
		MinConnections:   -1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt.applyPostgres(&cfg)
		}
	}
	if cfg.MediaController == nil {
		cfg.MediaController = mediaserver.NoopController{}
	}
	if cfg.MediaMaxAttempts <= 0 {
		cfg.MediaMaxAttempts = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return cfg
}
