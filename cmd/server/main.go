// Command server starts the GB Stream registry HTTP service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/api"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/auth"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/events"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/mediaserver"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/logging"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/observability/metrics"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/reconcile"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/server"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/storage"
)

func main() {
	addr := flag.String("addr", "", "HTTP listen address")
	mode := flag.String("mode", "", "server runtime mode (development or production)")
	logLevel := flag.String("log-level", "info", "log level (debug, info, warn, error)")
	logFormat := flag.String("log-format", "", "log output format (json or text)")
	tlsCert := flag.String("tls-cert", "", "path to TLS certificate file")
	tlsKey := flag.String("tls-key", "", "path to TLS private key file")
	dataPath := flag.String("data", "", "path to JSON datastore")
	storageDriver := flag.String("storage-driver", "", "datastore driver (json or postgres)")
	postgresDSN := flag.String("postgres-dsn", "", "Postgres connection string")
	postgresMaxConns := flag.Int("postgres-max-conns", 0, "maximum connections in the Postgres pool")
	postgresMinConns := flag.Int("postgres-min-conns", 0, "minimum idle connections maintained by the Postgres pool")
	postgresMaxConnLifetime := flag.Duration("postgres-max-conn-lifetime", 0, "maximum lifetime for a pooled Postgres connection")
	postgresMaxConnIdle := flag.Duration("postgres-max-conn-idle", 0, "maximum idle time for a pooled Postgres connection")
	postgresAppName := flag.String("postgres-app-name", "", "application_name reported to Postgres")
	sessionStoreDriver := flag.String("session-store", "", "session store driver (memory or postgres)")
	sessionPostgresDSN := flag.String("session-postgres-dsn", "", "Postgres DSN for the session store")
	sessionTTL := flag.Duration("session-ttl", 0, "session lifetime before expiry")
	sessionIdleTimeout := flag.Duration("session-idle-timeout", 0, "idle window after which a session expires early")
	sessionPurgeInterval := flag.Duration("session-purge-interval", 0, "interval between expired session sweeps")
	hookToken := flag.String("hook-token", "", "shared secret required on media server webhooks")
	playbackBase := flag.String("playback-base", "", "base URL for HLS playback links")
	recordingRoot := flag.String("recording-root", "", "server-local prefix stripped from recording paths")
	mediaAPI := flag.String("media-api", "", "media server control API base URL")
	mediaHost := flag.String("media-host", "", "media server host (used with --media-api-port)")
	mediaAPIPort := flag.Int("media-api-port", 0, "media server control API port")
	mediaTimeout := flag.Duration("media-timeout", 0, "timeout for media server control calls")
	mediaMaxAttempts := flag.Int("media-max-attempts", 0, "maximum attempts for key provisioning side effects")
	mediaRetryInterval := flag.Duration("media-retry-interval", 0, "delay between key provisioning attempts")
	pollInterval := flag.Duration("poll-interval", 0, "interval between media server status polls")
	pollDisabled := flag.Bool("poll-disabled", false, "disable the media server status poller")
	eventsDriver := flag.String("events-driver", "", "lifecycle event queue driver (memory, redis or none)")
	eventsRedisAddr := flag.String("events-redis-addr", "", "Redis address for the lifecycle event queue")
	eventsRedisAddrs := flag.String("events-redis-addrs", "", "comma separated Redis addresses for the lifecycle event queue")
	eventsRedisUsername := flag.String("events-redis-username", "", "Redis username for the lifecycle event queue")
	eventsRedisPassword := flag.String("events-redis-password", "", "Redis password for the lifecycle event queue")
	eventsRedisStream := flag.String("events-redis-stream", "", "Redis stream key for lifecycle events")
	eventsRedisGroup := flag.String("events-redis-group", "", "Redis consumer group for lifecycle events")
	eventsRedisMasterName := flag.String("events-redis-sentinel-master", "", "Redis sentinel master name for the lifecycle event queue")
	eventsRedisPoolSize := flag.Int("events-redis-pool-size", 0, "maximum Redis connections for the lifecycle event queue")
	eventsRedisTLSCA := flag.String("events-redis-tls-ca", "", "path to Redis TLS CA certificate for the lifecycle event queue")
	eventsRedisTLSCert := flag.String("events-redis-tls-cert", "", "path to Redis TLS client certificate for the lifecycle event queue")
	eventsRedisTLSKey := flag.String("events-redis-tls-key", "", "path to Redis TLS client key for the lifecycle event queue")
	eventsRedisTLSServerName := flag.String("events-redis-tls-server-name", "", "override Redis TLS server name for the lifecycle event queue")
	eventsRedisTLSSkipVerify := flag.Bool("events-redis-tls-skip-verify", false, "skip Redis TLS verification for the lifecycle event queue")
	globalRPS := flag.Float64("rate-global-rps", 0, "global request rate limit in requests per second")
	globalBurst := flag.Int("rate-global-burst", 0, "global rate limit burst allowance")
	loginLimit := flag.Int("rate-login-limit", 0, "maximum login attempts per window for a single IP")
	loginWindow := flag.Duration("rate-login-window", 0, "window for counting login attempts")
	rateRedisAddr := flag.String("rate-redis-addr", "", "Redis address for distributed login throttling")
	rateRedisPassword := flag.String("rate-redis-password", "", "Redis password for distributed login throttling")
	rateRedisTimeout := flag.Duration("rate-redis-timeout", 0, "timeout for rate limiter Redis operations")
	flag.Parse()

	logger := logging.New(logging.Config{
		Level:  firstNonEmpty(*logLevel, os.Getenv("GBSTREAM_LOG_LEVEL")),
		Format: firstNonEmpty(*logFormat, os.Getenv("GBSTREAM_LOG_FORMAT")),
	})
	recorder := metrics.Default()

	serverMode := modeValue(*mode, os.Getenv("GBSTREAM_MODE"))
	listenAddr := resolveListenAddr(*addr, serverMode, os.Getenv("GBSTREAM_ADDR"))

	mediaCfg, err := resolveMediaConfig(*mediaAPI, *mediaHost, *mediaAPIPort, *mediaTimeout)
	if err != nil {
		logger.Error("invalid media server configuration", "error", err)
		os.Exit(1)
	}

	var mediaController mediaserver.Controller
	if mediaCfg.Enabled() {
		client, err := mediaCfg.NewClient(
			mediaserver.WithLogger(logging.WithComponent(logger, "media")),
			mediaserver.WithRecorder(recorder),
		)
		if err != nil {
			logger.Error("failed to initialise media server client", "error", err)
			os.Exit(1)
		}
		mediaController = client
	} else {
		recorder.SetMediaServerHealth("disabled")
		logger.Info("media server control API not configured, ingest keys are registry-local")
	}

	options := []storage.Option{
		storage.WithLogger(logging.WithComponent(logger, "storage")),
	}
	if base := firstNonEmpty(*playbackBase, os.Getenv("GBSTREAM_PLAYBACK_BASE")); base != "" {
		options = append(options, storage.WithPlaybackBase(base))
	}
	if root := firstNonEmpty(*recordingRoot, os.Getenv("GBSTREAM_RECORDING_ROOT")); root != "" {
		options = append(options, storage.WithRecordingRoot(root))
	}
	if mediaController != nil {
		options = append(options, storage.WithMediaController(mediaController))
	}
	attempts := resolveInt(*mediaMaxAttempts, "GBSTREAM_MEDIA_MAX_ATTEMPTS")
	retryInterval := resolveDuration(*mediaRetryInterval, "GBSTREAM_MEDIA_RETRY_INTERVAL", 0)
	if attempts > 0 || retryInterval > 0 {
		options = append(options, storage.WithMediaRetries(attempts, retryInterval))
	}

	postgresDefaultDSN := resolvePostgresDSN(*postgresDSN)
	driver, err := resolveStorageDriver(*storageDriver, os.Getenv("GBSTREAM_STORAGE_DRIVER"), postgresDefaultDSN)
	if err != nil {
		logger.Error("failed to resolve storage driver", "error", err)
		os.Exit(1)
	}
	if serverMode == "production" {
		if err := validateProductionDatastore(driver, postgresDefaultDSN); err != nil {
			logger.Error("production datastore validation failed", "error", err)
			os.Exit(1)
		}
	}

	var store storage.Repository
	switch driver {
	case "json":
		dataFile := resolveDataPath(*dataPath, os.Getenv("GBSTREAM_DATA"))
		store, err = storage.NewStorage(dataFile, options...)
	case "postgres":
		if postgresDefaultDSN == "" {
			logger.Error("postgres storage selected without DSN")
			os.Exit(1)
		}
		pgOptions := append([]storage.Option(nil), options...)
		maxConns := resolveInt(*postgresMaxConns, "GBSTREAM_POSTGRES_MAX_CONNS")
		minConns := resolveInt(*postgresMinConns, "GBSTREAM_POSTGRES_MIN_CONNS")
		if maxConns > 0 || minConns > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresPool(int32(maxConns), int32(minConns)))
		}
		maxLifetime := resolveDuration(*postgresMaxConnLifetime, "GBSTREAM_POSTGRES_MAX_CONN_LIFETIME", 0)
		maxIdle := resolveDuration(*postgresMaxConnIdle, "GBSTREAM_POSTGRES_MAX_CONN_IDLE", 0)
		if maxLifetime > 0 || maxIdle > 0 {
			pgOptions = append(pgOptions, storage.WithPostgresConnLifetimes(maxLifetime, maxIdle))
		}
		if appName := firstNonEmpty(*postgresAppName, os.Getenv("GBSTREAM_POSTGRES_APP_NAME")); appName != "" {
			pgOptions = append(pgOptions, storage.WithPostgresApplicationName(appName))
		}
		store, err = storage.NewPostgresRepository(postgresDefaultDSN, pgOptions...)
	default:
		logger.Error("unsupported storage driver", "driver", driver)
		os.Exit(1)
	}
	if err != nil {
		logger.Error("failed to open datastore", "error", err)
		os.Exit(1)
	}

	sessionConfig, err := resolveSessionStoreConfig(
		*sessionStoreDriver,
		os.Getenv("GBSTREAM_SESSION_STORE"),
		driver,
		postgresDefaultDSN,
		*sessionPostgresDSN,
		os.Getenv("GBSTREAM_SESSION_POSTGRES_DSN"),
	)
	if err != nil {
		logger.Error("failed to resolve session store", "error", err)
		os.Exit(1)
	}

	var (
		sessionStore  auth.SessionStore
		sessionCloser func(context.Context) error
	)
	switch sessionConfig.Driver {
	case "memory":
		sessionStore = auth.NewMemorySessionStore()
	case "postgres":
		pgStore, err := auth.NewPostgresSessionStore(sessionConfig.DSN)
		if err != nil {
			logger.Error("failed to open session store", "error", err)
			os.Exit(1)
		}
		sessionStore = pgStore
		sessionCloser = pgStore.Close
	default:
		logger.Error("unsupported session store driver", "driver", sessionConfig.Driver)
		os.Exit(1)
	}

	ttl := resolveDuration(*sessionTTL, "GBSTREAM_SESSION_TTL", 24*time.Hour)
	sessionOpts := []auth.SessionOption{auth.WithStore(sessionStore)}
	if idle := resolveDuration(*sessionIdleTimeout, "GBSTREAM_SESSION_IDLE_TIMEOUT", 0); idle > 0 {
		sessionOpts = append(sessionOpts, auth.WithIdleTimeout(idle))
	}
	sessions := auth.NewSessionManager(ttl, sessionOpts...)

	queueCfg := events.RedisQueueConfig{
		Addr:       firstNonEmpty(*eventsRedisAddr, os.Getenv("GBSTREAM_EVENTS_REDIS_ADDR")),
		Addrs:      splitAndTrim(firstNonEmpty(*eventsRedisAddrs, os.Getenv("GBSTREAM_EVENTS_REDIS_ADDRS"))),
		Username:   firstNonEmpty(*eventsRedisUsername, os.Getenv("GBSTREAM_EVENTS_REDIS_USERNAME")),
		Password:   firstNonEmpty(*eventsRedisPassword, os.Getenv("GBSTREAM_EVENTS_REDIS_PASSWORD")),
		Stream:     firstNonEmpty(*eventsRedisStream, os.Getenv("GBSTREAM_EVENTS_REDIS_STREAM")),
		Group:      firstNonEmpty(*eventsRedisGroup, os.Getenv("GBSTREAM_EVENTS_REDIS_GROUP")),
		MasterName: firstNonEmpty(*eventsRedisMasterName, os.Getenv("GBSTREAM_EVENTS_REDIS_SENTINEL_MASTER")),
		PoolSize:   resolveInt(*eventsRedisPoolSize, "GBSTREAM_EVENTS_REDIS_POOL_SIZE"),
		TLS: events.RedisTLSConfig{
			CAFile:             firstNonEmpty(*eventsRedisTLSCA, os.Getenv("GBSTREAM_EVENTS_REDIS_TLS_CA")),
			CertFile:           firstNonEmpty(*eventsRedisTLSCert, os.Getenv("GBSTREAM_EVENTS_REDIS_TLS_CERT")),
			KeyFile:            firstNonEmpty(*eventsRedisTLSKey, os.Getenv("GBSTREAM_EVENTS_REDIS_TLS_KEY")),
			ServerName:         firstNonEmpty(*eventsRedisTLSServerName, os.Getenv("GBSTREAM_EVENTS_REDIS_TLS_SERVER_NAME")),
			InsecureSkipVerify: resolveBool(*eventsRedisTLSSkipVerify, "GBSTREAM_EVENTS_REDIS_TLS_SKIP_VERIFY"),
		},
	}
	queue, err := configureEventQueue(firstNonEmpty(*eventsDriver, os.Getenv("GBSTREAM_EVENTS_DRIVER")), queueCfg, logger)
	if err != nil {
		logger.Error("failed to configure event queue", "error", err)
		os.Exit(1)
	}

	engineOpts := []reconcile.EngineOption{
		reconcile.WithLogger(logging.WithComponent(logger, "reconcile")),
		reconcile.WithRecorder(recorder),
	}
	if queue != nil {
		engineOpts = append(engineOpts, reconcile.WithQueue(queue))
	}
	engine := reconcile.NewEngine(store, engineOpts...)

	handler := api.NewHandler(store, sessions)
	handler.Engine = engine
	handler.Media = mediaController
	handler.Logger = logging.WithComponent(logger, "api")
	handler.Recorder = recorder
	handler.HookToken = firstNonEmpty(*hookToken, os.Getenv("GBSTREAM_HOOK_TOKEN"))
	handler.SessionCookiePolicy = api.SessionCookiePolicy{
		SameSite:   http.SameSiteStrictMode,
		SecureMode: resolveSessionCookieSecureMode(serverMode),
	}
	if handler.HookToken == "" {
		logger.Warn("no hook token configured, media server webhooks will be rejected")
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	purgeInterval := resolveDuration(*sessionPurgeInterval, "GBSTREAM_SESSION_PURGE_INTERVAL", 15*time.Minute)
	purgeStop := startSessionPurgeWorker(workerCtx, logging.WithComponent(logger, "session-purger"), sessions, purgeInterval)
	defer purgeStop()

	eventLogStop := startEventLogWorker(workerCtx, logging.WithComponent(logger, "events"), queue)
	defer eventLogStop()

	pollStop := func() {}
	if mediaController != nil && !resolveBool(*pollDisabled, "GBSTREAM_POLL_DISABLED") {
		poller := &reconcile.Poller{
			Controller: mediaController,
			Engine:     engine,
			Interval:   resolveDuration(*pollInterval, "GBSTREAM_POLL_INTERVAL", reconcile.DefaultPollInterval),
			Logger:     logging.WithComponent(logger, "poller"),
			Recorder:   recorder,
		}
		pollStop = poller.Start(workerCtx)
	}
	defer pollStop()

	srv, err := server.New(handler, server.Config{
		Addr: listenAddr,
		TLS: server.TLSConfig{
			CertFile: firstNonEmpty(*tlsCert, os.Getenv("GBSTREAM_TLS_CERT")),
			KeyFile:  firstNonEmpty(*tlsKey, os.Getenv("GBSTREAM_TLS_KEY")),
		},
		RateLimit: server.RateLimitConfig{
			GlobalRPS:     resolveFloat(*globalRPS, "GBSTREAM_RATE_GLOBAL_RPS"),
			GlobalBurst:   resolveInt(*globalBurst, "GBSTREAM_RATE_GLOBAL_BURST"),
			LoginLimit:    resolveInt(*loginLimit, "GBSTREAM_RATE_LOGIN_LIMIT"),
			LoginWindow:   resolveDuration(*loginWindow, "GBSTREAM_RATE_LOGIN_WINDOW", time.Minute),
			RedisAddr:     firstNonEmpty(*rateRedisAddr, os.Getenv("GBSTREAM_RATE_REDIS_ADDR")),
			RedisPassword: firstNonEmpty(*rateRedisPassword, os.Getenv("GBSTREAM_RATE_REDIS_PASSWORD")),
			RedisTimeout:  resolveDuration(*rateRedisTimeout, "GBSTREAM_RATE_REDIS_TIMEOUT", 2*time.Second),
		},
		Logger:  logger,
		Metrics: recorder,
	})
	if err != nil {
		logger.Error("failed to initialise server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		logger.Info("GB Stream API listening", "addr", listenAddr, "mode", serverMode)
		logger.Info("metrics endpoint available", "path", "/metrics")
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := group.Wait(); err != nil {
		logger.Error("server error", "error", err)
	}

	workerCancel()
	pollStop()
	purgeStop()
	eventLogStop()

	closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := store.Close(closeCtx); err != nil {
		logger.Warn("failed to close datastore", "error", err)
	}
	if sessionCloser != nil {
		if err := sessionCloser(closeCtx); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}

	logger.Info("server stopped")
}

type sessionStoreConfig struct {
	Driver string
	DSN    string
}

func resolveSessionStoreConfig(flagDriver, envDriver, storageDriver, storageDSN, flagDSN, envDSN string) (sessionStoreConfig, error) {
	driver := strings.ToLower(strings.TrimSpace(flagDriver))
	if driver == "" {
		driver = strings.ToLower(strings.TrimSpace(envDriver))
	}

	sessionDSN := strings.TrimSpace(firstNonEmpty(flagDSN, envDSN))
	if driver == "" {
		switch {
		case sessionDSN != "":
			driver = "postgres"
		case storageDriver == "postgres":
			driver = "postgres"
		default:
			driver = "memory"
		}
	}

	switch driver {
	case "", "memory":
		return sessionStoreConfig{Driver: "memory"}, nil
	case "postgres":
		if sessionDSN == "" {
			sessionDSN = strings.TrimSpace(storageDSN)
		}
		if sessionDSN == "" {
			return sessionStoreConfig{}, fmt.Errorf("postgres session store selected without DSN")
		}
		return sessionStoreConfig{Driver: "postgres", DSN: sessionDSN}, nil
	default:
		return sessionStoreConfig{}, fmt.Errorf("unsupported session store driver %q", driver)
	}
}

func configureEventQueue(driver string, cfg events.RedisQueueConfig, logger *slog.Logger) (events.Queue, error) {
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "redis":
		if len(cfg.Addrs) == 0 && strings.TrimSpace(cfg.Addr) == "" {
			return nil, fmt.Errorf("redis addr is required for the event queue")
		}
		cfg.Logger = logging.WithComponent(logger, "event-queue")
		return events.NewRedisQueue(cfg)
	case "", "memory":
		return events.NewMemoryQueue(128), nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unsupported event queue driver %q", driver)
	}
}

func resolveMediaConfig(flagAPI, flagHost string, flagPort int, flagTimeout time.Duration) (mediaserver.Config, error) {
	cfg, err := mediaserver.LoadConfigFromEnv()
	if err != nil {
		return mediaserver.Config{}, err
	}
	if base := strings.TrimSpace(flagAPI); base != "" {
		cfg.BaseURL = base
	}
	if host := strings.TrimSpace(flagHost); host != "" {
		cfg.Host = host
	}
	if flagPort > 0 {
		cfg.APIPort = flagPort
	}
	if flagTimeout > 0 {
		cfg.Timeout = flagTimeout
	}
	if err := cfg.Validate(); err != nil {
		return mediaserver.Config{}, err
	}
	return cfg, nil
}

func resolveSessionCookieSecureMode(mode string) api.SessionCookieSecureMode {
	if strings.EqualFold(strings.TrimSpace(mode), "production") {
		return api.SessionCookieSecureAlways
	}
	return api.SessionCookieSecureAuto
}

func resolveListenAddr(flagValue, mode, envAddr string) string {
	listenAddr := strings.TrimSpace(flagValue)
	if listenAddr == "" {
		listenAddr = strings.TrimSpace(envAddr)
	}
	if listenAddr == "" {
		listenAddr = defaultListenForMode(mode)
	}
	return listenAddr
}

func modeValue(flagMode, envMode string) string {
	mode := strings.ToLower(strings.TrimSpace(flagMode))
	if mode == "" {
		mode = strings.ToLower(strings.TrimSpace(envMode))
	}
	if mode == "" {
		mode = "development"
	}
	return mode
}

func defaultListenForMode(mode string) string {
	if mode == "production" {
		return ":80"
	}
	return ":8080"
}

func resolveStorageDriver(flagValue, envValue, postgresDSN string) (string, error) {
	if driver := strings.ToLower(strings.TrimSpace(flagValue)); driver != "" {
		return driver, nil
	}
	if driver := strings.ToLower(strings.TrimSpace(envValue)); driver != "" {
		return driver, nil
	}
	if strings.TrimSpace(postgresDSN) != "" {
		return "postgres", nil
	}
	return "json", nil
}

func validateProductionDatastore(driver, postgresDSN string) error {
	if driver != "postgres" {
		return fmt.Errorf("production mode requires the postgres datastore driver, got %q", driver)
	}
	if strings.TrimSpace(postgresDSN) == "" {
		return fmt.Errorf("postgres storage selected without DSN")
	}
	return nil
}

func resolveDataPath(flagValue, envValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if env := strings.TrimSpace(envValue); env != "" {
		return env
	}
	return "data/store.json"
}

func resolvePostgresDSN(flagValue string) string {
	return strings.TrimSpace(firstNonEmpty(flagValue, os.Getenv("GBSTREAM_POSTGRES_DSN"), os.Getenv("DATABASE_URL")))
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func splitAndTrim(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func resolveFloat(flagValue float64, envKey string) float64 {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.ParseFloat(strings.TrimSpace(env), 64); err == nil {
			return value
		}
	}
	return 0
}

func resolveInt(flagValue int, envKey string) int {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := strconv.Atoi(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return 0
}

func resolveDuration(flagValue time.Duration, envKey string, fallback time.Duration) time.Duration {
	if flagValue > 0 {
		return flagValue
	}
	if env := os.Getenv(envKey); env != "" {
		if value, err := time.ParseDuration(env); err == nil {
			return value
		}
	}
	if fallback > 0 {
		return fallback
	}
	return 0
}

func resolveBool(flagValue bool, envKey string) bool {
	if flagValue {
		return true
	}
	if env, ok := os.LookupEnv(envKey); ok {
		if value, err := strconv.ParseBool(strings.TrimSpace(env)); err == nil {
			return value
		}
	}
	return false
}
