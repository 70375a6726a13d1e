package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
)

const pgUniqueViolation = "23505"

type postgresRepository struct {
	pool               *pgxpool.Pool
	cfg                PostgresConfig
	logger             *slog.Logger
	mediaMaxAttempts   int
	mediaRetryInterval time.Duration
}

// NewPostgresRepository opens a Postgres-backed repository and applies the
// bootstrap schema.
func NewPostgresRepository(dsn string, opts ...Option) (Repository, error) {
	cfg := newPostgresConfig(dsn, opts...)
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}

	repo := &postgresRepository{
		pool:               pool,
		cfg:                cfg,
		logger:             cfg.Logger,
		mediaMaxAttempts:   cfg.MediaMaxAttempts,
		mediaRetryInterval: cfg.MediaRetryInterval,
	}
	if err := repo.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return repo, nil
}

func (r *postgresRepository) Ping(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return errors.New("postgres pool not initialised")
	}
	return r.pool.Ping(ctx)
}

func (r *postgresRepository) Close(ctx context.Context) error {
	if r == nil || r.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		r.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

// User operations

func (r *postgresRepository) CreateUser(params CreateUserParams) (models.User, error) {
	normalizedEmail := strings.TrimSpace(strings.ToLower(params.Email))
	if normalizedEmail == "" {
		return models.User{}, errors.New("email is required")
	}
	displayName := strings.TrimSpace(params.DisplayName)
	if displayName == "" {
		return models.User{}, errors.New("displayName is required")
	}
	if params.Password == "" {
		return models.User{}, errors.New("password is required")
	}

	id, err := generateID()
	if err != nil {
		return models.User{}, err
	}
	hashed, err := hashPassword(params.Password)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:           id,
		DisplayName:  displayName,
		Email:        normalizedEmail,
		PasswordHash: hashed,
		CreatedAt:    time.Now().UTC(),
	}

	ctx, cancel := r.opContext()
	defer cancel()
	_, err = r.pool.Exec(ctx,
		`INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.User{}, fmt.Errorf("email %s already in use", params.Email)
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	return user, nil
}

func (r *postgresRepository) AuthenticateUser(email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, errors.New("password is required")
	}
	user, ok := r.FindUserByEmail(email)
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (r *postgresRepository) GetUser(id string) (models.User, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	user, err := r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE id = $1`, id))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("query user", "error", err)
		}
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) FindUserByEmail(email string) (models.User, bool) {
	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	ctx, cancel := r.opContext()
	defer cancel()
	user, err := r.scanUser(r.pool.QueryRow(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users WHERE email = $1`, normalizedEmail))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("query user by email", "error", err)
		}
		return models.User{}, false
	}
	return user, true
}

func (r *postgresRepository) ListUsers() []models.User {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx,
		`SELECT id, email, display_name, password_hash, created_at FROM users ORDER BY created_at`)
	if err != nil {
		r.logger.Error("list users", "error", err)
		return nil
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := r.scanUser(rows)
		if err != nil {
			r.logger.Error("scan user", "error", err)
			return nil
		}
		users = append(users, user)
	}
	return users
}

func (r *postgresRepository) DeleteUser(id string) error {
	ctx, cancel := r.opContext()
	defer cancel()
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Stream operations

func (r *postgresRepository) GetOrCreateStream(userID string) (models.Stream, error) {
	if stream, ok := r.GetStreamForUser(userID); ok {
		return stream, nil
	}

	// Insert races resolve through the unique indexes: a user_id conflict
	// means another writer created the stream first, an ingest_key conflict
	// means the random key collided and is retried with a new value.
	for attempt := 0; attempt < defaultKeyAttempts; attempt++ {
		id, err := generateID()
		if err != nil {
			return models.Stream{}, err
		}
		key, err := generateIngestKey()
		if err != nil {
			return models.Stream{}, err
		}
		now := time.Now().UTC()

		ctx, cancel := r.opContext()
		tag, err := r.pool.Exec(ctx,
			`INSERT INTO streams (id, user_id, title, ingest_key, is_live, playback_url, created_at, updated_at)
			 VALUES ($1, $2, '', $3, FALSE, '', $4, $4)
			 ON CONFLICT (user_id) DO NOTHING`,
			id, userID, key, now,
		)
		cancel()
		if err != nil {
			if isUniqueViolation(err) {
				continue
			}
			if isForeignKeyViolation(err) {
				return models.Stream{}, ErrUserNotFound
			}
			return models.Stream{}, fmt.Errorf("insert stream: %w", err)
		}
		if tag.RowsAffected() > 0 {
			r.controlCall("provision", key, r.cfg.MediaController.ProvisionKey)
		}
		if stream, ok := r.GetStreamForUser(userID); ok {
			return stream, nil
		}
	}
	return models.Stream{}, errors.New("could not allocate a unique ingest key")
}

func (r *postgresRepository) GetStreamForUser(userID string) (models.Stream, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	stream, err := r.scanStream(r.pool.QueryRow(ctx, selectStream+` WHERE user_id = $1`, userID))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("query stream by user", "error", err)
		}
		return models.Stream{}, false
	}
	return stream, true
}

func (r *postgresRepository) GetStreamByKey(ingestKey string) (models.Stream, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	stream, err := r.scanStream(r.pool.QueryRow(ctx, selectStream+` WHERE ingest_key = $1`, ingestKey))
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("query stream by key", "error", err)
		}
		return models.Stream{}, false
	}
	return stream, true
}

func (r *postgresRepository) UpdateStreamTitle(userID, title string) (models.Stream, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	stream, err := r.scanStream(r.pool.QueryRow(ctx,
		`UPDATE streams SET title = $2, updated_at = $3 WHERE user_id = $1
		 RETURNING id, user_id, title, ingest_key, is_live, playback_url, created_at, updated_at`,
		userID, strings.TrimSpace(title), time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Stream{}, ErrStreamNotFound
		}
		return models.Stream{}, fmt.Errorf("update stream title: %w", err)
	}
	return stream, nil
}

func (r *postgresRepository) ResetStreamKey(userID string) (models.Stream, error) {
	for attempt := 0; attempt < defaultKeyAttempts; attempt++ {
		key, err := generateIngestKey()
		if err != nil {
			return models.Stream{}, err
		}

		ctx, cancel := r.opContext()
		row := r.pool.QueryRow(ctx,
			`UPDATE streams s SET ingest_key = $2, updated_at = $3
			 FROM (SELECT id, ingest_key AS old_key FROM streams WHERE user_id = $1) prior
			 WHERE s.id = prior.id
			 RETURNING s.id, s.user_id, s.title, s.ingest_key, s.is_live, s.playback_url,
			           s.created_at, s.updated_at, prior.old_key`,
			userID, key, time.Now().UTC(),
		)
		var stream models.Stream
		var oldKey string
		err = row.Scan(&stream.ID, &stream.UserID, &stream.Title, &stream.IngestKey, &stream.IsLive,
			&stream.PlaybackURL, &stream.CreatedAt, &stream.UpdatedAt, &oldKey)
		cancel()
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return models.Stream{}, ErrStreamNotFound
			}
			if isUniqueViolation(err) {
				continue
			}
			return models.Stream{}, fmt.Errorf("reset stream key: %w", err)
		}

		r.controlCall("revoke", oldKey, r.cfg.MediaController.RevokeKey)
		r.controlCall("provision", stream.IngestKey, r.cfg.MediaController.ProvisionKey)
		return stream, nil
	}
	return models.Stream{}, errors.New("could not allocate a unique ingest key")
}

func (r *postgresRepository) MarkStreamLive(ingestKey string) (models.Stream, error) {
	playback := derivePlaybackURL(r.cfg.PlaybackBase, ingestKey)
	ctx, cancel := r.opContext()
	defer cancel()
	stream, err := r.scanStream(r.pool.QueryRow(ctx,
		`UPDATE streams SET is_live = TRUE, playback_url = $2, updated_at = $3 WHERE ingest_key = $1
		 RETURNING id, user_id, title, ingest_key, is_live, playback_url, created_at, updated_at`,
		ingestKey, playback, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Stream{}, ErrStreamNotFound
		}
		return models.Stream{}, fmt.Errorf("mark stream live: %w", err)
	}
	return stream, nil
}

func (r *postgresRepository) MarkStreamOffline(ingestKey string) (models.Stream, error) {
	ctx, cancel := r.opContext()
	defer cancel()
	stream, err := r.scanStream(r.pool.QueryRow(ctx,
		`UPDATE streams SET is_live = FALSE, playback_url = '', updated_at = $2 WHERE ingest_key = $1
		 RETURNING id, user_id, title, ingest_key, is_live, playback_url, created_at, updated_at`,
		ingestKey, time.Now().UTC(),
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Stream{}, ErrStreamNotFound
		}
		return models.Stream{}, fmt.Errorf("mark stream offline: %w", err)
	}
	return stream, nil
}

func (r *postgresRepository) ListStreams() []models.Stream {
	return r.queryStreams(selectStream + ` ORDER BY created_at`)
}

func (r *postgresRepository) ListLiveStreams() []models.Stream {
	return r.queryStreams(selectStream + ` WHERE is_live ORDER BY created_at`)
}

func (r *postgresRepository) queryStreams(query string, args ...any) []models.Stream {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("list streams", "error", err)
		return nil
	}
	defer rows.Close()

	var streams []models.Stream
	for rows.Next() {
		stream, err := r.scanStream(rows)
		if err != nil {
			r.logger.Error("scan stream", "error", err)
			return nil
		}
		streams = append(streams, stream)
	}
	return streams
}

// Recording operations

func (r *postgresRepository) CreateRecording(params CreateRecordingParams) (models.Recording, error) {
	externalPath := strings.TrimSpace(params.ExternalPath)
	if externalPath == "" {
		return models.Recording{}, fmt.Errorf("%w: empty path", ErrRecordingSource)
	}

	stream, ok := r.GetStreamByKey(params.IngestKey)
	if !ok {
		return models.Recording{}, ErrStreamNotFound
	}

	if info, err := os.Stat(externalPath); err != nil {
		return models.Recording{}, fmt.Errorf("%w: %v", ErrRecordingSource, err)
	} else if info.IsDir() {
		return models.Recording{}, fmt.Errorf("%w: %s is a directory", ErrRecordingSource, externalPath)
	}

	id, err := generateID()
	if err != nil {
		return models.Recording{}, err
	}
	recording := models.Recording{
		ID:          id,
		StreamID:    stream.ID,
		StoragePath: publicRecordingPath(r.cfg.RecordingRoot, externalPath),
		CreatedAt:   time.Now().UTC(),
	}

	ctx, cancel := r.opContext()
	defer cancel()
	_, err = r.pool.Exec(ctx,
		`INSERT INTO recordings (id, stream_id, storage_path, created_at) VALUES ($1, $2, $3, $4)`,
		recording.ID, recording.StreamID, recording.StoragePath, recording.CreatedAt,
	)
	if err != nil {
		return models.Recording{}, fmt.Errorf("insert recording: %w", err)
	}
	return recording, nil
}

func (r *postgresRepository) GetRecording(id string) (models.Recording, bool) {
	ctx, cancel := r.opContext()
	defer cancel()
	var recording models.Recording
	err := r.pool.QueryRow(ctx,
		`SELECT id, stream_id, storage_path, created_at FROM recordings WHERE id = $1`, id,
	).Scan(&recording.ID, &recording.StreamID, &recording.StoragePath, &recording.CreatedAt)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			r.logger.Error("query recording", "error", err)
		}
		return models.Recording{}, false
	}
	return recording, true
}

func (r *postgresRepository) ListRecordings() []models.Recording {
	return r.queryRecordings(
		`SELECT id, stream_id, storage_path, created_at FROM recordings ORDER BY created_at DESC, id DESC`)
}

func (r *postgresRepository) ListStreamRecordings(streamID string) []models.Recording {
	return r.queryRecordings(
		`SELECT id, stream_id, storage_path, created_at FROM recordings WHERE stream_id = $1 ORDER BY created_at DESC, id DESC`,
		streamID)
}

func (r *postgresRepository) queryRecordings(query string, args ...any) []models.Recording {
	ctx, cancel := r.opContext()
	defer cancel()
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("list recordings", "error", err)
		return nil
	}
	defer rows.Close()

	var recordings []models.Recording
	for rows.Next() {
		var recording models.Recording
		if err := rows.Scan(&recording.ID, &recording.StreamID, &recording.StoragePath, &recording.CreatedAt); err != nil {
			r.logger.Error("scan recording", "error", err)
			return nil
		}
		recordings = append(recordings, recording)
	}
	return recordings
}

const selectStream = `SELECT id, user_id, title, ingest_key, is_live, playback_url, created_at, updated_at FROM streams`

func (r *postgresRepository) scanStream(row pgx.Row) (models.Stream, error) {
	var stream models.Stream
	err := row.Scan(&stream.ID, &stream.UserID, &stream.Title, &stream.IngestKey, &stream.IsLive,
		&stream.PlaybackURL, &stream.CreatedAt, &stream.UpdatedAt)
	return stream, err
}

func (r *postgresRepository) scanUser(row pgx.Row) (models.User, error) {
	var user models.User
	err := row.Scan(&user.ID, &user.Email, &user.DisplayName, &user.PasswordHash, &user.CreatedAt)
	return user, err
}

func (r *postgresRepository) opContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 5*time.Second)
}

func (r *postgresRepository) controlCall(operation, key string, call func(context.Context, string) error) {
	for attempt := 1; attempt <= r.mediaMaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), defaultMediaCallWindow)
		err := call(ctx, key)
		cancel()
		if err == nil {
			return
		}
		r.logger.Warn("media control call failed",
			"operation", operation,
			"attempt", attempt,
			"error", err,
		)
		if attempt < r.mediaMaxAttempts && r.mediaRetryInterval > 0 {
			time.Sleep(r.mediaRetryInterval)
		}
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

var _ Repository = (*postgresRepository)(nil)
