package storage

import (
	"context"
	"fmt"
)

// Bootstrap DDL applied at startup. Statements are idempotent so repeated
// boots against the same database are safe.
var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS streams (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		title TEXT NOT NULL DEFAULT '',
		ingest_key TEXT NOT NULL UNIQUE,
		is_live BOOLEAN NOT NULL DEFAULT FALSE,
		playback_url TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS recordings (
		id TEXT PRIMARY KEY,
		stream_id TEXT NOT NULL REFERENCES streams(id) ON DELETE CASCADE,
		storage_path TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS recordings_created_at_idx ON recordings (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS recordings_stream_id_idx ON recordings (stream_id)`,
}

func (r *postgresRepository) ensureSchema(ctx context.Context) error {
	for _, statement := range postgresSchema {
		if _, err := r.pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}
