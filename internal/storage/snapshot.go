package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
)

// Snapshot is a point-in-time copy of the JSON datastore, used by the
// migration tooling to move data into Postgres.
type Snapshot struct {
	Users      map[string]models.User      `json:"users"`
	Streams    map[string]models.Stream    `json:"streams"`
	Recordings map[string]models.Recording `json:"recordings"`
}

// SnapshotCounts summarises the record volume held by a snapshot.
type SnapshotCounts struct {
	Users      int
	Streams    int
	Recordings int
}

// Counts tallies the snapshot contents.
func (s Snapshot) Counts() SnapshotCounts {
	return SnapshotCounts{
		Users:      len(s.Users),
		Streams:    len(s.Streams),
		Recordings: len(s.Recordings),
	}
}

// LoadSnapshotFromJSON reads the JSON datastore file at path without taking
// ownership of it.
func LoadSnapshotFromJSON(path string) (Snapshot, error) {
	file, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("open snapshot file: %w", err)
	}
	defer file.Close()

	var snap Snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("decode snapshot file: %w", err)
	}
	if snap.Users == nil {
		snap.Users = make(map[string]models.User)
	}
	if snap.Streams == nil {
		snap.Streams = make(map[string]models.Stream)
	}
	if snap.Recordings == nil {
		snap.Recordings = make(map[string]models.Recording)
	}
	return snap, nil
}

// ImportSnapshotToPostgres writes the snapshot into the given repository,
// which must be Postgres-backed. Rows are upserted by primary key so reruns
// of a partially completed migration converge.
func ImportSnapshotToPostgres(ctx context.Context, repo Repository, snap Snapshot) error {
	pg, ok := repo.(*postgresRepository)
	if !ok {
		return errors.New("repository is not postgres-backed")
	}
	return pg.importSnapshot(ctx, snap)
}

func (r *postgresRepository) importSnapshot(ctx context.Context, snap Snapshot) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin import transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, user := range snap.Users {
		_, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, display_name, password_hash, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (id) DO UPDATE SET
			   email = EXCLUDED.email,
			   display_name = EXCLUDED.display_name,
			   password_hash = EXCLUDED.password_hash`,
			user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt)
		if err != nil {
			return fmt.Errorf("import user %s: %w", user.ID, err)
		}
	}

	for _, stream := range snap.Streams {
		_, err := tx.Exec(ctx,
			`INSERT INTO streams (id, user_id, title, ingest_key, is_live, playback_url, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (id) DO UPDATE SET
			   title = EXCLUDED.title,
			   ingest_key = EXCLUDED.ingest_key,
			   is_live = EXCLUDED.is_live,
			   playback_url = EXCLUDED.playback_url,
			   updated_at = EXCLUDED.updated_at`,
			stream.ID, stream.UserID, stream.Title, stream.IngestKey, stream.IsLive, stream.PlaybackURL, stream.CreatedAt, stream.UpdatedAt)
		if err != nil {
			return fmt.Errorf("import stream %s: %w", stream.ID, err)
		}
	}

	for _, recording := range snap.Recordings {
		_, err := tx.Exec(ctx,
			`INSERT INTO recordings (id, stream_id, storage_path, created_at)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (id) DO UPDATE SET storage_path = EXCLUDED.storage_path`,
			recording.ID, recording.StreamID, recording.StoragePath, recording.CreatedAt)
		if err != nil {
			return fmt.Errorf("import recording %s: %w", recording.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit import transaction: %w", err)
	}
	return nil
}
