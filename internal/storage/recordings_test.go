package storage

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeRecordingFile(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("segments"), 0o644); err != nil {
		t.Fatalf("write recording file: %v", err)
	}
	return path
}

func TestCreateRecordingStripsConfiguredRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "vods", "alice", "show.mp4")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("segments"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	store := newTestStorage(t, WithRecordingRoot(root))
	user := createTestUser(t, store, "a@example.com")
	stream, err := store.GetOrCreateStream(user.ID)
	if err != nil {
		t.Fatalf("GetOrCreateStream: %v", err)
	}

	recording, err := store.CreateRecording(CreateRecordingParams{IngestKey: stream.IngestKey, ExternalPath: path})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	if recording.StoragePath != "/vods/alice/show.mp4" {
		t.Fatalf("expected root-relative storage path, got %q", recording.StoragePath)
	}
	if recording.StreamID != stream.ID {
		t.Fatalf("expected recording owned by stream %s, got %s", stream.ID, recording.StreamID)
	}
}

func TestCreateRecordingOutsideRootKeepsPath(t *testing.T) {
	store := newTestStorage(t, WithRecordingRoot("/var/media/recordings"))
	user := createTestUser(t, store, "a@example.com")
	stream, err := store.GetOrCreateStream(user.ID)
	if err != nil {
		t.Fatalf("GetOrCreateStream: %v", err)
	}

	path := writeRecordingFile(t, "elsewhere.mp4")
	recording, err := store.CreateRecording(CreateRecordingParams{IngestKey: stream.IngestKey, ExternalPath: path})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}
	if recording.StoragePath != path {
		t.Fatalf("expected unmodified path, got %q", recording.StoragePath)
	}
}

func TestCreateRecordingUnknownKey(t *testing.T) {
	store := newTestStorage(t)
	path := writeRecordingFile(t, "orphan.mp4")
	if _, err := store.CreateRecording(CreateRecordingParams{IngestKey: "unknown", ExternalPath: path}); !errors.Is(err, ErrStreamNotFound) {
		t.Fatalf("expected ErrStreamNotFound, got %v", err)
	}
	if got := store.ListRecordings(); len(got) != 0 {
		t.Fatalf("expected no recordings, got %d", len(got))
	}
}

func TestCreateRecordingMissingSource(t *testing.T) {
	store := newTestStorage(t)
	user := createTestUser(t, store, "a@example.com")
	stream, err := store.GetOrCreateStream(user.ID)
	if err != nil {
		t.Fatalf("GetOrCreateStream: %v", err)
	}

	missing := filepath.Join(t.TempDir(), "never-written.mp4")
	if _, err := store.CreateRecording(CreateRecordingParams{IngestKey: stream.IngestKey, ExternalPath: missing}); !errors.Is(err, ErrRecordingSource) {
		t.Fatalf("expected ErrRecordingSource, got %v", err)
	}

	if _, err := store.CreateRecording(CreateRecordingParams{IngestKey: stream.IngestKey, ExternalPath: t.TempDir()}); !errors.Is(err, ErrRecordingSource) {
		t.Fatalf("expected ErrRecordingSource for directory, got %v", err)
	}

	if _, err := store.CreateRecording(CreateRecordingParams{IngestKey: stream.IngestKey, ExternalPath: "  "}); !errors.Is(err, ErrRecordingSource) {
		t.Fatalf("expected ErrRecordingSource for empty path, got %v", err)
	}
}

func TestListRecordingsNewestFirst(t *testing.T) {
	store := newTestStorage(t)
	user := createTestUser(t, store, "a@example.com")
	stream, err := store.GetOrCreateStream(user.ID)
	if err != nil {
		t.Fatalf("GetOrCreateStream: %v", err)
	}

	var ids []string
	for _, name := range []string{"one.mp4", "two.mp4", "three.mp4"} {
		recording, err := store.CreateRecording(CreateRecordingParams{IngestKey: stream.IngestKey, ExternalPath: writeRecordingFile(t, name)})
		if err != nil {
			t.Fatalf("CreateRecording %s: %v", name, err)
		}
		ids = append(ids, recording.ID)
		time.Sleep(2 * time.Millisecond)
	}

	listed := store.ListRecordings()
	if len(listed) != 3 {
		t.Fatalf("expected 3 recordings, got %d", len(listed))
	}
	if listed[0].ID != ids[2] || listed[2].ID != ids[0] {
		t.Fatalf("expected newest-first ordering, got %v", listed)
	}

	byStream := store.ListStreamRecordings(stream.ID)
	if len(byStream) != 3 {
		t.Fatalf("expected 3 stream recordings, got %d", len(byStream))
	}
	if len(store.ListStreamRecordings("missing")) != 0 {
		t.Fatalf("expected no recordings for unknown stream")
	}
}

func TestGetRecording(t *testing.T) {
	store := newTestStorage(t)
	user := createTestUser(t, store, "a@example.com")
	stream, err := store.GetOrCreateStream(user.ID)
	if err != nil {
		t.Fatalf("GetOrCreateStream: %v", err)
	}
	created, err := store.CreateRecording(CreateRecordingParams{IngestKey: stream.IngestKey, ExternalPath: writeRecordingFile(t, "show.mp4")})
	if err != nil {
		t.Fatalf("CreateRecording: %v", err)
	}

	got, ok := store.GetRecording(created.ID)
	if !ok {
		t.Fatalf("expected recording found")
	}
	if !strings.HasSuffix(got.StoragePath, "show.mp4") {
		t.Fatalf("unexpected storage path %q", got.StoragePath)
	}
	if _, ok := store.GetRecording("missing"); ok {
		t.Fatalf("expected miss for unknown id")
	}
}
