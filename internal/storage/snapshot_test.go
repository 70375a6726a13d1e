package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestLoadSnapshotFromJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")
	store, err := NewStorage(path)
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	user, err := store.CreateUser(CreateUserParams{DisplayName: "Alice", Email: "alice@example.com", Password: "hunter22"})
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if _, err := store.GetOrCreateStream(user.ID); err != nil {
		t.Fatalf("GetOrCreateStream: %v", err)
	}

	snap, err := LoadSnapshotFromJSON(path)
	if err != nil {
		t.Fatalf("LoadSnapshotFromJSON: %v", err)
	}
	counts := snap.Counts()
	if counts.Users != 1 || counts.Streams != 1 || counts.Recordings != 0 {
		t.Fatalf("unexpected counts %+v", counts)
	}

	loaded, ok := snap.Users[user.ID]
	if !ok {
		t.Fatalf("expected user %s in snapshot", user.ID)
	}
	if loaded.PasswordHash == "" {
		t.Fatal("expected password hash to survive the round trip")
	}
}

func TestLoadSnapshotFromJSONMissingFile(t *testing.T) {
	if _, err := LoadSnapshotFromJSON(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected error for missing snapshot file")
	}
}

func TestImportSnapshotRequiresPostgres(t *testing.T) {
	store, err := NewStorage(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}
	if err := ImportSnapshotToPostgres(context.Background(), store, Snapshot{}); err == nil {
		t.Fatal("expected error when target repository is not postgres")
	}
}
