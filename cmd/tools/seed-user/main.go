// Command seed-user creates an account and its ingest key directly in the
// datastore, for provisioning streamers before the API is exposed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/storage"
)

func main() {
	var (
		jsonPath    string
		postgresDSN string
		email       string
		displayName string
		password    string
		resetKey    bool
	)

	flag.StringVar(&jsonPath, "json", "", "Path to the JSON datastore (store.json)")
	flag.StringVar(&postgresDSN, "postgres-dsn", "", "Postgres connection string")
	flag.StringVar(&email, "email", "", "Email address for the account")
	flag.StringVar(&displayName, "name", "", "Display name for the account")
	flag.StringVar(&password, "password", "", "Password for the account")
	flag.BoolVar(&resetKey, "reset-key", false, "Rotate the ingest key when the account already exists")
	flag.Parse()

	if jsonPath == "" && postgresDSN == "" {
		fatalf("either --json or --postgres-dsn must be provided")
	}
	if jsonPath != "" && postgresDSN != "" {
		fatalf("only one datastore option may be provided")
	}
	email = strings.TrimSpace(email)
	displayName = strings.TrimSpace(displayName)
	if email == "" {
		fatalf("--email is required")
	}
	if displayName == "" {
		fatalf("--name is required")
	}

	repo, err := openRepository(jsonPath, postgresDSN)
	if err != nil {
		fatalf("open datastore: %v", err)
	}
	defer closeRepository(repo)

	user, created, err := seedUser(repo, email, displayName, password)
	if err != nil {
		fatalf("seed user: %v", err)
	}

	stream, err := repo.GetOrCreateStream(user.ID)
	if err != nil {
		fatalf("provision stream: %v", err)
	}
	if resetKey && !created {
		stream, err = repo.ResetStreamKey(user.ID)
		if err != nil {
			fatalf("reset ingest key: %v", err)
		}
	}

	state := "already existed"
	if created {
		state = "created"
	}
	fmt.Printf("User %s (%s) %s.\n", user.Email, user.DisplayName, state)
	fmt.Printf("Ingest key: %s\n", stream.IngestKey)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func openRepository(jsonPath, postgresDSN string) (storage.Repository, error) {
	if jsonPath != "" {
		return storage.NewStorage(jsonPath)
	}
	return storage.NewPostgresRepository(postgresDSN)
}

func closeRepository(repo storage.Repository) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = repo.Close(ctx)
}

func seedUser(repo storage.Repository, email, displayName, password string) (models.User, bool, error) {
	if existing, ok := repo.FindUserByEmail(email); ok {
		return existing, false, nil
	}
	if len(password) < 8 {
		return models.User{}, false, fmt.Errorf("--password must be at least 8 characters")
	}
	user, err := repo.CreateUser(storage.CreateUserParams{
		DisplayName: displayName,
		Email:       email,
		Password:    password,
	})
	if err != nil {
		return models.User{}, false, err
	}
	return user, true, nil
}
