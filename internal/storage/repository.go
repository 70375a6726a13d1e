package storage

import (
	"context"
	"errors"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound reports a missing user reference.
	ErrUserNotFound = errors.New("user not found")
	// ErrStreamNotFound reports that no stream matches the given owner or
	// ingest key.
	ErrStreamNotFound = errors.New("stream not found")
	// ErrRecordingNotFound reports a missing recording.
	ErrRecordingNotFound = errors.New("recording not found")
	// ErrRecordingSource reports that a recording's source file could not be
	// verified at registration time.
	ErrRecordingSource = errors.New("recording source unavailable")
)

// CreateUserParams captures the attributes set when registering a user.
type CreateUserParams struct {
	DisplayName string
	Email       string
	Password    string
}

// CreateRecordingParams carries a recording-complete signal into the
// registry. ExternalPath is the media server's on-disk location.
type CreateRecordingParams struct {
	IngestKey    string
	ExternalPath string
}

// Repository is the persistence contract shared by the JSON-file store and
// the Postgres-backed store.
type Repository interface {
	CreateUser(params CreateUserParams) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUser(id string) (models.User, bool)
	FindUserByEmail(email string) (models.User, bool)
	ListUsers() []models.User
	DeleteUser(id string) error

	GetOrCreateStream(userID string) (models.Stream, error)
	GetStreamForUser(userID string) (models.Stream, bool)
	GetStreamByKey(ingestKey string) (models.Stream, bool)
	UpdateStreamTitle(userID, title string) (models.Stream, error)
	ResetStreamKey(userID string) (models.Stream, error)
	MarkStreamLive(ingestKey string) (models.Stream, error)
	MarkStreamOffline(ingestKey string) (models.Stream, error)
	ListStreams() []models.Stream
	ListLiveStreams() []models.Stream

	CreateRecording(params CreateRecordingParams) (models.Recording, error)
	GetRecording(id string) (models.Recording, bool)
	ListRecordings() []models.Recording
	ListStreamRecordings(streamID string) []models.Recording

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

var _ Repository = (*Storage)(nil)
