package storage

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/mediaserver"
	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
	"golang.org/x/crypto/pbkdf2"
)

const (
	passwordHashSaltLength = 16
	passwordHashKeyLength  = 32
	passwordHashIterations = 120000

	defaultPlaybackBase    = "http://localhost:8081/hls"
	defaultKeyAttempts     = 5
	defaultMediaCallWindow = 5 * time.Second
)

type dataset struct {
	Users      map[string]models.User      `json:"users"`
	Streams    map[string]models.Stream    `json:"streams"`
	Recordings map[string]models.Recording `json:"recordings"`
}

// Storage is a JSON-file snapshot store guarded by a RWMutex. Mutations clone
// the dataset, persist the clone to a temp file, rename it into place, and
// only then swap the in-memory view, so readers never observe a half-written
// update and a failed persist leaves prior state intact.
type Storage struct {
	mu       sync.RWMutex
	filePath string
	data     dataset
	// persistOverride allows tests to intercept persist operations.
	persistOverride func(dataset) error
	// keyFactory allows tests to force ingest key collisions.
	keyFactory func() (string, error)

	mediaController    mediaserver.Controller
	mediaMaxAttempts   int
	mediaRetryInterval time.Duration

	playbackBase  string
	recordingRoot string
	logger        *slog.Logger
}

// NewStorage opens (or initialises) the JSON store at path.
func NewStorage(path string, opts ...Option) (*Storage, error) {
	store := &Storage{
		filePath:         path,
		mediaController:  mediaserver.NoopController{},
		mediaMaxAttempts: 1,
		playbackBase:     defaultPlaybackBase,
		logger:           slog.Default(),
	}
	store.keyFactory = generateIngestKey
	for _, opt := range opts {
		if opt != nil {
			opt.applyJSON(store)
		}
	}
	if store.mediaController == nil {
		store.mediaController = mediaserver.NoopController{}
	}
	if store.mediaMaxAttempts <= 0 {
		store.mediaMaxAttempts = 1
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func newDataset() dataset {
	return dataset{
		Users:      make(map[string]models.User),
		Streams:    make(map[string]models.Stream),
		Recordings: make(map[string]models.Recording),
	}
}

func (s *Storage) ensureDatasetInitializedLocked() {
	if s.data.Users == nil {
		s.data.Users = make(map[string]models.User)
	}
	if s.data.Streams == nil {
		s.data.Streams = make(map[string]models.Stream)
	}
	if s.data.Recordings == nil {
		s.data.Recordings = make(map[string]models.Recording)
	}
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	file, err := os.Open(s.filePath)
	if errors.Is(err, os.ErrNotExist) {
		s.data = newDataset()
		return nil
	} else if err != nil {
		return fmt.Errorf("open store file: %w", err)
	}
	defer file.Close()

	decoder := json.NewDecoder(file)
	if err := decoder.Decode(&s.data); err != nil {
		if errors.Is(err, io.EOF) {
			s.data = newDataset()
			return nil
		}
		return fmt.Errorf("decode store file: %w", err)
	}

	s.ensureDatasetInitializedLocked()
	return nil
}

func (s *Storage) persistDataset(data dataset) error {
	if s.persistOverride != nil {
		if err := s.persistOverride(data); err != nil {
			return err
		}
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "store-*.json")
	if err != nil {
		return fmt.Errorf("create temp store file: %w", err)
	}
	tmpPath := tmpFile.Name()
	success := false
	defer func() {
		if !success {
			_ = tmpFile.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	encoder := json.NewEncoder(tmpFile)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("flush store file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp store file: %w", err)
	}

	if err := os.Rename(tmpPath, s.filePath); err != nil {
		return fmt.Errorf("replace store file: %w", err)
	}
	success = true
	return nil
}

func cloneDataset(src dataset) dataset {
	clone := dataset{}

	if src.Users != nil {
		clone.Users = make(map[string]models.User, len(src.Users))
		for id, user := range src.Users {
			clone.Users[id] = user
		}
	}
	if src.Streams != nil {
		clone.Streams = make(map[string]models.Stream, len(src.Streams))
		for id, stream := range src.Streams {
			clone.Streams[id] = stream
		}
	}
	if src.Recordings != nil {
		clone.Recordings = make(map[string]models.Recording, len(src.Recordings))
		for id, recording := range src.Recordings {
			clone.Recordings[id] = recording
		}
	}
	return clone
}

func generateID() (string, error) {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

func generateIngestKey() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generate ingest key: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// derivePlaybackURL builds the client-facing HLS URL for an ingest key. A
// base containing %s is treated as a template; otherwise the key is appended
// as <base>/<key>.m3u8.
func derivePlaybackURL(base, key string) string {
	trimmed := strings.TrimSpace(base)
	if trimmed == "" {
		trimmed = defaultPlaybackBase
	}
	if strings.Contains(trimmed, "%s") {
		return fmt.Sprintf(trimmed, key)
	}
	return strings.TrimRight(trimmed, "/") + "/" + key + ".m3u8"
}

// publicRecordingPath strips the configured server-local root from an
// external recording path. Paths outside the root pass through unchanged.
func publicRecordingPath(root, externalPath string) string {
	trimmedRoot := strings.TrimSpace(root)
	if trimmedRoot == "" {
		return externalPath
	}
	if !strings.HasSuffix(trimmedRoot, "/") {
		trimmedRoot += "/"
	}
	if strings.HasPrefix(externalPath, trimmedRoot) {
		return "/" + strings.TrimPrefix(externalPath, trimmedRoot)
	}
	return externalPath
}

// User operations

func (s *Storage) CreateUser(params CreateUserParams) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	normalizedEmail := strings.TrimSpace(strings.ToLower(params.Email))
	if normalizedEmail == "" {
		return models.User{}, errors.New("email is required")
	}
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return models.User{}, fmt.Errorf("email %s already in use", params.Email)
		}
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

	updated := cloneDataset(s.data)
	updated.Users[id] = user
	if err := s.persistDataset(updated); err != nil {
		return models.User{}, err
	}
	s.data = updated
	return user, nil
}

func (s *Storage) ListUsers() []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]models.User, 0, len(s.data.Users))
	for _, user := range s.data.Users {
		users = append(users, user)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt.Before(users[j].CreatedAt)
	})
	return users
}

func (s *Storage) GetUser(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.data.Users[id]
	return user, ok
}

// FindUserByEmail looks up a user by their normalized email address.
func (s *Storage) FindUserByEmail(email string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	normalizedEmail := strings.TrimSpace(strings.ToLower(email))
	for _, user := range s.data.Users {
		if user.Email == normalizedEmail {
			return user, true
		}
	}
	return models.User{}, false
}

// AuthenticateUser verifies credentials and returns the matching user.
func (s *Storage) AuthenticateUser(email, password string) (models.User, error) {
	if password == "" {
		return models.User{}, errors.New("password is required")
	}
	user, ok := s.FindUserByEmail(email)
	if !ok {
		return models.User{}, ErrInvalidCredentials
	}
	if err := verifyPassword(user.PasswordHash, password); err != nil {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// DeleteUser removes a user along with their stream and its recordings.
func (s *Storage) DeleteUser(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[id]; !ok {
		return ErrUserNotFound
	}

	updated := cloneDataset(s.data)
	delete(updated.Users, id)
	for streamID, stream := range updated.Streams {
		if stream.UserID != id {
			continue
		}
		delete(updated.Streams, streamID)
		for recordingID, recording := range updated.Recordings {
			if recording.StreamID == streamID {
				delete(updated.Recordings, recordingID)
			}
		}
	}

	if err := s.persistDataset(updated); err != nil {
		return err
	}
	s.data = updated
	return nil
}

func hashPassword(password string) (string, error) {
	salt := make([]byte, passwordHashSaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	derived := pbkdf2.Key([]byte(password), salt, passwordHashIterations, passwordHashKeyLength, sha256.New)
	encodedSalt := base64.RawStdEncoding.EncodeToString(salt)
	encodedKey := base64.RawStdEncoding.EncodeToString(derived)
	return fmt.Sprintf("pbkdf2$sha256$%d$%s$%s", passwordHashIterations, encodedSalt, encodedKey), nil
}

func verifyPassword(encodedHash, candidate string) error {
	parts := strings.Split(encodedHash, "$")
	if len(parts) != 5 {
		return fmt.Errorf("verify password: invalid hash format")
	}
	if parts[0] != "pbkdf2" || parts[1] != "sha256" {
		return fmt.Errorf("verify password: unsupported hash identifier")
	}
	iterations, err := strconv.Atoi(parts[2])
	if err != nil || iterations <= 0 {
		return fmt.Errorf("verify password: invalid iteration count")
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[3])
	if err != nil {
		return fmt.Errorf("verify password: decode salt: %w", err)
	}
	storedKey, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("verify password: decode hash: %w", err)
	}
	derived := pbkdf2.Key([]byte(candidate), salt, iterations, len(storedKey), sha256.New)
	if len(derived) != len(storedKey) || subtle.ConstantTimeCompare(derived, storedKey) != 1 {
		return ErrInvalidCredentials
	}
	return nil
}

// Ping reports readiness; the JSON store is always reachable once loaded.
func (s *Storage) Ping(context.Context) error {
	return nil
}

// Close flushes nothing; every mutation persists synchronously.
func (s *Storage) Close(context.Context) error {
	return nil
}
