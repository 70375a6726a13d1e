package storage

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
)

// GetOrCreateStream returns the user's stream, lazily creating it with a
// fresh unique ingest key on first access. Creation provisions the key with
// the media controller best-effort; a control failure never rolls back the
// registry write.
func (s *Storage) GetOrCreateStream(userID string) (models.Stream, error) {
	stream, created, err := s.getOrCreateStream(userID)
	if err != nil {
		return models.Stream{}, err
	}
	if created {
		s.provisionKey(stream.IngestKey)
	}
	return stream, nil
}

func (s *Storage) getOrCreateStream(userID string) (models.Stream, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.data.Users[userID]; !ok {
		return models.Stream{}, false, ErrUserNotFound
	}
	for _, stream := range s.data.Streams {
		if stream.UserID == userID {
			return stream, false, nil
		}
	}

	id, err := generateID()
	if err != nil {
		return models.Stream{}, false, err
	}
	key, err := s.uniqueIngestKeyLocked()
	if err != nil {
		return models.Stream{}, false, err
	}

	now := time.Now().UTC()
	stream := models.Stream{
		ID:        id,
		UserID:    userID,
		IngestKey: key,
		CreatedAt: now,
		UpdatedAt: now,
	}

	updated := cloneDataset(s.data)
	updated.Streams[id] = stream
	if err := s.persistDataset(updated); err != nil {
		return models.Stream{}, false, err
	}
	s.data = updated
	return stream, true, nil
}

// uniqueIngestKeyLocked draws random keys until one does not collide with an
// existing stream. Collisions are retried rather than overwritten.
func (s *Storage) uniqueIngestKeyLocked() (string, error) {
	for attempt := 0; attempt < defaultKeyAttempts; attempt++ {
		key, err := s.keyFactory()
		if err != nil {
			return "", err
		}
		if !s.ingestKeyTakenLocked(key) {
			return key, nil
		}
	}
	return "", errors.New("could not allocate a unique ingest key")
}

func (s *Storage) ingestKeyTakenLocked(key string) bool {
	for _, stream := range s.data.Streams {
		if stream.IngestKey == key {
			return true
		}
	}
	return false
}

// GetStreamForUser returns the stream owned by userID without creating one.
func (s *Storage) GetStreamForUser(userID string) (models.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, stream := range s.data.Streams {
		if stream.UserID == userID {
			return stream, true
		}
	}
	return models.Stream{}, false
}

// GetStreamByKey resolves an ingest key to its stream.
func (s *Storage) GetStreamByKey(ingestKey string) (models.Stream, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamByKeyLocked(ingestKey)
}

func (s *Storage) streamByKeyLocked(ingestKey string) (models.Stream, bool) {
	for _, stream := range s.data.Streams {
		if stream.IngestKey == ingestKey {
			return stream, true
		}
	}
	return models.Stream{}, false
}

// UpdateStreamTitle sets the display title of the user's stream.
func (s *Storage) UpdateStreamTitle(userID, title string) (models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.streamForUserLocked(userID)
	if !ok {
		return models.Stream{}, ErrStreamNotFound
	}

	updated := cloneDataset(s.data)
	stream.Title = strings.TrimSpace(title)
	stream.UpdatedAt = time.Now().UTC()
	updated.Streams[stream.ID] = stream

	if err := s.persistDataset(updated); err != nil {
		return models.Stream{}, err
	}
	s.data = updated
	return stream, nil
}

// ResetStreamKey replaces the user's ingest key with a fresh unique value.
// The registry write commits first; revoking the old key and provisioning
// the new one with the media server are best-effort side effects.
func (s *Storage) ResetStreamKey(userID string) (models.Stream, error) {
	stream, oldKey, err := s.resetStreamKey(userID)
	if err != nil {
		return models.Stream{}, err
	}
	s.revokeKey(oldKey)
	s.provisionKey(stream.IngestKey)
	return stream, nil
}

func (s *Storage) resetStreamKey(userID string) (models.Stream, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.streamForUserLocked(userID)
	if !ok {
		return models.Stream{}, "", ErrStreamNotFound
	}

	key, err := s.uniqueIngestKeyLocked()
	if err != nil {
		return models.Stream{}, "", err
	}

	updated := cloneDataset(s.data)
	oldKey := stream.IngestKey
	stream.IngestKey = key
	stream.UpdatedAt = time.Now().UTC()
	updated.Streams[stream.ID] = stream

	if err := s.persistDataset(updated); err != nil {
		return models.Stream{}, "", err
	}
	s.data = updated
	return stream, oldKey, nil
}

// MarkStreamLive flips the stream publishing under ingestKey to live and
// derives its playback URL. Safe to re-apply to an already live stream.
func (s *Storage) MarkStreamLive(ingestKey string) (models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.streamByKeyLocked(ingestKey)
	if !ok {
		return models.Stream{}, ErrStreamNotFound
	}

	updated := cloneDataset(s.data)
	stream.IsLive = true
	stream.PlaybackURL = derivePlaybackURL(s.playbackBase, stream.IngestKey)
	stream.UpdatedAt = time.Now().UTC()
	updated.Streams[stream.ID] = stream

	if err := s.persistDataset(updated); err != nil {
		return models.Stream{}, err
	}
	s.data = updated
	return stream, nil
}

// MarkStreamOffline flips the stream offline and clears its playback URL.
func (s *Storage) MarkStreamOffline(ingestKey string) (models.Stream, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.streamByKeyLocked(ingestKey)
	if !ok {
		return models.Stream{}, ErrStreamNotFound
	}

	updated := cloneDataset(s.data)
	stream.IsLive = false
	stream.PlaybackURL = ""
	stream.UpdatedAt = time.Now().UTC()
	updated.Streams[stream.ID] = stream

	if err := s.persistDataset(updated); err != nil {
		return models.Stream{}, err
	}
	s.data = updated
	return stream, nil
}

// ListStreams returns every stream ordered by creation time.
func (s *Storage) ListStreams() []models.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streams := make([]models.Stream, 0, len(s.data.Streams))
	for _, stream := range s.data.Streams {
		streams = append(streams, stream)
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].CreatedAt.Before(streams[j].CreatedAt)
	})
	return streams
}

// ListLiveStreams returns streams currently marked live, ordered by creation
// time.
func (s *Storage) ListLiveStreams() []models.Stream {
	s.mu.RLock()
	defer s.mu.RUnlock()

	streams := make([]models.Stream, 0, len(s.data.Streams))
	for _, stream := range s.data.Streams {
		if stream.IsLive {
			streams = append(streams, stream)
		}
	}
	sort.Slice(streams, func(i, j int) bool {
		return streams[i].CreatedAt.Before(streams[j].CreatedAt)
	})
	return streams
}

func (s *Storage) streamForUserLocked(userID string) (models.Stream, bool) {
	for _, stream := range s.data.Streams {
		if stream.UserID == userID {
			return stream, true
		}
	}
	return models.Stream{}, false
}

func (s *Storage) provisionKey(key string) {
	s.controlCall("provision", key, s.mediaController.ProvisionKey)
}

func (s *Storage) revokeKey(key string) {
	s.controlCall("revoke", key, s.mediaController.RevokeKey)
}

func (s *Storage) controlCall(operation, key string, call func(context.Context, string) error) {
	for attempt := 1; attempt <= s.mediaMaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), defaultMediaCallWindow)
		err := call(ctx, key)
		cancel()
		if err == nil {
			return
		}
		s.logger.Warn("media control call failed",
			"operation", operation,
			"attempt", attempt,
			"error", err,
		)
		if attempt < s.mediaMaxAttempts && s.mediaRetryInterval > 0 {
			time.Sleep(s.mediaRetryInterval)
		}
	}
}
