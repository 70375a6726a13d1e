package storage

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
)

// CreateRecording registers a completed recording for the stream owning
// params.IngestKey. The source file is verified before anything is
// persisted; an unreadable file fails with ErrRecordingSource and the signal
// is dropped.
func (s *Storage) CreateRecording(params CreateRecordingParams) (models.Recording, error) {
	externalPath := strings.TrimSpace(params.ExternalPath)
	if externalPath == "" {
		return models.Recording{}, fmt.Errorf("%w: empty path", ErrRecordingSource)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stream, ok := s.streamByKeyLocked(params.IngestKey)
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
		StoragePath: publicRecordingPath(s.recordingRoot, externalPath),
		CreatedAt:   time.Now().UTC(),
	}

	updated := cloneDataset(s.data)
	updated.Recordings[id] = recording
	if err := s.persistDataset(updated); err != nil {
		return models.Recording{}, err
	}
	s.data = updated
	return recording, nil
}

// GetRecording fetches a recording by ID.
func (s *Storage) GetRecording(id string) (models.Recording, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recording, ok := s.data.Recordings[id]
	return recording, ok
}

// ListRecordings returns all recordings, newest first.
func (s *Storage) ListRecordings() []models.Recording {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortRecordings(s.data.Recordings, "")
}

// ListStreamRecordings returns the recordings owned by streamID, newest
// first.
func (s *Storage) ListStreamRecordings(streamID string) []models.Recording {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortRecordings(s.data.Recordings, streamID)
}

func sortRecordings(source map[string]models.Recording, streamID string) []models.Recording {
	recordings := make([]models.Recording, 0, len(source))
	for _, recording := range source {
		if streamID != "" && recording.StreamID != streamID {
			continue
		}
		recordings = append(recordings, recording)
	}
	sort.Slice(recordings, func(i, j int) bool {
		if recordings[i].CreatedAt.Equal(recordings[j].CreatedAt) {
			return recordings[i].ID > recordings[j].ID
		}
		return recordings[i].CreatedAt.After(recordings[j].CreatedAt)
	})
	return recordings
}
