package api

import (
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/models"
)

type userResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	CreatedAt   string `json:"createdAt"`
}

type authResponse struct {
	ExpiresAt string       `json:"expiresAt"`
	User      userResponse `json:"user"`
}

// streamResponse is the owner's view of their stream, ingest key included.
type streamResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	IngestKey   string `json:"ingestKey"`
	IsLive      bool   `json:"isLive"`
	PlaybackURL string `json:"playbackUrl,omitempty"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

// liveStreamResponse is the public view of a live stream. It never carries
// the ingest key.
type liveStreamResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Title       string `json:"title"`
	PlaybackURL string `json:"playbackUrl,omitempty"`
}

type recordingResponse struct {
	ID        string `json:"id"`
	StreamID  string `json:"streamId"`
	Path      string `json:"path"`
	CreatedAt string `json:"createdAt"`
}

type dashboardResponse struct {
	User       userResponse        `json:"user"`
	Stream     streamResponse      `json:"stream"`
	Recordings []recordingResponse `json:"recordings"`
}

func newUserResponse(user models.User) userResponse {
	return userResponse{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		CreatedAt:   user.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newAuthResponse(user models.User, expiresAt time.Time) authResponse {
	return authResponse{
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		User:      newUserResponse(user),
	}
}

func newStreamResponse(stream models.Stream) streamResponse {
	return streamResponse{
		ID:          stream.ID,
		Title:       stream.Title,
		IngestKey:   stream.IngestKey,
		IsLive:      stream.IsLive,
		PlaybackURL: stream.PlaybackURL,
		CreatedAt:   stream.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   stream.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func newRecordingResponse(recording models.Recording) recordingResponse {
	return recordingResponse{
		ID:        recording.ID,
		StreamID:  recording.StreamID,
		Path:      recording.StoragePath,
		CreatedAt: recording.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func newRecordingResponses(recordings []models.Recording) []recordingResponse {
	out := make([]recordingResponse, 0, len(recordings))
	for _, recording := range recordings {
		out = append(out, newRecordingResponse(recording))
	}
	return out
}
