package models

import "time"

// User is a registered account that owns exactly one stream.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Stream is the per-user publishing slot on the media server. IngestKey is
// the opaque token the media server authorizes publishes against; PlaybackURL
// is populated only while the stream is live.
type Stream struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Title       string    `json:"title"`
	IngestKey   string    `json:"ingestKey"`
	IsLive      bool      `json:"isLive"`
	PlaybackURL string    `json:"playbackUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Recording is an immutable pointer to a completed capture. StoragePath is
// the public-facing path after the media server's local root prefix has been
// stripped.
type Recording struct {
	ID          string    `json:"id"`
	StreamID    string    `json:"streamId"`
	StoragePath string    `json:"storagePath"`
	CreatedAt   time.Time `json:"createdAt"`
}
