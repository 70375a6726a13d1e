package events

import "time"

// Type enumerates the lifecycle events emitted while reconciling streams
// against the media server.
type Type string

const (
	// TypeStreamLive is emitted when a stream transitions to live.
	TypeStreamLive Type = "stream.live"
	// TypeStreamOffline is emitted when a stream transitions to offline.
	TypeStreamOffline Type = "stream.offline"
	// TypeRecordingCreated is emitted when a finished recording is registered.
	TypeRecordingCreated Type = "recording.created"
)

// Event is the wire representation forwarded to the queue.
type Event struct {
	Type        Type      `json:"type"`
	StreamID    string    `json:"streamId"`
	UserID      string    `json:"userId,omitempty"`
	IngestKey   string    `json:"ingestKey,omitempty"`
	RecordingID string    `json:"recordingId,omitempty"`
	OccurredAt  time.Time `json:"occurredAt"`
}
