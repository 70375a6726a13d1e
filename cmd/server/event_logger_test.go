package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/events"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]byte(nil), b.buf.Bytes()...)
}

func TestEventLogWorkerMirrorsEvents(t *testing.T) {
	queue := events.NewMemoryQueue(4)

	buf := &syncBuffer{}
	logger := slog.New(slog.NewJSONHandler(buf, nil))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := startEventLogWorker(ctx, logger, queue)
	defer stop()

	err := queue.Publish(context.Background(), events.Event{
		Type:     events.TypeStreamLive,
		StreamID: "stream-1",
		UserID:   "user-1",
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for len(buf.Bytes()) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	stop()

	var payload map[string]any
	if err := json.Unmarshal(buf.Bytes(), &payload); err != nil {
		t.Fatalf("decode log line: %v (%q)", err, string(buf.Bytes()))
	}
	if payload["type"] != string(events.TypeStreamLive) {
		t.Fatalf("expected event type in log line, got %v", payload["type"])
	}
	if payload["stream_id"] != "stream-1" {
		t.Fatalf("expected stream id in log line, got %v", payload["stream_id"])
	}
}

func TestEventLogWorkerNoopWithoutQueue(t *testing.T) {
	stop := startEventLogWorker(context.Background(), slog.Default(), nil)
	stop()
	stop()
}
