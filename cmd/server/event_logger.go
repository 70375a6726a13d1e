package main

import (
	"context"
	"log/slog"
	"sync"

	"github.com/Dineshrajan23/real-deploy-gb-stream/internal/events"
)

// startEventLogWorker mirrors every lifecycle event to the structured log so
// operators can follow stream transitions without a queue consumer attached.
// Returns an idempotent stop function.
func startEventLogWorker(ctx context.Context, logger *slog.Logger, queue events.Queue) func() {
	if queue == nil || logger == nil {
		return func() {}
	}
	sub := queue.Subscribe()
	if sub == nil {
		return func() {}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-sub.Events():
				if !ok {
					return
				}
				attrs := []any{
					"type", string(event.Type),
					"stream_id", event.StreamID,
				}
				if event.UserID != "" {
					attrs = append(attrs, "user_id", event.UserID)
				}
				if event.RecordingID != "" {
					attrs = append(attrs, "recording_id", event.RecordingID)
				}
				logger.Info("lifecycle event", attrs...)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.Close()
			<-done
		})
	}
}
