package journal

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

const logPrefix = "journal:recorder"

// Recorder persists diagnostic entries.
type Recorder interface {
	Record(ctx context.Context, entry *Entry) error
}

// NoOpRecorder is a Recorder that does nothing (for use without a journal store).
type NoOpRecorder struct{}

// Record is a no-op.
func (r *NoOpRecorder) Record(_ context.Context, _ *Entry) error {
	return nil
}

// CallbackRecorder is a Recorder that calls a callback function (for testing).
type CallbackRecorder struct {
	callback func(ctx context.Context, entry *Entry) error
}

// NewCallbackRecorder creates a new CallbackRecorder.
func NewCallbackRecorder(cb func(ctx context.Context, entry *Entry) error) *CallbackRecorder {
	return &CallbackRecorder{callback: cb}
}

// Record calls the callback.
func (r *CallbackRecorder) Record(ctx context.Context, entry *Entry) error {
	return r.callback(ctx, entry)
}

// recordTimeout bounds a single Record call made from a callback path.
const recordTimeout = 2 * time.Second

// Write stamps entry and hands it to rec. Failures are logged, never returned:
// diagnostics must not disturb the callback path that produced them.
func Write(rec Recorder, entry *Entry) {
	if rec == nil {
		return
	}
	if entry.Created.IsZero() {
		entry.Created = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := rec.Record(ctx, entry); err != nil {
		slog.Warn(fmt.Sprintf("%s - failed to record %s entry: %v", logPrefix, entry.Kind, err))
	}
}
