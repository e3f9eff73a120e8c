package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/viverse-bridge/pkg/result"
)

// Forwarder republishes delivered push events outside the process.
type Forwarder interface {
	Forward(ctx context.Context, event *Payload) error
}

// NoOpForwarder is a Forwarder that does nothing (for in-process usage without forwarding).
type NoOpForwarder struct{}

// Forward is a no-op.
func (f *NoOpForwarder) Forward(_ context.Context, _ *Payload) error {
	return nil
}

// CallbackForwarder is a Forwarder that calls a callback function (for testing).
type CallbackForwarder struct {
	callback func(ctx context.Context, event *Payload) error
}

// NewCallbackForwarder creates a new CallbackForwarder.
func NewCallbackForwarder(cb func(ctx context.Context, event *Payload) error) *CallbackForwarder {
	return &CallbackForwarder{callback: cb}
}

// Forward calls the callback.
func (f *CallbackForwarder) Forward(ctx context.Context, event *Payload) error {
	return f.callback(ctx, event)
}

// Forwarding returns a Handler that passes every successful event to f.
// Forwarding errors are logged and do not reach the registry.
func Forwarding(f Forwarder) Handler {
	return func(res result.Result[Payload]) {
		if !res.IsSuccess() {
			return
		}
		ev := res.Data
		if err := f.Forward(context.Background(), &ev); err != nil {
			slog.Warn(fmt.Sprintf("%s - forward %s:%s failed: %v", logPrefix, ev.Category, ev.Type, err))
		}
	}
}
