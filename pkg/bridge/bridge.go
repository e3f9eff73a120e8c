// Package bridge issues calls into a callback-based host and turns their
// completions into results a Go caller can wait on.
//
// The host can only hold a plain function value, not a closure bound to a
// particular bridge. Every call therefore receives the package-level Complete
// trampoline, and completions are routed back to the issuing Bridge by the
// TaskId carried in the envelope.
package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/journal"
	"github.com/morezero/viverse-bridge/pkg/pending"
	"github.com/morezero/viverse-bridge/pkg/result"
)

const logPrefix = "bridge:bridge"

// HostFunc starts one host operation. It receives the call id and the
// completion callback the host must invoke exactly once with the raw envelope.
// A returned error (or a panic) means the host never accepted the call.
type HostFunc func(id pending.CallID, onResult func(raw string)) error

// Bridge issues host calls and correlates their completions. Any number of
// calls may be in flight at once.
type Bridge struct {
	calls    *pending.Registry
	log      *slog.Logger
	recorder journal.Recorder
}

// Options configures a Bridge. Nil fields use defaults.
type Options struct {
	Logger   *slog.Logger
	Recorder journal.Recorder
}

// New creates a Bridge with its own pending-call table.
func New(opts Options) *Bridge {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = &journal.NoOpRecorder{}
	}
	return &Bridge{
		calls:    pending.NewRegistry(pending.Options{Logger: logger, Recorder: rec}),
		log:      logger,
		recorder: rec,
	}
}

// Invoke registers a new call and hands it to hostFn. The returned call always
// completes: if hostFn fails synchronously it is resolved with an Exception
// failure before Invoke returns.
func (b *Bridge) Invoke(hostFn HostFunc) *pending.Call {
	call := b.calls.Register()
	id := call.ID()
	routes.add(id, b)

	if err := callHost(hostFn, id); err != nil {
		b.log.Warn(fmt.Sprintf("%s - host rejected call %d: %v", logPrefix, id, err))
		journal.Write(b.recorder, &journal.Entry{
			Kind:    journal.KindHostException,
			CallID:  int64(id),
			Message: err.Error(),
		})
		// Whoever takes the route resolves the call. The host may already
		// have completed it before failing.
		if routes.take(id) != nil {
			b.calls.Resolve(id, result.Failure[string](result.CodeException, err.Error()))
		}
	}
	return call
}

// Call invokes hostFn and waits for its completion.
func (b *Bridge) Call(ctx context.Context, hostFn HostFunc) result.Result[string] {
	if err := ctx.Err(); err != nil {
		return result.Failure[string](result.CodeInvalidState, err.Error())
	}
	return b.Invoke(hostFn).Wait(ctx)
}

// Pending returns the number of calls awaiting completion.
func (b *Bridge) Pending() int {
	return b.calls.Len()
}

func callHost(hostFn HostFunc, id pending.CallID) (err error) {
	if hostFn == nil {
		return fmt.Errorf("no host function for call %d", id)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("host function panicked: %v", r)
		}
	}()
	return hostFn(id, Complete)
}

// CallTyped invokes hostFn, waits, and decodes the payload into T.
func CallTyped[T any](ctx context.Context, b *Bridge, hostFn HostFunc) result.Result[T] {
	r := b.Call(ctx, hostFn)
	if !r.IsSuccess() {
		return result.FailureFrom[T](r)
	}
	return codec.DecodeTyped[T](r.Data)
}

// CallList invokes hostFn, waits, and decodes a filtered list payload.
func CallList[T codec.Identified](ctx context.Context, b *Bridge, hostFn HostFunc, fields ...string) result.Result[[]T] {
	r := b.Call(ctx, hostFn)
	if !r.IsSuccess() {
		return result.FailureFrom[[]T](r)
	}
	return codec.DecodeList[T](r.Data, fields...)
}

// CallAck invokes hostFn and waits for an operation whose payload carries no data.
func CallAck(ctx context.Context, b *Bridge, hostFn HostFunc) result.Result[struct{}] {
	r := b.Call(ctx, hostFn)
	if !r.IsSuccess() {
		return result.FailureFrom[struct{}](r)
	}
	return result.Success(struct{}{}, r.RawPayload)
}

// routeTable maps in-flight call ids to the Bridge that issued them.
type routeTable struct {
	mu     sync.Mutex
	byID   map[pending.CallID]*Bridge
	orphan journal.Recorder
}

var routes = &routeTable{byID: make(map[pending.CallID]*Bridge)}

func (t *routeTable) add(id pending.CallID, b *Bridge) {
	t.mu.Lock()
	t.byID[id] = b
	t.mu.Unlock()
}

func (t *routeTable) take(id pending.CallID) *Bridge {
	t.mu.Lock()
	defer t.mu.Unlock()
	b, ok := t.byID[id]
	if ok {
		delete(t.byID, id)
	}
	return b
}

func (t *routeTable) orphanRecorder() journal.Recorder {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.orphan
}

// SetOrphanRecorder sets where completions that match no Bridge are journaled.
func SetOrphanRecorder(rec journal.Recorder) {
	routes.mu.Lock()
	routes.orphan = rec
	routes.mu.Unlock()
}

// Complete is the single completion callback handed to the host. It is safe
// to call from any goroutine, any number of times.
func Complete(raw string) {
	reply := codec.DecodeEnvelope(raw)
	if !reply.HasTaskID {
		slog.Warn(fmt.Sprintf("%s - protocol violation: completion without task id dropped: %s", logPrefix, reply.Result.Message))
		journal.Write(routes.orphanRecorder(), &journal.Entry{
			Kind:    journal.KindProtocolViolation,
			Message: "completion without task id: " + reply.Result.Message,
			Raw:     raw,
		})
		return
	}

	id := pending.CallID(reply.TaskID)
	b := routes.take(id)
	if b == nil {
		slog.Warn(fmt.Sprintf("%s - protocol violation: completion for unknown call id %d", logPrefix, id))
		journal.Write(routes.orphanRecorder(), &journal.Entry{
			Kind:    journal.KindProtocolViolation,
			CallID:  int64(id),
			Message: fmt.Sprintf("completion for unknown call id %d", id),
			Raw:     raw,
		})
		return
	}
	b.calls.Resolve(id, reply.Result)
}
