// Package pending correlates host calls with their eventual completion
// callbacks by call id.
package pending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/morezero/viverse-bridge/pkg/journal"
	"github.com/morezero/viverse-bridge/pkg/result"
)

const logPrefix = "pending:registry"

// CallID identifies one in-flight host call. Ids are unique for the lifetime
// of the process, across every Registry.
type CallID int64

var lastID atomic.Int64

// NextID allocates a fresh CallID.
func NextID() CallID {
	return CallID(lastID.Add(1))
}

// Call is the caller's handle on a registered call. It completes exactly once.
type Call struct {
	id   CallID
	done chan struct{}
	res  result.Result[string]
}

// ID returns the call id.
func (c *Call) ID() CallID {
	return c.id
}

// Done is closed once the call has been resolved.
func (c *Call) Done() <-chan struct{} {
	return c.done
}

// Result returns the resolved result. It must only be read after Done is closed.
func (c *Call) Result() result.Result[string] {
	return c.res
}

// Wait blocks until the call resolves or ctx ends. Cancellation only releases
// the waiter: the call stays registered and is still resolved when the host
// answers, so the host never calls back into an unknown id.
func (c *Call) Wait(ctx context.Context) result.Result[string] {
	select {
	case <-c.done:
		return c.res
	default:
	}
	select {
	case <-c.done:
		return c.res
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return result.Failure[string](result.CodeNetworkTimeout, fmt.Sprintf("call %d: %v", c.id, ctx.Err()))
		}
		return result.Failure[string](result.CodeInvalidState, fmt.Sprintf("call %d: %v", c.id, ctx.Err()))
	}
}

// Registry is the table of in-flight calls. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	calls    map[CallID]*Call
	log      *slog.Logger
	recorder journal.Recorder
}

// Options configures a Registry. Nil fields use defaults.
type Options struct {
	Logger   *slog.Logger
	Recorder journal.Recorder
}

// NewRegistry creates an empty Registry.
func NewRegistry(opts Options) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = &journal.NoOpRecorder{}
	}
	return &Registry{
		calls:    make(map[CallID]*Call),
		log:      logger,
		recorder: rec,
	}
}

// Register allocates a new id and stores an unresolved call for it.
func (r *Registry) Register() *Call {
	c := &Call{id: NextID(), done: make(chan struct{})}

	r.mu.Lock()
	r.calls[c.id] = c
	r.mu.Unlock()

	return c
}

// Resolve completes the call registered under id and removes it. Resolving an
// unknown or already-resolved id is a protocol violation: it is logged and
// journaled, and Resolve reports false.
func (r *Registry) Resolve(id CallID, res result.Result[string]) bool {
	r.mu.Lock()
	c, ok := r.calls[id]
	if ok {
		delete(r.calls, id)
	}
	r.mu.Unlock()

	if !ok {
		r.log.Warn(fmt.Sprintf("%s - protocol violation: resolve for unknown call id %d (code=%s)", logPrefix, id, res.Code))
		journal.Write(r.recorder, &journal.Entry{
			Kind:    journal.KindProtocolViolation,
			CallID:  int64(id),
			Message: fmt.Sprintf("resolve for unknown call id %d", id),
			Raw:     res.RawPayload,
		})
		return false
	}

	c.res = res
	close(c.done)
	r.log.Debug(fmt.Sprintf("%s - resolved call %d code=%s", logPrefix, id, res.Code))
	return true
}

// Has reports whether id is still pending.
func (r *Registry) Has(id CallID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.calls[id]
	return ok
}

// Len returns the number of pending calls.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}
