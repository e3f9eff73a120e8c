package events

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/journal"
	"github.com/morezero/viverse-bridge/pkg/result"
)

const logPrefix = "events:registry"

// Payload is a decoded push event as handed to subscribers.
type Payload = codec.Event

// Handler receives push events. Handlers run on the goroutine that delivered
// the notification and should return quickly.
type Handler func(result.Result[Payload])

// SubscriptionID identifies a subscription. It is unrelated to call ids.
type SubscriptionID string

type subscription struct {
	id      SubscriptionID
	key     string
	handler Handler
}

// Registry holds push event subscriptions. It is independent of the pending
// call table and safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	byKey    map[string][]*subscription
	byID     map[SubscriptionID]*subscription
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
		byKey:    make(map[string][]*subscription),
		byID:     make(map[SubscriptionID]*subscription),
		log:      logger,
		recorder: rec,
	}
}

// Subscribe registers handler for key. key is "category:Type", a bare Type,
// or a bare category to receive every event in it. Unrecognised keys yield an
// InvalidParameter failure.
func (r *Registry) Subscribe(key string, handler Handler) result.Result[SubscriptionID] {
	if handler == nil {
		return result.Failure[SubscriptionID](result.CodeInvalidParameter, "handler is nil")
	}
	normalized, _, ok := normalizeKey(key)
	if !ok {
		return result.Failure[SubscriptionID](result.CodeInvalidParameter, fmt.Sprintf("unrecognised event type %q", key))
	}

	sub := &subscription{
		id:      SubscriptionID(ulid.Make().String()),
		key:     normalized,
		handler: handler,
	}

	r.mu.Lock()
	r.byKey[normalized] = append(r.byKey[normalized], sub)
	r.byID[sub.id] = sub
	r.mu.Unlock()

	r.log.Debug(fmt.Sprintf("%s - subscribed %s to %s", logPrefix, sub.id, normalized))
	return result.Success(sub.id, "")
}

// Unsubscribe removes a subscription and reports whether it existed.
func (r *Registry) Unsubscribe(id SubscriptionID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(r.byID, id)

	subs := r.byKey[sub.key]
	for i, s := range subs {
		if s.id == id {
			// Copy so snapshots taken by an in-progress Dispatch stay intact.
			next := make([]*subscription, 0, len(subs)-1)
			next = append(next, subs[:i]...)
			next = append(next, subs[i+1:]...)
			if len(next) == 0 {
				delete(r.byKey, sub.key)
			} else {
				r.byKey[sub.key] = next
			}
			break
		}
	}
	return true
}

// Dispatch is the callback the host invokes for push events. It decodes raw
// and delivers the event to exact-type subscribers, then category-wide
// subscribers. A panicking handler is recovered and journaled; the remaining
// handlers still run.
func (r *Registry) Dispatch(raw string) {
	res := codec.DecodeEvent(raw)
	if !res.IsSuccess() {
		r.log.Warn(fmt.Sprintf("%s - dropping undecodable event: %s", logPrefix, res.Message))
		journal.Write(r.recorder, &journal.Entry{
			Kind:    journal.KindEventDropped,
			Message: res.Message,
			Raw:     raw,
		})
		return
	}

	ev := res.Data
	cat, known := CategoryOf(ev.Type)
	if !known {
		r.log.Debug(fmt.Sprintf("%s - dropping unrecognised event type %q", logPrefix, ev.Type))
		journal.Write(r.recorder, &journal.Entry{
			Kind:      journal.KindEventDropped,
			EventType: ev.Type,
			Message:   "unrecognised event type",
			Raw:       raw,
		})
		return
	}
	if ev.Category != cat {
		if ev.Category != "" {
			r.log.Debug(fmt.Sprintf("%s - event %s arrived as category %q, using %q", logPrefix, ev.Type, ev.Category, cat))
		}
		ev.Category = cat
	}

	r.mu.RLock()
	exact := r.byKey[Key(cat, ev.Type)]
	wide := r.byKey[cat]
	r.mu.RUnlock()

	delivered := result.Success(ev, raw)
	for _, sub := range exact {
		r.deliver(sub, delivered)
	}
	for _, sub := range wide {
		r.deliver(sub, delivered)
	}
}

func (r *Registry) deliver(sub *subscription, res result.Result[Payload]) {
	defer func() {
		if p := recover(); p != nil {
			msg := fmt.Sprintf("handler panicked: %v", p)
			r.log.Error(fmt.Sprintf("%s - subscription %s on %s: %s", logPrefix, sub.id, sub.key, msg))
			journal.Write(r.recorder, &journal.Entry{
				Kind:           journal.KindHandlerPanic,
				SubscriptionID: string(sub.id),
				EventType:      res.Data.Type,
				Message:        msg,
				Raw:            res.RawPayload,
			})
		}
	}()
	sub.handler(res)
}

// Reset drops every subscription. Each dropped handler is told once with an
// SdkNotInitialized failure so no subscriber waits on events that will never come.
func (r *Registry) Reset() {
	r.mu.Lock()
	var dropped []*subscription
	for _, subs := range r.byKey {
		dropped = append(dropped, subs...)
	}
	r.byKey = make(map[string][]*subscription)
	r.byID = make(map[SubscriptionID]*subscription)
	r.mu.Unlock()

	if len(dropped) == 0 {
		return
	}
	r.log.Info(fmt.Sprintf("%s - reset dropped %d subscriptions", logPrefix, len(dropped)))
	failure := result.Failure[Payload](result.CodeSdkNotInitialized, "event registry reset")
	for _, sub := range dropped {
		r.deliver(sub, failure)
	}
}

// Len returns the number of live subscriptions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
