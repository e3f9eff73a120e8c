package commshost

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/viverse-bridge/pkg/bridge"
	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/commsutil"
	"github.com/morezero/viverse-bridge/pkg/pending"
	"github.com/morezero/viverse-bridge/pkg/result"
)

const logPrefix = "commshost:host"

// Push callback registration return codes.
const (
	rcUnregistered   = 1
	rcUnknownToken   = -1
	rcSubscribeError = -2
)

// Options configures a Host. Zero values use defaults.
type Options struct {
	// SubjectPrefix overrides the host call prefix (e.g. from HOST_SUBJECT_PREFIX).
	SubjectPrefix string
	// EventSubject overrides the push event subject (e.g. from EVENT_SUBJECT).
	EventSubject string
	Logger       *slog.Logger
}

// Host implements the SDK host contract over a COMMS connection.
type Host struct {
	nc           *comms.Conn
	prefix       string
	eventSubject string
	inbox        string
	log          *slog.Logger

	mu        sync.Mutex
	inboxSub  *comms.Subscription
	waiting   map[int64]func(raw string)
	pushSubs  map[int]*comms.Subscription
	nextToken int
	closed    bool
}

// New creates a Host and subscribes to its reply inbox.
func New(nc *comms.Conn, opts Options) (*Host, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := &Host{
		nc:           nc,
		prefix:       commsutil.SubjectHostPrefix,
		eventSubject: commsutil.SubjectHostEvents,
		inbox:        comms.NewInbox(),
		log:          logger,
		waiting:      make(map[int64]func(string)),
		pushSubs:     make(map[int]*comms.Subscription),
	}
	if opts.SubjectPrefix != "" {
		h.prefix = opts.SubjectPrefix
	}
	if opts.EventSubject != "" {
		h.eventSubject = opts.EventSubject
	}

	sub, err := nc.Subscribe(h.inbox+".*", h.handleReply)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to reply inbox: %w", logPrefix, err)
	}
	h.inboxSub = sub

	logger.Info(fmt.Sprintf("%s - Host calls on %s.*, push events on %s.>", logPrefix, h.prefix, h.eventSubject))
	return h, nil
}

// Func binds method and args into a bridge host function.
func (h *Host) Func(method string, args any) bridge.HostFunc {
	return func(id pending.CallID, onResult func(raw string)) error {
		req := Request{TaskID: int64(id), Method: method}
		if args != nil {
			encoded, err := json.Marshal(args)
			if err != nil {
				return fmt.Errorf("%s - failed to encode %s args: %w", logPrefix, method, err)
			}
			req.Args = encoded
		}
		data, err := json.Marshal(req)
		if err != nil {
			return fmt.Errorf("%s - failed to encode %s request: %w", logPrefix, method, err)
		}

		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			return fmt.Errorf("%s - host is closed", logPrefix)
		}
		h.waiting[req.TaskID] = onResult
		h.mu.Unlock()

		subject := commsutil.BuildHostSubject(h.prefix, method)
		reply := commsutil.BuildReplySubject(h.inbox, req.TaskID)
		if err := h.nc.PublishRequest(subject, reply, data); err != nil {
			h.take(req.TaskID)
			return fmt.Errorf("%s - failed to publish %s: %w", logPrefix, subject, err)
		}
		h.log.Debug(fmt.Sprintf("%s - call %d -> %s", logPrefix, req.TaskID, subject))
		return nil
	}
}

func (h *Host) take(taskID int64) func(string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cb, ok := h.waiting[taskID]
	if ok {
		delete(h.waiting, taskID)
	}
	return cb
}

func (h *Host) handleReply(msg *comms.Msg) {
	token := msg.Subject[strings.LastIndex(msg.Subject, ".")+1:]
	taskID, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		h.log.Warn(fmt.Sprintf("%s - reply on unexpected subject %s", logPrefix, msg.Subject))
		return
	}

	cb := h.take(taskID)
	if cb == nil {
		h.log.Warn(fmt.Sprintf("%s - reply for call %d that is not waiting", logPrefix, taskID))
		return
	}

	raw := string(msg.Data)
	if len(msg.Data) == 0 && msg.Header != nil && msg.Header.Get("Status") == "503" {
		raw = failureEnvelope(taskID, result.CodeModuleNotLoaded, "no host is serving this method")
	}
	cb(raw)
}

// RegisterCallback subscribes onEvent to every push event. It returns a
// positive token, or -2 when the subscription cannot be created.
func (h *Host) RegisterCallback(onEvent func(raw string)) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed || onEvent == nil {
		return rcSubscribeError
	}

	sub, err := h.nc.Subscribe(h.eventSubject+".>", func(msg *comms.Msg) {
		onEvent(string(msg.Data))
	})
	if err != nil {
		h.log.Error(fmt.Sprintf("%s - failed to subscribe to push events: %v", logPrefix, err))
		return rcSubscribeError
	}

	h.nextToken++
	h.pushSubs[h.nextToken] = sub
	return h.nextToken
}

// Unregister removes a push callback. It returns 1, or -1 for an unknown token.
func (h *Host) Unregister(token int) int {
	h.mu.Lock()
	sub, ok := h.pushSubs[token]
	delete(h.pushSubs, token)
	h.mu.Unlock()
	if !ok {
		return rcUnknownToken
	}
	if err := sub.Unsubscribe(); err != nil {
		h.log.Warn(fmt.Sprintf("%s - unsubscribe push callback %d: %v", logPrefix, token, err))
	}
	return rcUnregistered
}

// Waiting returns the number of calls awaiting a reply.
func (h *Host) Waiting() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.waiting)
}

// Close drops the reply inbox and push subscriptions. Calls still waiting are
// completed with an InvalidState failure.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	waiting := h.waiting
	h.waiting = make(map[int64]func(string))
	subs := h.pushSubs
	h.pushSubs = make(map[int]*comms.Subscription)
	inboxSub := h.inboxSub
	h.mu.Unlock()

	for token, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			h.log.Warn(fmt.Sprintf("%s - unsubscribe push callback %d: %v", logPrefix, token, err))
		}
	}
	var err error
	if inboxSub != nil {
		err = inboxSub.Unsubscribe()
	}
	for taskID, cb := range waiting {
		cb(failureEnvelope(taskID, result.CodeInvalidState, "host closed"))
	}

	h.log.Info(fmt.Sprintf("%s - Host closed (%d calls abandoned)", logPrefix, len(waiting)))
	if err != nil {
		return fmt.Errorf("%s - failed to unsubscribe reply inbox: %w", logPrefix, err)
	}
	return nil
}

func failureEnvelope(taskID int64, code result.ErrorCode, msg string) string {
	data, _ := codec.EncodeEnvelope(codec.Envelope{TaskID: taskID, ReturnCode: int(code), Message: msg})
	return string(data)
}
