package hostsim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/commshost"
	"github.com/morezero/viverse-bridge/pkg/commsutil"
	"github.com/morezero/viverse-bridge/pkg/result"
)

const logPrefix = "hostsim:simulator"

// DefaultSDKVersion is reported by getSdkVersion unless overridden.
const DefaultSDKVersion = "1.0.0"

// Handler answers one simulated host method.
type Handler func(ctx context.Context, args json.RawMessage) Response

// Options configures a Simulator. Zero values use defaults.
type Options struct {
	SubjectPrefix string
	EventSubject  string
	SDKVersion    string
}

// Simulator serves host calls on COMMS.
type Simulator struct {
	nc           *comms.Conn
	prefix       string
	eventSubject string

	mu       sync.RWMutex
	handlers map[string]Handler
	sub      *comms.Subscription
}

// New creates a Simulator with the lifecycle methods (getSdkVersion, init,
// checkAuth, logout) answering successfully.
func New(nc *comms.Conn, opts Options) *Simulator {
	s := &Simulator{
		nc:           nc,
		prefix:       commsutil.SubjectHostPrefix,
		eventSubject: commsutil.SubjectHostEvents,
		handlers:     make(map[string]Handler),
	}
	if opts.SubjectPrefix != "" {
		s.prefix = opts.SubjectPrefix
	}
	if opts.EventSubject != "" {
		s.eventSubject = opts.EventSubject
	}
	version := opts.SDKVersion
	if version == "" {
		version = DefaultSDKVersion
	}

	s.Handle("getSdkVersion", Static(OK(version)))
	s.Handle("init", func(_ context.Context, args json.RawMessage) Response {
		var in struct {
			ClientID string `json:"clientId"`
		}
		if err := json.Unmarshal(args, &in); err != nil || in.ClientID == "" {
			return errorResponse(result.CodeInvalidParameter, "clientId is required")
		}
		return OK(nil)
	})
	s.Handle("checkAuth", Static(OK(map[string]any{
		"access_token": "sim-token",
		"account_id":   "sim-account",
		"expires_in":   3600,
	})))
	s.Handle("logout", Static(OK(nil)))
	return s
}

// Static returns a Handler that always answers r.
func Static(r Response) Handler {
	return func(context.Context, json.RawMessage) Response { return r }
}

// Handle sets the handler for method, replacing any existing one.
func (s *Simulator) Handle(method string, h Handler) {
	s.mu.Lock()
	s.handlers[method] = h
	s.mu.Unlock()
}

// Start subscribes to host calls.
func (s *Simulator) Start() error {
	sub, err := s.nc.Subscribe(s.prefix+".*", s.handleMsg)
	if err != nil {
		return fmt.Errorf("%s - failed to subscribe to %s.*: %w", logPrefix, s.prefix, err)
	}
	s.mu.Lock()
	s.sub = sub
	s.mu.Unlock()
	slog.Info(fmt.Sprintf("%s - Serving host calls on %s.*", logPrefix, s.prefix))
	return nil
}

// Stop unsubscribes from host calls.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	sub := s.sub
	s.sub = nil
	s.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

func (s *Simulator) handleMsg(msg *comms.Msg) {
	var req commshost.Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", logPrefix, err))
		return
	}
	if req.Method == "" {
		req.Method = commsutil.MethodFromSubject(s.prefix, msg.Subject)
	}

	env := s.Dispatch(context.Background(), &req)
	data, err := codec.EncodeEnvelope(env)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode envelope: %v", logPrefix, err))
		return
	}
	if msg.Reply == "" {
		slog.Warn(fmt.Sprintf("%s - call %d (%s) has no reply subject", logPrefix, req.TaskID, req.Method))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to respond to call %d: %v", logPrefix, req.TaskID, err))
	}
}

// Dispatch runs the handler for req and returns its completion envelope.
// Unknown methods answer NotSupported; a panicking handler answers Exception.
func (s *Simulator) Dispatch(ctx context.Context, req *commshost.Request) (env codec.Envelope) {
	slog.Debug(fmt.Sprintf("%s - method=%s id=%d", logPrefix, req.Method, req.TaskID))

	s.mu.RLock()
	h, ok := s.handlers[req.Method]
	s.mu.RUnlock()
	if !ok {
		return errorResponse(result.CodeNotSupported, fmt.Sprintf("Unknown method: %s", req.Method)).envelope(req.TaskID)
	}

	defer func() {
		if r := recover(); r != nil {
			env = errorResponse(result.CodeException, fmt.Sprintf("handler panicked: %v", r)).envelope(req.TaskID)
		}
	}()
	return h(ctx, req.Args).envelope(req.TaskID)
}

// Emit publishes a push event in the structured form.
func (s *Simulator) Emit(category, eventType string, data any) error {
	ev := codec.Event{Category: category, Type: eventType, Timestamp: time.Now().UnixMilli()}
	switch d := data.(type) {
	case nil:
	case string:
		ev.Data = d
	default:
		encoded, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("%s - failed to encode event data: %w", logPrefix, err)
		}
		ev.Data = string(encoded)
	}
	payload, err := codec.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", logPrefix, err)
	}
	return s.publish(commsutil.BuildHostEventSubject(s.eventSubject, category), payload)
}

// EmitLegacy publishes a push event in the "<eventName>|<eventData>" form.
func (s *Simulator) EmitLegacy(eventName, data string) error {
	return s.publish(commsutil.BuildHostEventSubject(s.eventSubject, ""), []byte(eventName+"|"+data))
}

func (s *Simulator) publish(subject string, data []byte) error {
	if err := s.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("%s - failed to publish to %s: %w", logPrefix, subject, err)
	}
	return nil
}
