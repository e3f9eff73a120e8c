package viverse

import (
	"encoding/json"
	"sync"

	"github.com/morezero/viverse-bridge/pkg/bridge"
	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/pending"
	"github.com/morezero/viverse-bridge/pkg/result"
)

// reply is what a fake host method answers with.
type reply struct {
	rc      int
	payload string
	message string
}

func ok(payload string) reply { return reply{rc: 1, payload: payload} }

func fail(code result.ErrorCode, msg string) reply { return reply{rc: int(code), message: msg} }

// fakeHost answers calls asynchronously from a method table.
type fakeHost struct {
	mu         sync.Mutex
	handlers   map[string]func(args any) reply
	calls      []string
	args       map[string]any
	callback   func(string)
	nextToken  int
	registerRC int
	unregister []int
}

func newFakeHost(version string) *fakeHost {
	return &fakeHost{
		handlers: map[string]func(any) reply{
			MethodGetSDKVersion: func(any) reply { return ok(version) },
			MethodInit:          func(any) reply { return ok("") },
		},
		args: make(map[string]any),
	}
}

func (h *fakeHost) on(method string, fn func(args any) reply) {
	h.mu.Lock()
	h.handlers[method] = fn
	h.mu.Unlock()
}

func (h *fakeHost) Func(method string, args any) bridge.HostFunc {
	return func(id pending.CallID, onResult func(string)) error {
		h.mu.Lock()
		h.calls = append(h.calls, method)
		h.args[method] = args
		fn := h.handlers[method]
		h.mu.Unlock()

		go func() {
			r := fail(result.CodeNotSupported, "unknown method "+method)
			if fn != nil {
				r = fn(args)
			}
			data, _ := codec.EncodeEnvelope(codec.Envelope{
				TaskID:     int64(id),
				ReturnCode: r.rc,
				Message:    r.message,
				Payload:    r.payload,
			})
			onResult(string(data))
		}()
		return nil
	}
}

func (h *fakeHost) RegisterCallback(onEvent func(raw string)) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.registerRC != 0 {
		return h.registerRC
	}
	h.callback = onEvent
	h.nextToken++
	return h.nextToken
}

func (h *fakeHost) Unregister(token int) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unregister = append(h.unregister, token)
	if token != h.nextToken || h.callback == nil {
		return -1
	}
	h.callback = nil
	return 1
}

func (h *fakeHost) push(raw string) bool {
	h.mu.Lock()
	cb := h.callback
	h.mu.Unlock()
	if cb == nil {
		return false
	}
	cb(raw)
	return true
}

func (h *fakeHost) callLog() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.calls...)
}

func (h *fakeHost) argsFor(method string) any {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.args[method]
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return string(b)
}
