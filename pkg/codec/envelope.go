// Package codec decodes host-provided JSON into results. No function in this
// package panics or returns a bare error: every outcome is a result.Result.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/morezero/viverse-bridge/pkg/result"
)

// Envelope is the outer record the host passes to every completion callback.
// Field names are fixed by the host SDK.
type Envelope struct {
	TaskID     int64  `json:"TaskId"`
	ReturnCode int    `json:"ReturnCode"`
	Message    string `json:"Message"`
	Payload    string `json:"Payload"`
}

// wireEnvelope accepts Payload either as a JSON string or as an inline value.
type wireEnvelope struct {
	TaskID     *int64          `json:"TaskId"`
	ReturnCode int             `json:"ReturnCode"`
	Message    string          `json:"Message"`
	Payload    json.RawMessage `json:"Payload"`
}

// Reply is a decoded completion callback.
type Reply struct {
	TaskID    int64
	HasTaskID bool
	Result    result.Result[string]
}

var taskIDPattern = regexp.MustCompile(`"TaskId"\s*:\s*"?(-?\d+)`)

// DecodeEnvelope parses a raw completion callback. When the envelope cannot be
// parsed, the TaskId is recovered from the raw text if possible so the
// matching call can still be failed.
func DecodeEnvelope(raw string) (reply Reply) {
	defer func() {
		if r := recover(); r != nil {
			reply.Result = result.Failure[string](result.CodeParseFailure, fmt.Sprintf("panic decoding envelope: %v", r))
		}
	}()

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return Reply{Result: result.Failure[string](result.CodeParseFailure, "empty response")}
	}

	var w wireEnvelope
	if err := json.Unmarshal([]byte(trimmed), &w); err != nil {
		reply.TaskID, reply.HasTaskID = recoverTaskID(trimmed)
		reply.Result = result.FailureWithPayload[string](result.CodeParseFailure, err.Error(), raw)
		return reply
	}
	if w.TaskID == nil {
		return Reply{Result: result.FailureWithPayload[string](result.CodeParseFailure, "envelope has no TaskId", raw)}
	}

	reply.TaskID = *w.TaskID
	reply.HasTaskID = true

	payload := payloadText(w.Payload)
	code := result.FromReturnCode(w.ReturnCode)
	if code == result.CodeSuccess {
		reply.Result = result.Success(payload, payload)
		reply.Result.Message = w.Message
		return reply
	}
	reply.Result = result.FailureWithPayload[string](code, w.Message, payload)
	return reply
}

// EncodeEnvelope renders an envelope in wire form.
func EncodeEnvelope(env Envelope) ([]byte, error) {
	return json.Marshal(env)
}

func recoverTaskID(raw string) (int64, bool) {
	m := taskIDPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// payloadText unwraps a JSON string payload; inline JSON values are kept as text.
func payloadText(p json.RawMessage) string {
	p = bytes.TrimSpace(p)
	if len(p) == 0 || bytes.Equal(p, []byte("null")) {
		return ""
	}
	if p[0] == '"' {
		var s string
		if err := json.Unmarshal(p, &s); err == nil {
			return s
		}
	}
	return string(p)
}
