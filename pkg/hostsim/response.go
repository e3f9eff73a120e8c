// Package hostsim is a COMMS-attached stand-in for the SDK host. It answers
// host calls from a method table and publishes push events on demand.
package hostsim

import (
	"encoding/json"

	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/result"
)

// Response is what a simulated method answers with.
type Response struct {
	ReturnCode int    `json:"returnCode" yaml:"returnCode" toml:"returnCode"`
	Message    string `json:"message,omitempty" yaml:"message" toml:"message"`
	// Payload is sent as-is when it is a string and JSON-encoded otherwise.
	Payload any `json:"payload,omitempty" yaml:"payload" toml:"payload"`
}

// OK creates a successful Response.
func OK(payload any) Response {
	return Response{ReturnCode: int(result.CodeSuccess), Payload: payload}
}

func errorResponse(code result.ErrorCode, message string) Response {
	return Response{ReturnCode: int(code), Message: message}
}

// envelope renders r as the completion envelope for taskID.
func (r Response) envelope(taskID int64) codec.Envelope {
	env := codec.Envelope{TaskID: taskID, ReturnCode: r.ReturnCode, Message: r.Message}
	switch p := r.Payload.(type) {
	case nil:
	case string:
		env.Payload = p
	case json.RawMessage:
		env.Payload = string(p)
	default:
		data, err := json.Marshal(p)
		if err != nil {
			return codec.Envelope{
				TaskID:     taskID,
				ReturnCode: int(result.CodeException),
				Message:    "failed to encode simulated payload: " + err.Error(),
			}
		}
		env.Payload = string(data)
	}
	return env
}
