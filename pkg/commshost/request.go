// Package commshost drives a remote SDK host over COMMS (NATS). Each host call
// is a request on <prefix>.<method>; replies carry the completion envelope and
// push notifications arrive on <eventSubject>.<category>.
package commshost

import "encoding/json"

// Request is the wire form of one host call.
type Request struct {
	TaskID int64           `json:"taskId"`
	Method string          `json:"method"`
	Args   json.RawMessage `json:"args,omitempty"`
}
