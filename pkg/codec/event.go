package codec

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/morezero/viverse-bridge/pkg/result"
)

// Event is a decoded push notification.
type Event struct {
	Category  string `json:"EventCategory"`
	Type      string `json:"EventType"`
	Data      string `json:"EventData"`
	Timestamp int64  `json:"Timestamp"`
}

type wireEvent struct {
	Category  string          `json:"EventCategory"`
	Type      string          `json:"EventType"`
	Data      json.RawMessage `json:"EventData"`
	Timestamp int64           `json:"Timestamp"`
}

var now = time.Now

// DecodeEvent parses a push notification. The JSON form is tried first; if it
// does not parse, the legacy "<eventName>|<eventData>" form is accepted.
func DecodeEvent(raw string) (res result.Result[Event]) {
	defer func() {
		if r := recover(); r != nil {
			res = result.FailureWithPayload[Event](result.CodeParseFailure, fmt.Sprintf("panic decoding event: %v", r), raw)
		}
	}()

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || trimmed == "null" {
		return result.Failure[Event](result.CodeParseFailure, "empty event")
	}

	var w wireEvent
	jsonErr := json.Unmarshal([]byte(trimmed), &w)
	if jsonErr == nil && w.Type != "" {
		return result.Success(Event{
			Category:  w.Category,
			Type:      w.Type,
			Data:      payloadText(w.Data),
			Timestamp: w.Timestamp,
		}, raw)
	}

	if name, data, ok := strings.Cut(trimmed, "|"); ok {
		name = normalizeEventName(name)
		if name != "" {
			return result.Success(Event{
				Type:      name,
				Data:      data,
				Timestamp: now().UnixMilli(),
			}, raw)
		}
	}

	if jsonErr == nil {
		return result.FailureWithPayload[Event](result.CodeParseFailure, "event has no EventType", raw)
	}
	return result.FailureWithPayload[Event](result.CodeParseFailure, jsonErr.Error(), raw)
}

// EncodeEvent renders an event in wire form.
func EncodeEvent(e Event) ([]byte, error) {
	return json.Marshal(e)
}

// normalizeEventName maps legacy handler names such as "onRoomJoined" to the
// event type "RoomJoined".
func normalizeEventName(name string) string {
	name = strings.TrimSpace(name)
	if rest, ok := strings.CutPrefix(name, "on"); ok && rest != "" && unicode.IsUpper(rune(rest[0])) {
		return rest
	}
	return name
}
