package events

import (
	"encoding/json"

	"github.com/morezero/viverse-bridge/pkg/result"
)

// Scoped wraps h so that only successful events accepted by match are
// forwarded. Failures (such as a registry reset) always pass through.
func Scoped(match func(Payload) bool, h Handler) Handler {
	return func(res result.Result[Payload]) {
		if res.IsSuccess() && !match(res.Data) {
			return
		}
		h(res)
	}
}

// ForRoom wraps h so it only sees events whose data names roomID.
func ForRoom(roomID string, h Handler) Handler {
	return Scoped(func(p Payload) bool {
		return RoomID(p) == roomID
	}, h)
}

// RoomID extracts the room id carried in an event's data, or "".
func RoomID(p Payload) string {
	var data struct {
		RoomID string `json:"roomId"`
		Room   *struct {
			ID string `json:"id"`
		} `json:"room"`
	}
	if err := json.Unmarshal([]byte(p.Data), &data); err != nil {
		return ""
	}
	if data.RoomID != "" {
		return data.RoomID
	}
	if data.Room != nil {
		return data.Room.ID
	}
	return ""
}
