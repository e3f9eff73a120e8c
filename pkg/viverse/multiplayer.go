package viverse

import (
	"context"

	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/events"
	"github.com/morezero/viverse-bridge/pkg/result"
)

// MultiplayerService exchanges messages with the other players in a room.
type MultiplayerService struct {
	c *Client
}

type connectArgs struct {
	RoomID string `json:"roomId"`
}

type sendArgs struct {
	Content string `json:"content"`
}

// Connect opens the multiplayer channel for roomID.
func (s *MultiplayerService) Connect(ctx context.Context, roomID string) result.Result[struct{}] {
	if roomID == "" {
		return result.Failure[struct{}](result.CodeInvalidParameter, "room id is required")
	}
	return callAck(ctx, s.c, MethodConnectMultiplayer, connectArgs{RoomID: roomID})
}

// SendMessage broadcasts content to the room.
func (s *MultiplayerService) SendMessage(ctx context.Context, content string) result.Result[struct{}] {
	if content == "" {
		return result.Failure[struct{}](result.CodeInvalidParameter, "message is empty")
	}
	return callAck(ctx, s.c, MethodSendMessage, sendArgs{Content: content})
}

// OnMessage subscribes h to received messages. Event data that does not
// decode as a Message is delivered as a failure.
func (s *MultiplayerService) OnMessage(h func(result.Result[Message])) result.Result[events.SubscriptionID] {
	if h == nil {
		return result.Failure[events.SubscriptionID](result.CodeInvalidParameter, "handler is nil")
	}
	key := events.Key(events.CategoryMultiplayer, "MessageReceived")
	return s.c.events.Subscribe(key, func(res result.Result[events.Payload]) {
		if !res.IsSuccess() {
			h(result.FailureFrom[Message](res))
			return
		}
		msg := codec.DecodeTyped[Message](res.Data.Data)
		if msg.IsSuccess() && msg.Data.Timestamp == 0 {
			msg.Data.Timestamp = res.Data.Timestamp
		}
		h(msg)
	})
}
