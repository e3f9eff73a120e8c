package viverse

import (
	"context"
	"strings"

	"github.com/morezero/viverse-bridge/pkg/events"
	"github.com/morezero/viverse-bridge/pkg/result"
)

// MatchmakingService manages rooms and matchmaking events.
type MatchmakingService struct {
	c *Client
}

type roomArgs struct {
	RoomID string `json:"roomId"`
}

// SetActor sets the local player's matchmaking identity.
func (s *MatchmakingService) SetActor(ctx context.Context, actor Actor) result.Result[struct{}] {
	if actor.SessionID == "" {
		return result.Failure[struct{}](result.CodeInvalidParameter, "actor session id is required")
	}
	return callAck(ctx, s.c, MethodSetActor, actor)
}

// CreateRoom creates a room and joins it.
func (s *MatchmakingService) CreateRoom(ctx context.Context, cfg RoomConfig) result.Result[Room] {
	if strings.TrimSpace(cfg.Name) == "" {
		return result.Failure[Room](result.CodeInvalidParameter, "room name is required")
	}
	if cfg.MaxPlayers <= 0 || (cfg.MinPlayers > cfg.MaxPlayers) {
		return result.Failure[Room](result.CodeInvalidParameter, "invalid player limits")
	}
	return call[Room](ctx, s.c, MethodCreateRoom, cfg)
}

// JoinRoom joins an existing room.
func (s *MatchmakingService) JoinRoom(ctx context.Context, roomID string) result.Result[Room] {
	if roomID == "" {
		return result.Failure[Room](result.CodeInvalidParameter, "room id is required")
	}
	return call[Room](ctx, s.c, MethodJoinRoom, roomArgs{RoomID: roomID})
}

// LeaveRoom leaves the current room.
func (s *MatchmakingService) LeaveRoom(ctx context.Context) result.Result[struct{}] {
	return callAck(ctx, s.c, MethodLeaveRoom, nil)
}

// CloseRoom closes the current room to new players. Only the master client may close it.
func (s *MatchmakingService) CloseRoom(ctx context.Context) result.Result[struct{}] {
	return callAck(ctx, s.c, MethodCloseRoom, nil)
}

// GetAvailableRooms lists joinable rooms. Entries without an id are dropped.
func (s *MatchmakingService) GetAvailableRooms(ctx context.Context) result.Result[[]Room] {
	return callList[Room](ctx, s.c, MethodGetAvailableRooms, nil, "rooms")
}

// OnEvent subscribes h to a matchmaking event type, or to every matchmaking
// event when eventType is empty.
func (s *MatchmakingService) OnEvent(eventType string, h events.Handler) result.Result[events.SubscriptionID] {
	return s.c.events.Subscribe(matchmakingKey(eventType), h)
}

// OnRoomEvent is OnEvent restricted to events naming roomID.
func (s *MatchmakingService) OnRoomEvent(roomID, eventType string, h events.Handler) result.Result[events.SubscriptionID] {
	if roomID == "" {
		return result.Failure[events.SubscriptionID](result.CodeInvalidParameter, "room id is required")
	}
	if h == nil {
		return result.Failure[events.SubscriptionID](result.CodeInvalidParameter, "handler is nil")
	}
	return s.c.events.Subscribe(matchmakingKey(eventType), events.ForRoom(roomID, h))
}

func matchmakingKey(eventType string) string {
	if eventType == "" {
		return events.CategoryMatchmaking
	}
	return events.Key(events.CategoryMatchmaking, eventType)
}
