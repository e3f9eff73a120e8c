package viverse

import (
	"context"
	"testing"

	"github.com/morezero/viverse-bridge/pkg/events"
	"github.com/morezero/viverse-bridge/pkg/result"
)

func TestAvatar_GetAvatarListFiltersEntries(t *testing.T) {
	host := newFakeHost("1.0.0")
	c := initializedClient(t, host, Options{})
	host.on(MethodGetAvatarList, func(any) reply {
		return ok(`[{"id":"a","vrmUrl":"https://x/a.vrm"},{"id":""},null]`)
	})

	r := c.Avatar.GetAvatarList(context.Background())
	if !r.IsSuccess() {
		t.Fatalf("viverse:services_test - GetAvatarList failed: %v %s", r.Code, r.Message)
	}
	if len(r.Data) != 1 || r.Data[0].ID != "a" {
		t.Errorf("viverse:services_test - unexpected avatars: %+v", r.Data)
	}
}

func TestAvatar_GetPublicAvatarListRequiresModel(t *testing.T) {
	host := newFakeHost("1.0.0")
	c := initializedClient(t, host, Options{})
	host.on(MethodGetPublicAvatarList, func(any) reply {
		return ok(`{"avatars":[{"id":"p1","vrmUrl":"https://x/p1.vrm"},{"id":"p2","vrmUrl":""},{"id":"p3"}]}`)
	})

	r := c.Avatar.GetPublicAvatarList(context.Background())
	if !r.IsSuccess() {
		t.Fatalf("viverse:services_test - GetPublicAvatarList failed: %v %s", r.Code, r.Message)
	}
	if len(r.Data) != 1 || r.Data[0].ID != "p1" {
		t.Errorf("viverse:services_test - unexpected avatars: %+v", r.Data)
	}
}

func TestAvatar_GetProfileNullPayload(t *testing.T) {
	host := newFakeHost("1.0.0")
	c := initializedClient(t, host, Options{})
	host.on(MethodGetProfile, func(any) reply { return ok("null") })

	if r := c.Avatar.GetProfile(context.Background()); r.Code != result.CodeSdkReturnedNull {
		t.Errorf("viverse:services_test - Code = %v, want SDK_RETURNED_NULL", r.Code)
	}
}

func TestLeaderboard(t *testing.T) {
	host := newFakeHost("1.0.0")
	c := initializedClient(t, host, Options{})
	host.on(MethodUploadScore, func(any) reply { return ok("") })
	host.on(MethodGetLeaderboard, func(any) reply {
		return ok(`{"ranking":[{"rank":1,"name":"ada","value":99},{"rank":2,"name":"","value":50},{"rank":3,"name":"bob","value":10}]}`)
	})
	ctx := context.Background()

	if r := c.Leaderboard.UploadScore(ctx, "", 1); r.Code != result.CodeInvalidParameter {
		t.Errorf("viverse:services_test - empty name code = %v", r.Code)
	}
	if r := c.Leaderboard.UploadScore(ctx, "weekly", 42.5); !r.IsSuccess() {
		t.Fatalf("viverse:services_test - UploadScore failed: %v", r.Code)
	}
	if got, _ := host.argsFor(MethodUploadScore).(scoreArgs); got.Name != "weekly" || got.Value != 42.5 {
		t.Errorf("viverse:services_test - upload args = %#v", host.argsFor(MethodUploadScore))
	}

	r := c.Leaderboard.GetLeaderboard(ctx, LeaderboardQuery{Name: "weekly", Range: 10})
	if !r.IsSuccess() {
		t.Fatalf("viverse:services_test - GetLeaderboard failed: %v %s", r.Code, r.Message)
	}
	if len(r.Data) != 2 || r.Data[0].Name != "ada" || r.Data[1].Rank != 3 {
		t.Errorf("viverse:services_test - unexpected ranking: %+v", r.Data)
	}
	if r := c.Leaderboard.GetLeaderboard(ctx, LeaderboardQuery{Name: "weekly", Range: -1}); r.Code != result.CodeInvalidParameter {
		t.Errorf("viverse:services_test - negative range code = %v", r.Code)
	}
}

func TestMatchmaking_Rooms(t *testing.T) {
	host := newFakeHost("1.0.0")
	c := initializedClient(t, host, Options{})
	host.on(MethodCreateRoom, func(args any) reply {
		cfg := args.(RoomConfig)
		return ok(mustJSON(Room{ID: "r1", Name: cfg.Name, MaxPlayers: cfg.MaxPlayers, ActorCount: 1}))
	})
	host.on(MethodGetAvailableRooms, func(any) reply {
		return ok(`{"rooms":[{"id":"r1","name":"lobby"},{"id":"","name":"ghost"}]}`)
	})
	host.on(MethodJoinRoom, func(any) reply { return fail(result.CodeNotFound, "no such room") })
	ctx := context.Background()

	if r := c.Matchmaking.CreateRoom(ctx, RoomConfig{Name: "lobby"}); r.Code != result.CodeInvalidParameter {
		t.Errorf("viverse:services_test - zero MaxPlayers code = %v", r.Code)
	}
	room := c.Matchmaking.CreateRoom(ctx, RoomConfig{Name: "lobby", MaxPlayers: 4})
	if !room.IsSuccess() || room.Data.ID != "r1" || room.Data.MaxPlayers != 4 {
		t.Fatalf("viverse:services_test - CreateRoom = %+v", room)
	}

	rooms := c.Matchmaking.GetAvailableRooms(ctx)
	if !rooms.IsSuccess() || len(rooms.Data) != 1 {
		t.Errorf("viverse:services_test - GetAvailableRooms = %+v", rooms)
	}

	joined := c.Matchmaking.JoinRoom(ctx, "missing")
	if joined.Code != result.CodeNotFound || joined.Message != "no such room" {
		t.Errorf("viverse:services_test - JoinRoom = %v %q", joined.Code, joined.Message)
	}
	if r := c.Matchmaking.SetActor(ctx, Actor{Name: "ada"}); r.Code != result.CodeInvalidParameter {
		t.Errorf("viverse:services_test - SetActor without session code = %v", r.Code)
	}
}

func TestMatchmaking_Events(t *testing.T) {
	host := newFakeHost("1.0.0")
	c := initializedClient(t, host, Options{})

	var joined, inRoom, all []string
	if r := c.Matchmaking.OnEvent("RoomJoined", func(res result.Result[events.Payload]) {
		joined = append(joined, res.Data.Data)
	}); !r.IsSuccess() {
		t.Fatalf("viverse:services_test - OnEvent failed: %s", r.Message)
	}
	if r := c.Matchmaking.OnRoomEvent("42", "", func(res result.Result[events.Payload]) {
		inRoom = append(inRoom, res.Data.Type)
	}); !r.IsSuccess() {
		t.Fatalf("viverse:services_test - OnRoomEvent failed: %s", r.Message)
	}
	if r := c.Matchmaking.OnEvent("", func(res result.Result[events.Payload]) {
		all = append(all, res.Data.Type)
	}); !r.IsSuccess() {
		t.Fatalf("viverse:services_test - category OnEvent failed: %s", r.Message)
	}
	if r := c.Matchmaking.OnEvent("Reconnected", func(result.Result[events.Payload]) {}); r.Code != result.CodeInvalidParameter {
		t.Errorf("viverse:services_test - non-matchmaking type code = %v", r.Code)
	}

	host.push(`onRoomJoined|{"roomId":"42"}`)
	host.push(`{"EventCategory":"matchmaking","EventType":"ActorJoined","EventData":{"roomId":"7"}}`)

	if len(joined) != 1 || joined[0] != `{"roomId":"42"}` {
		t.Errorf("viverse:services_test - RoomJoined subscriber saw %v", joined)
	}
	if len(inRoom) != 1 || inRoom[0] != "RoomJoined" {
		t.Errorf("viverse:services_test - room-scoped subscriber saw %v", inRoom)
	}
	if len(all) != 2 {
		t.Errorf("viverse:services_test - category subscriber saw %v", all)
	}
}

func TestMultiplayer(t *testing.T) {
	host := newFakeHost("1.0.0")
	c := initializedClient(t, host, Options{})
	host.on(MethodConnectMultiplayer, func(any) reply { return ok("") })
	host.on(MethodSendMessage, func(any) reply { return ok("") })
	ctx := context.Background()

	if r := c.Multiplayer.Connect(ctx, ""); r.Code != result.CodeInvalidParameter {
		t.Errorf("viverse:services_test - empty room code = %v", r.Code)
	}
	if r := c.Multiplayer.Connect(ctx, "r1"); !r.IsSuccess() {
		t.Fatalf("viverse:services_test - Connect failed: %v", r.Code)
	}
	if r := c.Multiplayer.SendMessage(ctx, "hello"); !r.IsSuccess() {
		t.Fatalf("viverse:services_test - SendMessage failed: %v", r.Code)
	}

	var got []result.Result[Message]
	if r := c.Multiplayer.OnMessage(func(m result.Result[Message]) { got = append(got, m) }); !r.IsSuccess() {
		t.Fatalf("viverse:services_test - OnMessage failed: %s", r.Message)
	}

	host.push(`{"EventCategory":"multiplayer","EventType":"MessageReceived","EventData":{"senderId":"bob","content":"hi"},"Timestamp":77}`)
	host.push(`onMessageReceived|not json`)
	c.Reset()

	if len(got) != 3 {
		t.Fatalf("viverse:services_test - expected 3 deliveries, got %d", len(got))
	}
	if !got[0].IsSuccess() || got[0].Data.SenderID != "bob" || got[0].Data.Timestamp != 77 {
		t.Errorf("viverse:services_test - first message = %+v", got[0])
	}
	if got[1].Code != result.CodeParseFailure {
		t.Errorf("viverse:services_test - malformed message code = %v", got[1].Code)
	}
	if got[2].Code != result.CodeSdkNotInitialized {
		t.Errorf("viverse:services_test - reset notification code = %v", got[2].Code)
	}
}
