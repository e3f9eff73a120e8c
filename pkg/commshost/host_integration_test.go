package commshost_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	commsserver "github.com/nats-io/nats-server/v2/server"
	comms "github.com/nats-io/nats.go"

	"github.com/morezero/viverse-bridge/pkg/bridge"
	"github.com/morezero/viverse-bridge/pkg/commshost"
	"github.com/morezero/viverse-bridge/pkg/events"
	"github.com/morezero/viverse-bridge/pkg/hostsim"
	"github.com/morezero/viverse-bridge/pkg/result"
	"github.com/morezero/viverse-bridge/pkg/viverse"
)

const testPrefix = "commshost:host_integration_test"

func startTestServer(t *testing.T, port int) (*comms.Conn, func()) {
	t.Helper()

	ns, err := commsserver.NewServer(&commsserver.Options{
		Host:   "127.0.0.1",
		Port:   port,
		NoLog:  true,
		NoSigs: true,
	})
	if err != nil {
		t.Fatalf("%s - failed to create server: %v", testPrefix, err)
	}
	go ns.Start()
	if !ns.ReadyForConnections(10 * time.Second) {
		t.Fatalf("%s - server failed to start", testPrefix)
	}

	nc, err := comms.Connect(ns.ClientURL(), comms.Timeout(5*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("%s - failed to connect: %v", testPrefix, err)
	}
	return nc, func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	}
}

func newHost(t *testing.T, nc *comms.Conn) *commshost.Host {
	t.Helper()
	h, err := commshost.New(nc, commshost.Options{})
	if err != nil {
		t.Fatalf("%s - New: %v", testPrefix, err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h
}

func startSim(t *testing.T, nc *comms.Conn) *hostsim.Simulator {
	t.Helper()
	sim := hostsim.New(nc, hostsim.Options{SDKVersion: "1.4.2"})
	if err := sim.Start(); err != nil {
		t.Fatalf("%s - simulator Start: %v", testPrefix, err)
	}
	t.Cleanup(func() { _ = sim.Stop() })
	return sim
}

func TestClientOverComms(t *testing.T) {
	nc, cleanup := startTestServer(t, 14240)
	defer cleanup()

	sim := startSim(t, nc)
	sim.Handle(viverse.MethodGetAvatarList, hostsim.Static(hostsim.OK(`[{"id":"a","vrmUrl":"u"},{"id":""},null]`)))
	sim.Handle(viverse.MethodJoinRoom, func(_ context.Context, args json.RawMessage) hostsim.Response {
		var in struct {
			RoomID string `json:"roomId"`
		}
		_ = json.Unmarshal(args, &in)
		return hostsim.OK(map[string]any{"id": in.RoomID, "name": "lobby", "maxPlayers": 4})
	})

	host := newHost(t, nc)
	client := viverse.NewClient(host, viverse.Options{VersionConstraint: "^1.0.0", RequestTimeout: 5 * time.Second})
	ctx := context.Background()

	if r := client.Initialize(ctx, viverse.InitOptions{ClientID: "app"}); !r.IsSuccess() || r.Data.SDKVersion != "1.4.2" {
		t.Fatalf("%s - Initialize = %+v", testPrefix, r)
	}

	avatars := client.Avatar.GetAvatarList(ctx)
	if !avatars.IsSuccess() || len(avatars.Data) != 1 || avatars.Data[0].ID != "a" {
		t.Errorf("%s - GetAvatarList = %+v", testPrefix, avatars)
	}

	room := client.Matchmaking.JoinRoom(ctx, "42")
	if !room.IsSuccess() || room.Data.ID != "42" {
		t.Errorf("%s - JoinRoom = %+v", testPrefix, room)
	}

	if r := client.Leaderboard.GetLeaderboard(ctx, viverse.LeaderboardQuery{Name: "weekly"}); r.Code != result.CodeNotSupported {
		t.Errorf("%s - unhandled method code = %v, want NOT_SUPPORTED", testPrefix, r.Code)
	}
	if host.Waiting() != 0 {
		t.Errorf("%s - Waiting = %d after all replies", testPrefix, host.Waiting())
	}
}

func TestConcurrentCallsOverComms(t *testing.T) {
	nc, cleanup := startTestServer(t, 14241)
	defer cleanup()

	sim := startSim(t, nc)
	sim.Handle("echo", func(_ context.Context, args json.RawMessage) hostsim.Response {
		return hostsim.OK(string(args))
	})
	host := newHost(t, nc)
	b := bridge.New(bridge.Options{})

	const n = 32
	var wg sync.WaitGroup
	errs := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			r := b.Call(ctx, host.Func("echo", i))
			if !r.IsSuccess() || r.Data != jsonInt(i) {
				errs <- r.Data
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Errorf("%s - mismatched reply %q", testPrefix, e)
	}
}

func jsonInt(i int) string {
	b, _ := json.Marshal(i)
	return string(b)
}

func TestNoResponder(t *testing.T) {
	nc, cleanup := startTestServer(t, 14242)
	defer cleanup()

	host := newHost(t, nc)
	b := bridge.New(bridge.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	r := b.Call(ctx, host.Func("getSdkVersion", nil))
	if r.Code != result.CodeModuleNotLoaded {
		t.Errorf("%s - Code = %v (%s), want MODULE_NOT_LOADED", testPrefix, r.Code, r.Message)
	}
}

func TestPushEvents(t *testing.T) {
	nc, cleanup := startTestServer(t, 14243)
	defer cleanup()

	sim := startSim(t, nc)
	host := newHost(t, nc)
	client := viverse.NewClient(host, viverse.Options{})
	if r := client.Initialize(context.Background(), viverse.InitOptions{ClientID: "app"}); !r.IsSuccess() {
		t.Fatalf("%s - Initialize: %v %s", testPrefix, r.Code, r.Message)
	}
	if err := nc.Flush(); err != nil {
		t.Fatalf("%s - flush: %v", testPrefix, err)
	}

	got := make(chan events.Payload, 4)
	if r := client.Matchmaking.OnRoomEvent("42", "", func(res result.Result[events.Payload]) {
		if res.IsSuccess() {
			got <- res.Data
		}
	}); !r.IsSuccess() {
		t.Fatalf("%s - OnRoomEvent: %s", testPrefix, r.Message)
	}

	if err := sim.Emit(events.CategoryMatchmaking, "RoomCreated", map[string]string{"roomId": "42"}); err != nil {
		t.Fatalf("%s - Emit: %v", testPrefix, err)
	}
	if err := sim.Emit(events.CategoryMatchmaking, "RoomCreated", map[string]string{"roomId": "7"}); err != nil {
		t.Fatalf("%s - Emit: %v", testPrefix, err)
	}
	if err := sim.EmitLegacy("onActorJoined", `{"roomId":"42","actorId":"b"}`); err != nil {
		t.Fatalf("%s - EmitLegacy: %v", testPrefix, err)
	}

	for _, want := range []string{"RoomCreated", "ActorJoined"} {
		select {
		case ev := <-got:
			if ev.Type != want {
				t.Errorf("%s - event type = %s, want %s", testPrefix, ev.Type, want)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("%s - timed out waiting for %s", testPrefix, want)
		}
	}
	select {
	case ev := <-got:
		t.Errorf("%s - unexpected extra event %+v", testPrefix, ev)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	nc, cleanup := startTestServer(t, 14244)
	defer cleanup()

	host := newHost(t, nc)
	first := host.RegisterCallback(func(string) {})
	second := host.RegisterCallback(func(string) {})
	if first <= 0 || second <= 0 || first == second {
		t.Fatalf("%s - tokens = %d, %d", testPrefix, first, second)
	}
	if rc := host.Unregister(first); rc != 1 {
		t.Errorf("%s - Unregister = %d, want 1", testPrefix, rc)
	}
	if rc := host.Unregister(first); rc != -1 {
		t.Errorf("%s - second Unregister = %d, want -1", testPrefix, rc)
	}
	if rc := host.RegisterCallback(nil); rc != -2 {
		t.Errorf("%s - nil callback = %d, want -2", testPrefix, rc)
	}
}

func TestCloseFailsWaitingCalls(t *testing.T) {
	nc, cleanup := startTestServer(t, 14245)
	defer cleanup()

	sim := startSim(t, nc)
	release := make(chan struct{})
	defer close(release)
	sim.Handle("slow", func(context.Context, json.RawMessage) hostsim.Response {
		<-release
		return hostsim.OK("late")
	})

	host, err := commshost.New(nc, commshost.Options{})
	if err != nil {
		t.Fatalf("%s - New: %v", testPrefix, err)
	}
	b := bridge.New(bridge.Options{})
	call := b.Invoke(host.Func("slow", nil))

	deadline := time.Now().Add(5 * time.Second)
	for host.Waiting() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("%s - call never started waiting", testPrefix)
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := host.Close(); err != nil {
		t.Errorf("%s - Close: %v", testPrefix, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if r := call.Wait(ctx); r.Code != result.CodeInvalidState {
		t.Errorf("%s - Code = %v, want INVALID_STATE", testPrefix, r.Code)
	}
	if r := b.Call(ctx, host.Func("slow", nil)); r.Code != result.CodeException {
		t.Errorf("%s - call after Close code = %v, want EXCEPTION", testPrefix, r.Code)
	}
}
