package viverse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/morezero/viverse-bridge/pkg/bridge"
	"github.com/morezero/viverse-bridge/pkg/codec"
	"github.com/morezero/viverse-bridge/pkg/events"
	"github.com/morezero/viverse-bridge/pkg/journal"
	"github.com/morezero/viverse-bridge/pkg/result"
	"github.com/morezero/viverse-bridge/pkg/semver"
)

const logPrefix = "viverse:client"

// Options configures a Client. Zero values use defaults.
type Options struct {
	Logger   *slog.Logger
	Recorder journal.Recorder
	// VersionConstraint is the supported SDK range (e.g. ">=1.0.0"). Empty accepts any version.
	VersionConstraint string
	// RequestTimeout bounds each service call. Zero means only the caller's context applies.
	RequestTimeout time.Duration
}

// Client owns the bridge, the push event registry and the SDK lifecycle.
type Client struct {
	host       Host
	bridge     *bridge.Bridge
	events     *events.Registry
	log        *slog.Logger
	constraint string
	timeout    time.Duration

	// gate serializes Initialize and Reset.
	gate *semaphore.Weighted

	mu          sync.RWMutex
	initialized bool
	info        InitInfo
	token       int

	// lifecycle is cancelled by Reset to abort any Initialize started before it.
	lifecycle    context.Context
	endLifecycle context.CancelFunc

	Avatar      *AvatarService
	Leaderboard *LeaderboardService
	Matchmaking *MatchmakingService
	Multiplayer *MultiplayerService
}

// NewClient creates an uninitialized Client over host.
func NewClient(host Host, opts Options) *Client {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rec := opts.Recorder
	if rec == nil {
		rec = &journal.NoOpRecorder{}
	}

	c := &Client{
		host:       host,
		bridge:     bridge.New(bridge.Options{Logger: logger, Recorder: rec}),
		events:     events.NewRegistry(events.Options{Logger: logger, Recorder: rec}),
		log:        logger,
		constraint: opts.VersionConstraint,
		timeout:    opts.RequestTimeout,
		gate:       semaphore.NewWeighted(1),
	}
	c.lifecycle, c.endLifecycle = context.WithCancel(context.Background())
	c.Avatar = &AvatarService{c: c}
	c.Leaderboard = &LeaderboardService{c: c}
	c.Matchmaking = &MatchmakingService{c: c}
	c.Multiplayer = &MultiplayerService{c: c}
	return c
}

// Initialize checks the SDK version, initializes the SDK and installs the push
// event callback. Concurrent callers are serialized; once initialized further
// calls return the existing InitInfo without touching the host. A Reset issued
// while Initialize is running aborts it with InvalidState.
func (c *Client) Initialize(ctx context.Context, opts InitOptions) result.Result[InitInfo] {
	c.mu.RLock()
	life := c.lifecycle
	c.mu.RUnlock()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(life, cancel)
	defer stop()

	if err := c.gate.Acquire(ctx, 1); err != nil {
		return result.Failure[InitInfo](result.CodeInvalidState, fmt.Sprintf("initialize: %v", err))
	}
	defer c.gate.Release(1)

	c.mu.RLock()
	if c.initialized {
		info := c.info
		c.mu.RUnlock()
		return result.Success(info, "")
	}
	c.mu.RUnlock()

	if strings.TrimSpace(opts.ClientID) == "" {
		return result.Failure[InitInfo](result.CodeInvalidParameter, "client id is required")
	}
	if err := ctx.Err(); err != nil {
		return result.Failure[InitInfo](result.CodeInvalidState, err.Error())
	}

	c.log.Info(fmt.Sprintf("%s - Initializing SDK for client %s", logPrefix, opts.ClientID))

	reqCtx, reqCancel := c.requestContext(ctx)
	vr := c.bridge.Call(reqCtx, c.host.Func(MethodGetSDKVersion, nil))
	reqCancel()
	if !vr.IsSuccess() && vr.Code != result.CodeSdkReturnedNull {
		return result.FailureFrom[InitInfo](vr)
	}
	version := semver.NormalizeVersion(vr.Data)
	if err := semver.CheckSDKVersion(vr.Data, c.constraint); err != nil {
		switch {
		case errors.Is(err, semver.ErrVersionEmpty):
			return result.Failure[InitInfo](result.CodeSdkNotLoaded, "host reported no sdk version")
		case errors.Is(err, semver.ErrUnsupported):
			c.log.Warn(fmt.Sprintf("%s - %v", logPrefix, err))
			return result.Failure[InitInfo](result.CodeNotSupported, err.Error())
		default:
			return result.Failure[InitInfo](result.CodeInvalidParameter, err.Error())
		}
	}

	if err := ctx.Err(); err != nil {
		return result.Failure[InitInfo](result.CodeInvalidState, err.Error())
	}
	reqCtx, reqCancel = c.requestContext(ctx)
	ir := bridge.CallAck(reqCtx, c.bridge, c.host.Func(MethodInit, opts))
	reqCancel()
	if !ir.IsSuccess() {
		c.log.Warn(fmt.Sprintf("%s - SDK init failed: %s %s", logPrefix, ir.Code, ir.Message))
		return result.FailureFrom[InitInfo](ir)
	}

	if err := ctx.Err(); err != nil {
		return result.Failure[InitInfo](result.CodeInvalidState, err.Error())
	}
	token := c.host.RegisterCallback(c.events.Dispatch)
	if token <= 0 {
		code := result.FromReturnCode(token)
		if code == result.CodeNotSet {
			code = result.CodeInvalidState
		}
		return result.Failure[InitInfo](code, fmt.Sprintf("push callback registration failed with %d", token))
	}

	info := InitInfo{SDKVersion: version, ClientID: opts.ClientID}
	c.mu.Lock()
	c.initialized = true
	c.info = info
	c.token = token
	c.mu.Unlock()

	c.log.Info(fmt.Sprintf("%s - SDK %s initialized", logPrefix, version))
	return result.Success(info, vr.RawPayload)
}

// Initialized reports whether Initialize has completed since the last Reset.
func (c *Client) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// CheckAuth returns the current sign-in state.
func (c *Client) CheckAuth(ctx context.Context) result.Result[AuthInfo] {
	return call[AuthInfo](ctx, c, MethodCheckAuth, nil)
}

// Logout signs the user out and then resets the client.
func (c *Client) Logout(ctx context.Context) result.Result[struct{}] {
	r := callAck(ctx, c, MethodLogout, nil)
	if r.IsSuccess() {
		c.Reset()
	}
	return r
}

// Reset drops all event subscriptions, removes the push callback and requires
// a new Initialize. An Initialize in progress is aborted rather than awaited.
// Calls already in flight still complete.
func (c *Client) Reset() {
	c.mu.Lock()
	c.endLifecycle()
	c.lifecycle, c.endLifecycle = context.WithCancel(context.Background())
	c.mu.Unlock()

	_ = c.gate.Acquire(context.Background(), 1)
	defer c.gate.Release(1)

	c.mu.Lock()
	token := c.token
	wasInitialized := c.initialized
	c.initialized = false
	c.info = InitInfo{}
	c.token = 0
	c.mu.Unlock()

	if token > 0 {
		if rc := c.host.Unregister(token); rc != 1 {
			c.log.Warn(fmt.Sprintf("%s - unregister push callback %d returned %d", logPrefix, token, rc))
		}
	}
	c.events.Reset()

	if wasInitialized {
		c.log.Info(fmt.Sprintf("%s - Client reset", logPrefix))
	}
}

// Events returns the push event registry for raw subscriptions.
func (c *Client) Events() *events.Registry {
	return c.events
}

// Stats reports the client's current state.
func (c *Client) Stats() Stats {
	c.mu.RLock()
	s := Stats{Initialized: c.initialized, SDKVersion: c.info.SDKVersion}
	c.mu.RUnlock()
	s.PendingCalls = c.bridge.Pending()
	s.Subscriptions = c.events.Len()
	return s
}

func (c *Client) requestContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func notInitialized[T any](method string) result.Result[T] {
	return result.Failure[T](result.CodeSdkNotInitialized, fmt.Sprintf("%s called before initialize", method))
}

func call[T any](ctx context.Context, c *Client, method string, args any) result.Result[T] {
	if !c.Initialized() {
		return notInitialized[T](method)
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	return bridge.CallTyped[T](ctx, c.bridge, c.host.Func(method, args))
}

func callList[T codec.Identified](ctx context.Context, c *Client, method string, args any, fields ...string) result.Result[[]T] {
	if !c.Initialized() {
		return notInitialized[[]T](method)
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	return bridge.CallList[T](ctx, c.bridge, c.host.Func(method, args), fields...)
}

func callAck(ctx context.Context, c *Client, method string, args any) result.Result[struct{}] {
	if !c.Initialized() {
		return notInitialized[struct{}](method)
	}
	ctx, cancel := c.requestContext(ctx)
	defer cancel()
	return bridge.CallAck(ctx, c.bridge, c.host.Func(method, args))
}
