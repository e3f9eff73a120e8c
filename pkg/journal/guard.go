package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

const guardLogPrefix = "journal:guard"

// Default guard settings.
const (
	defaultGuardMaxFailures uint32        = 5
	defaultGuardOpenTimeout time.Duration = 30 * time.Second
	defaultGuardInterval    time.Duration = 60 * time.Second
	defaultGuardRate        float64       = 50
	defaultGuardBurst       int           = 100
)

// ErrRateLimited is returned when an entry is discarded by the rate limiter.
var ErrRateLimited = errors.New("journal rate limit exceeded")

// ErrUnavailable is returned while the store's circuit is open.
var ErrUnavailable = errors.New("journal store unavailable")

// GuardOptions configures a GuardedRecorder. Zero values use defaults.
type GuardOptions struct {
	// MaxFailures is the number of consecutive store failures before the circuit opens.
	MaxFailures uint32
	// OpenTimeout is how long the circuit stays open before a probe is allowed.
	OpenTimeout time.Duration
	// Interval clears failure counts while the circuit is closed.
	Interval time.Duration
	// RatePerSecond and Burst bound how many entries reach the store.
	RatePerSecond float64
	Burst         int
	Logger        *slog.Logger
}

// GuardedRecorder bounds the entries reaching a Recorder and fails fast while
// the underlying store keeps failing.
type GuardedRecorder struct {
	inner   Recorder
	breaker *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
	dropped atomic.Int64
}

// NewGuardedRecorder wraps inner with a rate limiter and a circuit breaker.
func NewGuardedRecorder(inner Recorder, opts GuardOptions) *GuardedRecorder {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	maxFailures := opts.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultGuardMaxFailures
	}
	openTimeout := opts.OpenTimeout
	if openTimeout == 0 {
		openTimeout = defaultGuardOpenTimeout
	}
	interval := opts.Interval
	if interval == 0 {
		interval = defaultGuardInterval
	}
	perSecond := opts.RatePerSecond
	if perSecond <= 0 {
		perSecond = defaultGuardRate
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = defaultGuardBurst
	}

	cb := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "journal",
		MaxRequests: 1,
		Interval:    interval,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(fmt.Sprintf("%s - circuit %s changed from %s to %s", guardLogPrefix, name, from, to))
		},
	})

	return &GuardedRecorder{
		inner:   inner,
		breaker: cb,
		limiter: rate.NewLimiter(rate.Limit(perSecond), burst),
	}
}

// Record forwards entry to the wrapped Recorder unless the rate limit is
// exhausted or the circuit is open.
func (g *GuardedRecorder) Record(ctx context.Context, entry *Entry) error {
	if !g.limiter.Allow() {
		g.dropped.Add(1)
		return ErrRateLimited
	}
	_, err := g.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, g.inner.Record(ctx, entry)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		g.dropped.Add(1)
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}

// Dropped returns how many entries never reached the wrapped Recorder.
func (g *GuardedRecorder) Dropped() int64 {
	return g.dropped.Load()
}

// State returns the circuit state, e.g. "open".
func (g *GuardedRecorder) State() string {
	return g.breaker.State().String()
}
