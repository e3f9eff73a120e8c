// Package server orchestrates all components: COMMS host, SDK client, journal DB, event forwarding, HTTP health.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	comms "github.com/nats-io/nats.go"
	"github.com/robfig/cron/v3"

	"github.com/morezero/viverse-bridge/internal/config"
	"github.com/morezero/viverse-bridge/pkg/bridge"
	"github.com/morezero/viverse-bridge/pkg/commshost"
	"github.com/morezero/viverse-bridge/pkg/commsutil"
	"github.com/morezero/viverse-bridge/pkg/db"
	"github.com/morezero/viverse-bridge/pkg/events"
	"github.com/morezero/viverse-bridge/pkg/journal"
	"github.com/morezero/viverse-bridge/pkg/viverse"
)

const logPrefix = "server:server"

const defaultJournalLimit = 50

// clientForServer is the part of viverse.Client the server uses after start.
type clientForServer interface {
	Stats() viverse.Stats
	Reset()
}

// journalForServer is the part of db.JournalRepository the HTTP handlers read.
type journalForServer interface {
	CountByKind(ctx context.Context) (map[journal.Kind]int64, error)
	ListRecent(ctx context.Context, kind journal.Kind, limit int) ([]db.StoredEntry, error)
}

// HealthChecks reports each dependency's state.
type HealthChecks struct {
	COMMS   bool  `json:"comms"`
	SDK     bool  `json:"sdk"`
	Journal *bool `json:"journal,omitempty"`
}

// JournalGuardStatus reports the journal write guard.
type JournalGuardStatus struct {
	State   string `json:"state"`
	Dropped int64  `json:"dropped"`
}

// HealthOutput is the /health response body.
type HealthOutput struct {
	Status       string                 `json:"status"`
	Checks       HealthChecks           `json:"checks"`
	Client       viverse.Stats          `json:"client"`
	Journal      map[journal.Kind]int64 `json:"journal,omitempty"`
	JournalGuard *JournalGuardStatus    `json:"journalGuard,omitempty"`
	Timestamp    string                 `json:"timestamp"`
}

// Server is the viverse-bridge orchestrator.
type Server struct {
	cfg        *config.Config
	nc         *comms.Conn
	pool       *pgxpool.Pool
	httpServer *http.Server
	host       *commshost.Host
	client     clientForServer
	journal    journalForServer
	guard      *journal.GuardedRecorder
	retention  *cron.Cron
	commsUp    func() bool
}

// Run starts the bridge, blocks until shutdown signal, then cleans up.
func Run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("%s - failed to load config: %w", logPrefix, err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	if err := cfg.ValidateForServe(); err != nil {
		return err
	}

	slog.Info(fmt.Sprintf("%s - Starting viverse-bridge", logPrefix))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s, err := start(ctx, cfg, nil)
	if err != nil {
		return err
	}

	go func() {
		slog.Info(fmt.Sprintf("%s - HTTP health server listening on %s", logPrefix, s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error(fmt.Sprintf("%s - HTTP server error: %v", logPrefix, err))
		}
	}()

	slog.Info(fmt.Sprintf("%s - viverse-bridge is ready", logPrefix))

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("%s - Received signal %s, shutting down", logPrefix, sig))

	s.shutdown(ctx)

	slog.Info(fmt.Sprintf("%s - Shutdown complete", logPrefix))
	return nil
}

// start wires every component and initializes the SDK. The HTTP server is
// built but not listening. A non-nil nc is used instead of dialing COMMS_URL.
func start(ctx context.Context, cfg *config.Config, nc *comms.Conn) (*Server, error) {
	s := &Server{cfg: cfg}

	// Step 1: Connect to COMMS
	if nc == nil {
		var err error
		nc, err = commsutil.Connect(cfg.COMMSURL, cfg.COMMSName)
		if err != nil {
			return nil, fmt.Errorf("%s - failed to connect to COMMS: %w", logPrefix, err)
		}
	}
	s.nc = nc
	s.commsUp = nc.IsConnected

	// Step 2: Optional journal database
	var recorder journal.Recorder = &journal.NoOpRecorder{}
	if cfg.JournalEnabled() {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			s.closeAll()
			return nil, fmt.Errorf("%s - failed to connect to database: %w", logPrefix, err)
		}
		s.pool = pool

		if cfg.RunMigrations {
			migrations, err := db.LoadMigrations(cfg.MigrationPath)
			if err != nil {
				s.closeAll()
				return nil, fmt.Errorf("%s - failed to load migrations: %w", logPrefix, err)
			}
			if err := db.RunMigrations(ctx, pool, migrations); err != nil {
				s.closeAll()
				return nil, fmt.Errorf("%s - failed to run migrations: %w", logPrefix, err)
			}
		}

		repo := db.NewJournalRepository(pool)
		s.journal = repo
		s.guard = journal.NewGuardedRecorder(db.NewJournalRecorder(repo), journal.GuardOptions{
			MaxFailures:   cfg.JournalBreakerFailures,
			OpenTimeout:   cfg.JournalBreakerTimeout,
			RatePerSecond: cfg.JournalRatePerSec,
			Burst:         cfg.JournalBurst,
		})
		recorder = s.guard
		bridge.SetOrphanRecorder(recorder)

		if cfg.PruneEnabled() {
			s.retention, err = newRetentionScheduler(repo, cfg.JournalPruneSchedule, cfg.JournalRetention)
			if err != nil {
				s.closeAll()
				return nil, err
			}
		}
		slog.Info(fmt.Sprintf("%s - Diagnostics journal enabled", logPrefix))
	} else {
		slog.Info(fmt.Sprintf("%s - DATABASE_URL not set, diagnostics journal disabled", logPrefix))
	}

	// Step 3: Host transport
	host, err := commshost.New(nc, commshost.Options{
		SubjectPrefix: cfg.HostSubjectPrefix,
		EventSubject:  cfg.EventSubject,
	})
	if err != nil {
		s.closeAll()
		return nil, fmt.Errorf("%s - failed to create host transport: %w", logPrefix, err)
	}
	s.host = host

	// Step 4: Initialize the SDK
	client := viverse.NewClient(host, viverse.Options{
		Recorder:          recorder,
		VersionConstraint: cfg.VersionConstraint,
		RequestTimeout:    cfg.RequestTimeout,
	})
	s.client = client

	initCtx, initCancel := context.WithTimeout(ctx, cfg.InitTimeout)
	res := client.Initialize(initCtx, viverse.InitOptions{ClientID: cfg.ClientID})
	initCancel()
	if !res.IsSuccess() {
		s.closeAll()
		return nil, fmt.Errorf("%s - SDK initialize failed: %s %s", logPrefix, res.Code, res.Message)
	}

	// Step 5: Forward every push event category to COMMS
	forwarder := events.NewCommsForwarder(nc, &events.CommsForwarderOpts{
		SubjectPrefix: cfg.ForwardEventPrefix,
		GlobalSubject: cfg.ForwardEventSubject,
	})
	for _, category := range events.Categories() {
		if sub := client.Events().Subscribe(category, events.Forwarding(forwarder)); !sub.IsSuccess() {
			client.Reset()
			s.closeAll()
			return nil, fmt.Errorf("%s - failed to forward %s events: %s", logPrefix, category, sub.Message)
		}
	}
	slog.Info(fmt.Sprintf("%s - Forwarding %d event categories", logPrefix, len(events.Categories())))

	if s.retention != nil {
		s.retention.Start()
		slog.Info(fmt.Sprintf("%s - Journal retention %s on schedule %q", logPrefix, cfg.JournalRetention, cfg.JournalPruneSchedule))
	}

	s.httpServer = &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: s.routes()}
	return s, nil
}

// shutdown resets the client, stops HTTP and releases every connection.
func (s *Server) shutdown(ctx context.Context) {
	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.HealthCheckTimeout)
	defer cancel()
	if s.retention != nil {
		<-s.retention.Stop().Done()
	}
	if s.client != nil {
		s.client.Reset()
	}
	if s.httpServer != nil {
		s.httpServer.Shutdown(shutdownCtx)
	}
	s.closeAll()
}

// closeAll releases the host transport, the COMMS connection and the pool, whichever exist.
func (s *Server) closeAll() {
	if s.host != nil {
		if err := s.host.Close(); err != nil {
			slog.Warn(fmt.Sprintf("%s - host close: %v", logPrefix, err))
		}
	}
	if s.nc != nil {
		if err := s.nc.Drain(); err != nil {
			s.nc.Close()
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth())
	mux.HandleFunc("/ready", s.handleReady())
	mux.HandleFunc("/journal", s.handleJournal())
	return mux
}

// health gathers the current HealthOutput.
func (s *Server) health(ctx context.Context) *HealthOutput {
	stats := s.client.Stats()
	out := &HealthOutput{
		Checks: HealthChecks{
			COMMS: s.commsUp == nil || s.commsUp(),
			SDK:   stats.Initialized,
		},
		Client:    stats,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if s.journal != nil {
		counts, err := s.journal.CountByKind(ctx)
		ok := err == nil
		if !ok {
			slog.Warn(fmt.Sprintf("%s - journal health check failed: %v", logPrefix, err))
		}
		out.Checks.Journal = &ok
		out.Journal = counts
	}
	if s.guard != nil {
		out.JournalGuard = &JournalGuardStatus{State: s.guard.State(), Dropped: s.guard.Dropped()}
	}

	out.Status = "healthy"
	if !out.Checks.COMMS || !out.Checks.SDK || (out.Checks.Journal != nil && !*out.Checks.Journal) {
		out.Status = "unhealthy"
	}
	return out
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		h := s.health(ctx)
		w.Header().Set("Content-Type", "application/json")
		if h.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(h)
	}
}

func (s *Server) handleReady() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if !s.client.Stats().Initialized {
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "initializing"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ready"})
	}
}

// handleJournal lists recent diagnostics. Query: kind (optional), limit (default 50).
func (s *Server) handleJournal() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if s.journal == nil {
			http.Error(w, "journal disabled", http.StatusNotFound)
			return
		}

		limit := defaultJournalLimit
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
				return
			}
			limit = n
		}

		ctx, cancel := context.WithTimeout(r.Context(), s.cfg.HealthCheckTimeout)
		defer cancel()
		entries, err := s.journal.ListRecent(ctx, journal.Kind(r.URL.Query().Get("kind")), limit)
		if err != nil {
			slog.Error(fmt.Sprintf("%s - list journal: %v", logPrefix, err))
			http.Error(w, "journal unavailable", http.StatusServiceUnavailable)
			return
		}
		if entries == nil {
			entries = []db.StoredEntry{}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(entries)
	}
}
