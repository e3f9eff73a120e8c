// Package main is the entrypoint for viverse-bridge.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/morezero/viverse-bridge/internal/config"
	"github.com/morezero/viverse-bridge/internal/server"
	"github.com/morezero/viverse-bridge/pkg/commsutil"
	"github.com/morezero/viverse-bridge/pkg/db"
	"github.com/morezero/viverse-bridge/pkg/hostsim"
)

const usage = `Usage: viverse-bridge [command]
       viverse-bridge serve               Start the bridge (COMMS host, SDK client, event forwarding, HTTP health).
       viverse-bridge simulate [file]     Serve simulated host answers on COMMS (fixtures from file or SIM_FIXTURES_FILE).
       viverse-bridge migrate up          Create the diagnostics journal schema.
       viverse-bridge migrate status      Show migration status.
       viverse-bridge ensure-db [name]    Create database if missing (default name: viverse_bridge_test). Uses DATABASE_URL host/user.
       viverse-bridge clear               Truncate the diagnostics journal; schema is preserved.
       viverse-bridge prune               Delete journal entries older than JOURNAL_RETENTION.

Commands:
  serve            (default) Initialize the SDK through COMMS and forward its push events.
  simulate [file]  Answer host calls without a browser, for local runs and tests.
  migrate up       Run database migrations only.
  migrate status   Show current migration status.
  ensure-db [name] Create database on same host as DATABASE_URL; then run tests with that URL.
  clear            Truncate journal data; schema preserved.
  prune            One retention pass (serve also prunes on JOURNAL_PRUNE_SCHEDULE).

Environment: VIVERSE_CLIENT_ID (serve), COMMS_URL, DATABASE_URL (optional for serve, required for migrate/clear),
MIGRATION_PATH, JOURNAL_RETENTION, HTTP_PORT (default 8080), SDK_VERSION_CONSTRAINT, SIM_FIXTURES_FILE. See README.
`

func main() {
	args := os.Args[1:]
	cmd := ""
	if len(args) > 0 && args[0] != "" {
		cmd = args[0]
	}

	switch cmd {
	case "migrate":
		if len(args) < 2 {
			log.Fatalf("viverse-bridge migrate: require subcommand (up, status)")
		}
		sub := args[1]
		switch sub {
		case "up":
			if err := runMigrateUp(); err != nil {
				log.Fatalf("viverse-bridge migrate up: %v", err)
			}
		case "status":
			if err := runMigrateStatus(); err != nil {
				log.Fatalf("viverse-bridge migrate status: %v", err)
			}
		default:
			log.Fatalf("viverse-bridge migrate: unknown subcommand %q (use up, status)", sub)
		}
		return
	case "clear":
		if err := runClear(); err != nil {
			log.Fatalf("viverse-bridge clear: %v", err)
		}
		return
	case "prune":
		if err := runPrune(); err != nil {
			log.Fatalf("viverse-bridge prune: %v", err)
		}
		return
	case "ensure-db":
		dbName := "viverse_bridge_test"
		if len(args) > 1 && args[1] != "" {
			dbName = args[1]
		}
		if err := runEnsureDB(dbName); err != nil {
			log.Fatalf("viverse-bridge ensure-db: %v", err)
		}
		return
	case "simulate":
		fixtures := ""
		if len(args) > 1 {
			fixtures = args[1]
		}
		if err := runSimulate(fixtures); err != nil {
			log.Fatalf("viverse-bridge simulate: %v", err)
		}
		return
	case "help", "-h", "--help":
		fmt.Print(usage)
		return
	case "serve", "":
		break
	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q.\n%s", cmd, usage)
		os.Exit(1)
	}

	if err := server.Run(); err != nil {
		log.Fatalf("viverse-bridge: %v", err)
	}
}

func loadDBConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateForDB(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runMigrateUp() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	migrations, err := db.LoadMigrations(cfg.MigrationPath)
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	if err := db.RunMigrations(ctx, pool, migrations); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func runMigrateStatus() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	return db.MigrationStatus(ctx, pool, cfg.MigrationPath)
}

func runClear() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := db.ClearJournal(ctx, pool); err != nil {
		return fmt.Errorf("clear journal: %w", err)
	}
	return nil
}

func runPrune() error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	if cfg.JournalRetention <= 0 {
		return fmt.Errorf("JOURNAL_RETENTION must be positive")
	}
	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	cutoff := time.Now().Add(-cfg.JournalRetention)
	n, err := db.NewJournalRepository(pool).DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return err
	}
	fmt.Printf("Pruned %d journal entries created before %s.\n", n, cutoff.Format(time.RFC3339))
	return nil
}

func runEnsureDB(dbName string) error {
	cfg, err := loadDBConfig()
	if err != nil {
		return err
	}
	targetURL, err := db.WithDatabaseName(cfg.DatabaseURL, dbName)
	if err != nil {
		return err
	}
	if err := db.EnsureDatabase(context.Background(), targetURL); err != nil {
		return err
	}
	fmt.Printf("Database %q is ready.\n", dbName)
	return nil
}

func runSimulate(fixturesOverride string) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	nc, err := commsutil.Connect(cfg.COMMSURL, cfg.COMMSName+"-sim")
	if err != nil {
		return err
	}
	defer nc.Drain()

	sim := hostsim.New(nc, hostsim.Options{
		SubjectPrefix: cfg.HostSubjectPrefix,
		EventSubject:  cfg.EventSubject,
	})

	fixtures := fixturesOverride
	if fixtures == "" {
		fixtures = cfg.SimFixturesFile
	}
	if fixtures != "" {
		if err := sim.LoadFixtures(fixtures); err != nil {
			return err
		}
		slog.Info(fmt.Sprintf("cmd:simulate - Loaded fixtures from %s", fixtures))
	}

	if err := sim.Start(); err != nil {
		return err
	}
	defer sim.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	slog.Info(fmt.Sprintf("cmd:simulate - Received signal %s, stopping", sig))
	return nil
}
