// Package db stores the bridge diagnostics journal in Postgres via pgx.
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const logPrefix = "db:pool"

// journalTable is created by the first migration.
const journalTable = "bridge_journal"

// NewPool creates a pgx connection pool from the given database URL. Journal
// writes are small and infrequent, so the pool is kept narrow.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	slog.Info(fmt.Sprintf("%s - Connecting to database", logPrefix))

	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to parse database URL: %w", logPrefix, err)
	}
	config.MaxConns = 4
	config.MinConns = 1
	if config.ConnConfig.RuntimeParams["application_name"] == "" {
		config.ConnConfig.RuntimeParams["application_name"] = "viverse-bridge"
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create pool: %w", logPrefix, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%s - failed to ping database: %w", logPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Database connection established", logPrefix))
	return pool, nil
}

// RunMigrations applies migrations in order. Every migration must be idempotent.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool, migrations []Migration) error {
	slog.Info(fmt.Sprintf("%s - Running %d migrations", logPrefix, len(migrations)))

	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			return fmt.Errorf("%s - migration %s failed: %w", logPrefix, m.Name, err)
		}
		slog.Debug(fmt.Sprintf("%s - Applied %s", logPrefix, m.Name))
	}

	slog.Info(fmt.Sprintf("%s - Migrations complete", logPrefix))
	return nil
}

// MigrationStatus prints whether the journal schema is present.
func MigrationStatus(ctx context.Context, pool *pgxpool.Pool, migrationPath string) error {
	var exists bool
	err := pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_schema = 'public' AND table_name = $1)`,
		journalTable).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%s - failed to check schema: %w", logPrefix, err)
	}

	migrations, err := LoadMigrations(migrationPath)
	if err != nil {
		return fmt.Errorf("%s - load migration list: %w", logPrefix, err)
	}

	state := "not applied (run 'viverse-bridge migrate up')"
	if exists {
		state = "applied"
	}
	fmt.Printf("Migration status: %s\n", state)
	for _, m := range migrations {
		fmt.Printf("  %s\n", m.Name)
	}
	return nil
}
