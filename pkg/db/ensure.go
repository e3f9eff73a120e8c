package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const ensureLogPrefix = "db:ensure"

// safeDBName matches allowed database names (alphanumeric and underscore only).
var safeDBName = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// DatabaseName returns the database named in databaseURL.
func DatabaseName(databaseURL string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	name := strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	if name == "" {
		return "", fmt.Errorf("%s - database name empty in URL", ensureLogPrefix)
	}
	if !safeDBName.MatchString(name) {
		return "", fmt.Errorf("%s - database name %q contains invalid characters", ensureLogPrefix, name)
	}
	return name, nil
}

// EnsureDatabase creates the database named in databaseURL if it does not
// exist. It connects through the server's "postgres" database to do so.
func EnsureDatabase(ctx context.Context, databaseURL string) error {
	dbname, err := DatabaseName(databaseURL)
	if err != nil {
		return err
	}
	u, _ := url.Parse(databaseURL)

	config, err := pgxpool.ParseConfig(buildPostgresURL(u))
	if err != nil {
		return fmt.Errorf("%s - failed to parse postgres URL: %w", ensureLogPrefix, err)
	}
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return fmt.Errorf("%s - failed to connect to postgres: %w", ensureLogPrefix, err)
	}
	defer pool.Close()

	var exists bool
	err = pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, dbname).Scan(&exists)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s - failed to check database: %w", ensureLogPrefix, err)
	}
	if exists {
		slog.Info(fmt.Sprintf("%s - Database %q already exists", ensureLogPrefix, dbname))
		return nil
	}

	slog.Info(fmt.Sprintf("%s - Creating database %q", ensureLogPrefix, dbname))
	if _, err := pool.Exec(ctx, fmt.Sprintf("CREATE DATABASE %s", quoteIdent(dbname))); err != nil {
		return fmt.Errorf("%s - CREATE DATABASE failed: %w", ensureLogPrefix, err)
	}
	return nil
}

// WithDatabaseName returns databaseURL pointing at a different database.
func WithDatabaseName(databaseURL, name string) (string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", fmt.Errorf("%s - invalid database URL: %w", ensureLogPrefix, err)
	}
	if !safeDBName.MatchString(name) {
		return "", fmt.Errorf("%s - database name %q contains invalid characters", ensureLogPrefix, name)
	}
	u.Path = "/" + name
	return u.String(), nil
}

func buildPostgresURL(u *url.URL) string {
	postgres := *u
	postgres.Path = "/postgres"
	return postgres.String()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
