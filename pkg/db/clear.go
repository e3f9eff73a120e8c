package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const clearLogPrefix = "db:clear"

// ClearJournal removes every journal entry. The schema is preserved and the id
// sequence restarts.
func ClearJournal(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info(fmt.Sprintf("%s - Clearing %s", clearLogPrefix, journalTable))

	if _, err := pool.Exec(ctx, `TRUNCATE TABLE bridge_journal RESTART IDENTITY`); err != nil {
		return fmt.Errorf("%s - truncate failed: %w", clearLogPrefix, err)
	}

	slog.Info(fmt.Sprintf("%s - Journal cleared", clearLogPrefix))
	return nil
}
