package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	retentionLogPrefix = "server:retention"
	pruneTimeout       = 30 * time.Second
)

// journalPruner deletes journal entries older than a cutoff.
type journalPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// newRetentionScheduler returns a stopped cron that prunes entries older than
// retention on schedule (standard cron syntax or a descriptor such as "@hourly").
func newRetentionScheduler(p journalPruner, schedule string, retention time.Duration) (*cron.Cron, error) {
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		pruneJournal(context.Background(), p, retention, time.Now)
	}); err != nil {
		return nil, fmt.Errorf("%s - invalid prune schedule %q: %w", retentionLogPrefix, schedule, err)
	}
	return c, nil
}

// pruneJournal runs one retention pass and returns how many entries were removed.
func pruneJournal(ctx context.Context, p journalPruner, retention time.Duration, now func() time.Time) int64 {
	ctx, cancel := context.WithTimeout(ctx, pruneTimeout)
	defer cancel()

	cutoff := now().Add(-retention)
	n, err := p.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - prune failed: %v", retentionLogPrefix, err))
		return 0
	}
	if n > 0 {
		slog.Info(fmt.Sprintf("%s - Pruned %d journal entries older than %s", retentionLogPrefix, n, cutoff.Format(time.RFC3339)))
	}
	return n
}
