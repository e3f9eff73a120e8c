package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/viverse-bridge/pkg/journal"
)

const repoLogPrefix = "db:journal"

// StoredEntry is a journal entry read back from the database.
type StoredEntry struct {
	ID int64
	journal.Entry
}

// JournalRepository provides database access for the diagnostics journal.
type JournalRepository struct {
	pool *pgxpool.Pool
}

// NewJournalRepository creates a JournalRepository with the given connection pool.
func NewJournalRepository(pool *pgxpool.Pool) *JournalRepository {
	return &JournalRepository{pool: pool}
}

// InsertEntry stores one entry and returns its id.
func (r *JournalRepository) InsertEntry(ctx context.Context, e *journal.Entry) (int64, error) {
	created := e.Created
	if created.IsZero() {
		created = time.Now().UTC()
	}

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO bridge_journal (kind, call_id, subscription_id, event_type, message, raw, created)
		 VALUES ($1, NULLIF($2::bigint, 0), NULLIF($3, ''), NULLIF($4, ''), $5, NULLIF($6, ''), $7)
		 RETURNING id`,
		string(e.Kind), e.CallID, e.SubscriptionID, e.EventType, e.Message, e.Raw, created).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("%s - insert %s entry: %w", repoLogPrefix, e.Kind, err)
	}
	return id, nil
}

// ListRecent returns up to limit entries, newest first. An empty kind matches every kind.
func (r *JournalRepository) ListRecent(ctx context.Context, kind journal.Kind, limit int) ([]StoredEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, kind, COALESCE(call_id, 0), COALESCE(subscription_id, ''), COALESCE(event_type, ''),
		        message, COALESCE(raw, ''), created
		 FROM bridge_journal
		 WHERE $1 = '' OR kind = $1
		 ORDER BY created DESC, id DESC
		 LIMIT $2`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("%s - list entries: %w", repoLogPrefix, err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (StoredEntry, error) {
		var s StoredEntry
		var k string
		err := row.Scan(&s.ID, &k, &s.CallID, &s.SubscriptionID, &s.EventType, &s.Message, &s.Raw, &s.Created)
		s.Kind = journal.Kind(k)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("%s - scan entries: %w", repoLogPrefix, err)
	}
	return entries, nil
}

// CountByKind returns the number of stored entries per kind.
func (r *JournalRepository) CountByKind(ctx context.Context) (map[journal.Kind]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT kind, COUNT(*) FROM bridge_journal GROUP BY kind`)
	if err != nil {
		return nil, fmt.Errorf("%s - count entries: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	counts := make(map[journal.Kind]int64)
	for rows.Next() {
		var kind string
		var n int64
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("%s - scan count: %w", repoLogPrefix, err)
		}
		counts[journal.Kind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - count entries: %w", repoLogPrefix, err)
	}
	return counts, nil
}

// JournalRecorder is a journal.Recorder backed by a JournalRepository.
type JournalRecorder struct {
	repo *JournalRepository
}

// NewJournalRecorder creates a JournalRecorder.
func NewJournalRecorder(repo *JournalRepository) *JournalRecorder {
	return &JournalRecorder{repo: repo}
}

// Record stores entry.
func (r *JournalRecorder) Record(ctx context.Context, entry *journal.Entry) error {
	id, err := r.repo.InsertEntry(ctx, entry)
	if err != nil {
		return err
	}
	slog.Debug(fmt.Sprintf("%s - Recorded %s entry %d", repoLogPrefix, entry.Kind, id))
	return nil
}

// DeleteOlderThan removes entries created before cutoff and returns how many were removed.
func (r *JournalRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM bridge_journal WHERE created < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s - delete entries before %s: %w", repoLogPrefix, cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
