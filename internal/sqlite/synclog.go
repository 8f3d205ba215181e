package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
)

// SyncLogRepository implements repository.SyncLogRepository for SQLite
type SyncLogRepository struct {
	db *DB
}

// NewSyncLogRepository creates a new SyncLogRepository
func NewSyncLogRepository(db *DB) *SyncLogRepository {
	return &SyncLogRepository{db: db}
}

// Open appends a new entry with status running and returns its id.
func (r *SyncLogRepository) Open(ctx context.Context, startedAt time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO sync_log (started_at, status, details) VALUES (?, ?, '')`,
		startedAt, health.SyncStatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to open sync log entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read sync log id: %w", err)
	}
	return id, nil
}

// Close finalizes a running entry with its outcome.
func (r *SyncLogRepository) Close(ctx context.Context, id int64, endedAt time.Time, status health.SyncStatus, details string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE sync_log SET ended_at = ?, status = ?, details = ? WHERE id = ?`,
		endedAt, status, details, id,
	)
	if err != nil {
		return fmt.Errorf("failed to close sync log entry: %w", err)
	}
	return nil
}

// ListRecent returns the newest entries first.
func (r *SyncLogRepository) ListRecent(ctx context.Context, limit int) ([]health.SyncLogEntry, error) {
	query := `
		SELECT id, started_at, ended_at, status, details
		FROM sync_log
		ORDER BY started_at DESC, id DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync log: %w", err)
	}
	defer rows.Close()

	var entries []health.SyncLogEntry
	for rows.Next() {
		var entry health.SyncLogEntry
		var endedAt sql.NullTime
		if err := rows.Scan(&entry.ID, &entry.StartedAt, &endedAt, &entry.Status, &entry.Details); err != nil {
			return nil, fmt.Errorf("failed to scan sync log entry: %w", err)
		}
		if endedAt.Valid {
			t := endedAt.Time
			entry.EndedAt = &t
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync log rows: %w", err)
	}

	return entries, nil
}
