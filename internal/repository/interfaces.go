package repository

import (
	"context"
	"time"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
	"github.com/MightComeback/garmin-health-sync/internal/garmin"
)

// SessionStore persists the single external-service session.
type SessionStore interface {
	// Load returns the stored session if present and unexpired; otherwise
	// ErrNotFound. It never mutates state.
	Load(ctx context.Context) (*garmin.Session, error)
	// Save overwrites the stored session.
	Save(ctx context.Context, sess *garmin.Session) error
	// Clear removes the stored session.
	Clear(ctx context.Context) error
}

// ActivityRepository manages activity persistence. Upsert has full-row
// insert-or-replace semantics keyed by (provider, id).
type ActivityRepository interface {
	Upsert(ctx context.Context, act *health.Activity) error
	List(ctx context.Context, limit int) ([]health.Activity, error)
}

// DailyMetricRepository manages daily metric persistence. Upsert has full-row
// insert-or-replace semantics keyed by day.
type DailyMetricRepository interface {
	Upsert(ctx context.Context, metric *health.DailyMetric) error
	List(ctx context.Context, limit int) ([]health.DailyMetric, error)
}

// SyncLogRepository manages the append-only sync audit log.
type SyncLogRepository interface {
	Open(ctx context.Context, startedAt time.Time) (int64, error)
	Close(ctx context.Context, id int64, endedAt time.Time, status health.SyncStatus, details string) error
	ListRecent(ctx context.Context, limit int) ([]health.SyncLogEntry, error)
}
