package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
)

// ActivityRepository implements repository.ActivityRepository for SQLite
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Upsert replaces the full row keyed by (provider, id). Applying the same
// record twice yields identical stored state.
func (r *ActivityRepository) Upsert(ctx context.Context, act *health.Activity) error {
	query := `
		INSERT OR REPLACE INTO activities (
			id, provider, name, type, start_time,
			distance_m, duration_s, calories,
			avg_hr, max_hr, avg_speed, max_speed, elevation_gain, elevation_loss,
			raw, detail_raw, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		act.ID,
		act.Provider,
		act.Name,
		act.Type,
		act.StartTime,
		act.DistanceMeters,
		act.DurationSeconds,
		act.Calories,
		act.AvgHeartRate,
		act.MaxHeartRate,
		act.AvgSpeed,
		act.MaxSpeed,
		act.ElevationGain,
		act.ElevationLoss,
		act.Raw,
		act.DetailRaw,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert activity: %w", err)
	}
	return nil
}

// List returns activities ordered by start time descending.
func (r *ActivityRepository) List(ctx context.Context, limit int) ([]health.Activity, error) {
	query := `
		SELECT
			id, provider, name, type, start_time,
			distance_m, duration_s, calories,
			avg_hr, max_hr, avg_speed, max_speed, elevation_gain, elevation_loss,
			raw, detail_raw
		FROM activities
		ORDER BY start_time DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	defer rows.Close()

	var activities []health.Activity
	for rows.Next() {
		var act health.Activity
		var avgHR, maxHR sql.NullInt64
		var avgSpeed, maxSpeed, elevGain, elevLoss sql.NullFloat64
		if err := rows.Scan(
			&act.ID,
			&act.Provider,
			&act.Name,
			&act.Type,
			&act.StartTime,
			&act.DistanceMeters,
			&act.DurationSeconds,
			&act.Calories,
			&avgHR,
			&maxHR,
			&avgSpeed,
			&maxSpeed,
			&elevGain,
			&elevLoss,
			&act.Raw,
			&act.DetailRaw,
		); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		act.AvgHeartRate = nullableInt(avgHR)
		act.MaxHeartRate = nullableInt(maxHR)
		act.AvgSpeed = nullableFloat(avgSpeed)
		act.MaxSpeed = nullableFloat(maxSpeed)
		act.ElevationGain = nullableFloat(elevGain)
		act.ElevationLoss = nullableFloat(elevLoss)
		activities = append(activities, act)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating activity rows: %w", err)
	}

	return activities, nil
}

func nullableInt(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullableString(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}
