package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
)

// DailyMetricRepository implements repository.DailyMetricRepository for SQLite
type DailyMetricRepository struct {
	db *DB
}

// NewDailyMetricRepository creates a new DailyMetricRepository
func NewDailyMetricRepository(db *DB) *DailyMetricRepository {
	return &DailyMetricRepository{db: db}
}

// Upsert replaces the full row for the metric's day.
func (r *DailyMetricRepository) Upsert(ctx context.Context, metric *health.DailyMetric) error {
	query := `
		INSERT OR REPLACE INTO daily_metrics (
			day, steps, resting_hr,
			bb_high, bb_low, bb_charged, bb_drained,
			sleep_seconds, sleep_score, deep_sleep_seconds, light_sleep_seconds,
			rem_sleep_seconds, awake_sleep_seconds,
			avg_spo2, avg_respiration, avg_stress, max_stress,
			hrv_status, hrv_last_night_avg,
			raw, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		metric.Day,
		metric.Steps,
		metric.RestingHeartRate,
		metric.BodyBatteryHigh,
		metric.BodyBatteryLow,
		metric.BodyBatteryCharged,
		metric.BodyBatteryDrained,
		metric.SleepSeconds,
		metric.SleepScore,
		metric.DeepSleepSeconds,
		metric.LightSleepSeconds,
		metric.RemSleepSeconds,
		metric.AwakeSleepSeconds,
		metric.AvgSpO2,
		metric.AvgRespiration,
		metric.AvgStress,
		metric.MaxStress,
		metric.HRVStatus,
		metric.HRVLastNightAvg,
		metric.Raw,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily metric: %w", err)
	}
	return nil
}

// List returns daily metrics ordered by day descending.
func (r *DailyMetricRepository) List(ctx context.Context, limit int) ([]health.DailyMetric, error) {
	query := `
		SELECT
			day, steps, resting_hr,
			bb_high, bb_low, bb_charged, bb_drained,
			sleep_seconds, sleep_score, deep_sleep_seconds, light_sleep_seconds,
			rem_sleep_seconds, awake_sleep_seconds,
			avg_spo2, avg_respiration, avg_stress, max_stress,
			hrv_status, hrv_last_night_avg,
			raw
		FROM daily_metrics
		ORDER BY day DESC
	`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list daily metrics: %w", err)
	}
	defer rows.Close()

	var metrics []health.DailyMetric
	for rows.Next() {
		var m health.DailyMetric
		var restingHR, bbHigh, bbLow, bbCharged, bbDrained sql.NullInt64
		var sleepSeconds, sleepScore, deepSleep, lightSleep, remSleep, awakeSleep sql.NullInt64
		var avgSpO2, avgRespiration sql.NullFloat64
		var avgStress, maxStress, hrvLastNightAvg sql.NullInt64
		var hrvStatus sql.NullString
		if err := rows.Scan(
			&m.Day,
			&m.Steps,
			&restingHR,
			&bbHigh,
			&bbLow,
			&bbCharged,
			&bbDrained,
			&sleepSeconds,
			&sleepScore,
			&deepSleep,
			&lightSleep,
			&remSleep,
			&awakeSleep,
			&avgSpO2,
			&avgRespiration,
			&avgStress,
			&maxStress,
			&hrvStatus,
			&hrvLastNightAvg,
			&m.Raw,
		); err != nil {
			return nil, fmt.Errorf("failed to scan daily metric: %w", err)
		}
		m.RestingHeartRate = nullableInt(restingHR)
		m.BodyBatteryHigh = nullableInt(bbHigh)
		m.BodyBatteryLow = nullableInt(bbLow)
		m.BodyBatteryCharged = nullableInt(bbCharged)
		m.BodyBatteryDrained = nullableInt(bbDrained)
		m.SleepSeconds = nullableInt(sleepSeconds)
		m.SleepScore = nullableInt(sleepScore)
		m.DeepSleepSeconds = nullableInt(deepSleep)
		m.LightSleepSeconds = nullableInt(lightSleep)
		m.RemSleepSeconds = nullableInt(remSleep)
		m.AwakeSleepSeconds = nullableInt(awakeSleep)
		m.AvgSpO2 = nullableFloat(avgSpO2)
		m.AvgRespiration = nullableFloat(avgRespiration)
		m.AvgStress = nullableInt(avgStress)
		m.MaxStress = nullableInt(maxStress)
		m.HRVStatus = nullableString(hrvStatus)
		m.HRVLastNightAvg = nullableInt(hrvLastNightAvg)
		metrics = append(metrics, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating daily metric rows: %w", err)
	}

	return metrics, nil
}
