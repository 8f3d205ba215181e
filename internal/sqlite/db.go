package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations creates the schema. Every statement is idempotent so this is
// safe to run on every startup.
func (db *DB) RunMigrations() error {
	migration := `
-- Activities, keyed by the provider's numeric id (stored as text)
CREATE TABLE IF NOT EXISTS activities (
    id TEXT NOT NULL,
    provider TEXT NOT NULL,
    name TEXT NOT NULL,
    type TEXT NOT NULL,
    start_time TIMESTAMP NOT NULL,
    distance_m REAL NOT NULL DEFAULT 0,
    duration_s REAL NOT NULL DEFAULT 0,
    calories REAL NOT NULL DEFAULT 0,
    avg_hr INTEGER,
    max_hr INTEGER,
    avg_speed REAL,
    max_speed REAL,
    elevation_gain REAL,
    elevation_loss REAL,
    raw BLOB,
    detail_raw BLOB,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (provider, id)
);
CREATE INDEX IF NOT EXISTS idx_activities_start_time ON activities(start_time DESC);

-- One merged wellness row per calendar day
CREATE TABLE IF NOT EXISTS daily_metrics (
    day TEXT PRIMARY KEY,
    steps INTEGER NOT NULL DEFAULT 0,
    resting_hr INTEGER,
    bb_high INTEGER,
    bb_low INTEGER,
    bb_charged INTEGER,
    bb_drained INTEGER,
    sleep_seconds INTEGER,
    sleep_score INTEGER,
    deep_sleep_seconds INTEGER,
    light_sleep_seconds INTEGER,
    rem_sleep_seconds INTEGER,
    awake_sleep_seconds INTEGER,
    avg_spo2 REAL,
    avg_respiration REAL,
    avg_stress INTEGER,
    max_stress INTEGER,
    hrv_status TEXT,
    hrv_last_night_avg INTEGER,
    raw BLOB,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

-- Append-only audit log of sync runs
CREATE TABLE IF NOT EXISTS sync_log (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TIMESTAMP NOT NULL,
    ended_at TIMESTAMP,
    status TEXT NOT NULL CHECK(status IN ('running', 'success', 'error')),
    details TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_sync_log_started_at ON sync_log(started_at DESC);

-- Single-row external-service session
CREATE TABLE IF NOT EXISTS service_session (
    id INTEGER PRIMARY KEY CHECK(id = 1),
    cookies BLOB NOT NULL,
    created_at TIMESTAMP NOT NULL
);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
