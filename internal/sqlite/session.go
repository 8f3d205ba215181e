package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/MightComeback/garmin-health-sync/internal/garmin"
	"github.com/MightComeback/garmin-health-sync/internal/repository"
)

// SessionStore implements repository.SessionStore for SQLite. The session is
// a single row; the cookie set is stored as a JSON blob.
type SessionStore struct {
	db  *DB
	now func() time.Time
}

// NewSessionStore creates a new SessionStore
func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db, now: time.Now}
}

// Load returns the stored session if present and still inside its TTL.
// An expired session is reported as repository.ErrNotFound without mutating
// the stored row.
func (s *SessionStore) Load(ctx context.Context) (*garmin.Session, error) {
	var cookies []byte
	var createdAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT cookies, created_at FROM service_session WHERE id = 1`,
	).Scan(&cookies, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	sess := &garmin.Session{CreatedAt: createdAt}
	if err := json.Unmarshal(cookies, &sess.Cookies); err != nil {
		return nil, fmt.Errorf("failed to decode session cookies: %w", err)
	}

	if !sess.Valid(s.now()) {
		return nil, repository.ErrNotFound
	}
	return sess, nil
}

// Save overwrites the single stored session record.
func (s *SessionStore) Save(ctx context.Context, sess *garmin.Session) error {
	if sess == nil {
		return repository.ErrInvalidInput
	}
	cookies, err := json.Marshal(sess.Cookies)
	if err != nil {
		return fmt.Errorf("failed to encode session cookies: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO service_session (id, cookies, created_at) VALUES (1, ?, ?)`,
		cookies, sess.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *SessionStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM service_session WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
