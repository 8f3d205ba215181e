package sync

import "errors"

var (
	// ErrNotConfigured is returned when no valid session is stored and no
	// credentials are configured to establish one.
	ErrNotConfigured = errors.New("credentials not configured and no stored session")

	// ErrSyncRunning is returned by the scheduler when a manual trigger
	// arrives while a sync is already executing.
	ErrSyncRunning = errors.New("a sync is already running")
)

// fatalError marks an error that must abort the whole run rather than skip
// the current item (exhausted re-authentication, persistence failures are
// returned directly).
type fatalError struct {
	err error
}

func (e *fatalError) Error() string {
	return e.err.Error()
}

func (e *fatalError) Unwrap() error {
	return e.err
}
