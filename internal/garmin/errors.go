package garmin

import (
	"errors"
	"fmt"
)

var (
	// ErrNoTicket is returned when the login response contains no service ticket.
	ErrNoTicket = errors.New("no service ticket in login response")

	// ErrNoSessionCookie is returned when ticket validation yields no session cookie.
	ErrNoSessionCookie = errors.New("ticket validation yielded no session cookie")

	// ErrSessionExpired is returned when the service answers 401/403, meaning the
	// stored cookie set is no longer accepted and a re-login is required.
	ErrSessionExpired = errors.New("session expired")
)

// TransportError wraps network and unexpected-status failures talking to the
// external service.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("garmin %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
