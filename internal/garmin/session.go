package garmin

import (
	"net/http"
	"time"
)

// SessionTTL is how long the external service honors a cookie set before it
// must be re-established by a fresh login.
const SessionTTL = 7 * 24 * time.Hour

// Session is the authentication artifact issued by the external service: the
// cookie set captured after ticket validation, plus when it was established.
type Session struct {
	Cookies   []Cookie  `json:"cookies"`
	CreatedAt time.Time `json:"created_at"`
}

// Cookie is the subset of cookie attributes we need to replay on requests.
type Cookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
	Path   string `json:"path,omitempty"`
}

// Valid reports whether the session is still inside its TTL at the given time.
func (s *Session) Valid(now time.Time) bool {
	return now.Before(s.CreatedAt.Add(SessionTTL))
}

// ExpiresAt returns the instant the session stops being valid.
func (s *Session) ExpiresAt() time.Time {
	return s.CreatedAt.Add(SessionTTL)
}

func (s *Session) httpCookies() []*http.Cookie {
	cookies := make([]*http.Cookie, 0, len(s.Cookies))
	for _, c := range s.Cookies {
		cookies = append(cookies, &http.Cookie{Name: c.Name, Value: c.Value, Path: c.Path})
	}
	return cookies
}
