package garmin

import (
	"context"
	"errors"
	"log/slog"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// BreakerClient wraps a Client with a circuit breaker so that a down or
// degraded external service stops being hammered by the sync loop. When the
// circuit is open, every operation fails fast with a TransportError.
//
// An expired session is an authentication outcome, not a service-health
// signal, so ErrSessionExpired does not count toward tripping the breaker.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker[any]
}

// Ensure BreakerClient implements Client.
var _ Client = (*BreakerClient)(nil)

// NewBreakerClient wraps client with a circuit breaker. The breaker opens
// after a 60% failure rate over at least 10 requests and probes recovery
// after one minute.
func NewBreakerClient(client Client, logger *slog.Logger, onStateChange func(state string)) *BreakerClient {
	if logger == nil {
		logger = slog.Default()
	}

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "garmin-api",
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrSessionExpired)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			if onStateChange != nil {
				onStateChange(to.String())
			}
		},
	})

	return &BreakerClient{client: client, cb: cb}
}

// execute runs fn through the breaker and maps breaker rejections to
// TransportError so callers see the usual error taxonomy.
func execute[T any](cb *gobreaker.CircuitBreaker[any], op string, fn func() (T, error)) (T, error) {
	var zero T
	result, err := cb.Execute(func() (any, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, &TransportError{Op: op, Err: err}
		}
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, nil
	}
	return typed, nil
}

func (b *BreakerClient) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	return execute(b.cb, "login", func() (*Session, error) {
		return b.client.Authenticate(ctx, username, password)
	})
}

func (b *BreakerClient) FetchActivities(ctx context.Context, sess *Session, limit int) ([]ActivitySummary, error) {
	return execute(b.cb, "activities", func() ([]ActivitySummary, error) {
		return b.client.FetchActivities(ctx, sess, limit)
	})
}

func (b *BreakerClient) FetchActivityDetail(ctx context.Context, sess *Session, activityID int64) (*ActivityDetail, error) {
	return execute(b.cb, "activity detail", func() (*ActivityDetail, error) {
		return b.client.FetchActivityDetail(ctx, sess, activityID)
	})
}

func (b *BreakerClient) FetchDailySummary(ctx context.Context, sess *Session, day time.Time) (*DailySummary, error) {
	return execute(b.cb, "daily summary", func() (*DailySummary, error) {
		return b.client.FetchDailySummary(ctx, sess, day)
	})
}

func (b *BreakerClient) FetchSleep(ctx context.Context, sess *Session, day time.Time) (*SleepData, error) {
	return execute(b.cb, "sleep", func() (*SleepData, error) {
		return b.client.FetchSleep(ctx, sess, day)
	})
}

func (b *BreakerClient) FetchBodyBattery(ctx context.Context, sess *Session, day time.Time) (*BodyBatteryData, error) {
	return execute(b.cb, "body battery", func() (*BodyBatteryData, error) {
		return b.client.FetchBodyBattery(ctx, sess, day)
	})
}

func (b *BreakerClient) FetchStress(ctx context.Context, sess *Session, day time.Time) (*StressData, error) {
	return execute(b.cb, "stress", func() (*StressData, error) {
		return b.client.FetchStress(ctx, sess, day)
	})
}

func (b *BreakerClient) FetchHRV(ctx context.Context, sess *Session, day time.Time) (*HRVData, error) {
	return execute(b.cb, "hrv", func() (*HRVData, error) {
		return b.client.FetchHRV(ctx, sess, day)
	})
}
