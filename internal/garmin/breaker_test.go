package garmin

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// stubClient lets tests script the underlying client's behavior.
type stubClient struct {
	activitiesErr error
	activities    []ActivitySummary
}

func (s *stubClient) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	return &Session{CreatedAt: time.Now()}, nil
}

func (s *stubClient) FetchActivities(ctx context.Context, sess *Session, limit int) ([]ActivitySummary, error) {
	return s.activities, s.activitiesErr
}

func (s *stubClient) FetchActivityDetail(ctx context.Context, sess *Session, activityID int64) (*ActivityDetail, error) {
	return nil, nil
}

func (s *stubClient) FetchDailySummary(ctx context.Context, sess *Session, day time.Time) (*DailySummary, error) {
	return nil, nil
}

func (s *stubClient) FetchSleep(ctx context.Context, sess *Session, day time.Time) (*SleepData, error) {
	return nil, nil
}

func (s *stubClient) FetchBodyBattery(ctx context.Context, sess *Session, day time.Time) (*BodyBatteryData, error) {
	return nil, nil
}

func (s *stubClient) FetchStress(ctx context.Context, sess *Session, day time.Time) (*StressData, error) {
	return nil, nil
}

func (s *stubClient) FetchHRV(ctx context.Context, sess *Session, day time.Time) (*HRVData, error) {
	return nil, nil
}

func TestBreakerClient_PassThrough(t *testing.T) {
	stub := &stubClient{activities: []ActivitySummary{{ActivityID: 1}}}
	client := NewBreakerClient(stub, nil, nil)

	activities, err := client.FetchActivities(context.Background(), activeSession(), 10)
	require.NoError(t, err)
	require.Len(t, activities, 1)

	sess, err := client.Authenticate(context.Background(), "u", "p")
	require.NoError(t, err)
	require.NotNil(t, sess)
}

func TestBreakerClient_PropagatesSessionExpired(t *testing.T) {
	stub := &stubClient{activitiesErr: ErrSessionExpired}
	client := NewBreakerClient(stub, nil, nil)

	_, err := client.FetchActivities(context.Background(), activeSession(), 10)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestBreakerClient_SessionExpiredDoesNotTrip(t *testing.T) {
	stub := &stubClient{activitiesErr: ErrSessionExpired}
	client := NewBreakerClient(stub, nil, nil)

	// Well past the trip threshold; expired sessions are auth outcomes,
	// not service-health failures, so the circuit must stay closed.
	for i := 0; i < 30; i++ {
		_, err := client.FetchActivities(context.Background(), activeSession(), 10)
		require.ErrorIs(t, err, ErrSessionExpired)
	}
}

func TestBreakerClient_OpensOnSustainedFailure(t *testing.T) {
	stub := &stubClient{activitiesErr: &TransportError{Op: "activities", Err: errors.New("connection refused")}}

	var lastState string
	client := NewBreakerClient(stub, nil, func(state string) { lastState = state })

	for i := 0; i < 30; i++ {
		_, _ = client.FetchActivities(context.Background(), activeSession(), 10)
	}
	require.Equal(t, "open", lastState)

	// Once open, calls fail fast with a transport error.
	_, err := client.FetchActivities(context.Background(), activeSession(), 10)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
}
