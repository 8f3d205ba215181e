package sync

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
	"github.com/MightComeback/garmin-health-sync/internal/garmin"
	"github.com/MightComeback/garmin-health-sync/internal/repository/mocks"
	"github.com/MightComeback/garmin-health-sync/internal/sqlite"
)

// fakeClient scripts the external service per test. Nil funcs behave as
// "no data" so tests only script what they care about.
type fakeClient struct {
	authenticate    func(username, password string) (*garmin.Session, error)
	fetchActivities func(sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error)
	fetchDetail     func(sess *garmin.Session, activityID int64) (*garmin.ActivityDetail, error)
	fetchDaily      func(sess *garmin.Session, day time.Time) (*garmin.DailySummary, error)
	fetchSleep      func(sess *garmin.Session, day time.Time) (*garmin.SleepData, error)
	fetchBB         func(sess *garmin.Session, day time.Time) (*garmin.BodyBatteryData, error)
	fetchStress     func(sess *garmin.Session, day time.Time) (*garmin.StressData, error)
	fetchHRV        func(sess *garmin.Session, day time.Time) (*garmin.HRVData, error)

	authCalls int
}

func (f *fakeClient) Authenticate(ctx context.Context, username, password string) (*garmin.Session, error) {
	f.authCalls++
	if f.authenticate == nil {
		return &garmin.Session{
			Cookies:   []garmin.Cookie{{Name: "SESSIONID", Value: "fresh"}},
			CreatedAt: time.Now(),
		}, nil
	}
	return f.authenticate(username, password)
}

func (f *fakeClient) FetchActivities(ctx context.Context, sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error) {
	if f.fetchActivities == nil {
		return nil, nil
	}
	return f.fetchActivities(sess, limit)
}

func (f *fakeClient) FetchActivityDetail(ctx context.Context, sess *garmin.Session, activityID int64) (*garmin.ActivityDetail, error) {
	if f.fetchDetail == nil {
		return nil, nil
	}
	return f.fetchDetail(sess, activityID)
}

func (f *fakeClient) FetchDailySummary(ctx context.Context, sess *garmin.Session, day time.Time) (*garmin.DailySummary, error) {
	if f.fetchDaily == nil {
		return nil, nil
	}
	return f.fetchDaily(sess, day)
}

func (f *fakeClient) FetchSleep(ctx context.Context, sess *garmin.Session, day time.Time) (*garmin.SleepData, error) {
	if f.fetchSleep == nil {
		return nil, nil
	}
	return f.fetchSleep(sess, day)
}

func (f *fakeClient) FetchBodyBattery(ctx context.Context, sess *garmin.Session, day time.Time) (*garmin.BodyBatteryData, error) {
	if f.fetchBB == nil {
		return nil, nil
	}
	return f.fetchBB(sess, day)
}

func (f *fakeClient) FetchStress(ctx context.Context, sess *garmin.Session, day time.Time) (*garmin.StressData, error) {
	if f.fetchStress == nil {
		return nil, nil
	}
	return f.fetchStress(sess, day)
}

func (f *fakeClient) FetchHRV(ctx context.Context, sess *garmin.Session, day time.Time) (*garmin.HRVData, error) {
	if f.fetchHRV == nil {
		return nil, nil
	}
	return f.fetchHRV(sess, day)
}

type serviceFixture struct {
	db       *sqlite.DB
	client   *fakeClient
	sessions *sqlite.SessionStore
	svc      *Service
}

func newServiceFixture(t *testing.T, client *fakeClient, creds Credentials, opts Options) *serviceFixture {
	t.Helper()
	db := sqlite.NewTestDB(t)
	sessions := sqlite.NewSessionStore(db)
	svc := NewService(
		client,
		sessions,
		sqlite.NewActivityRepository(db),
		sqlite.NewDailyMetricRepository(db),
		creds,
		opts,
		slog.Default(),
	)
	return &serviceFixture{db: db, client: client, sessions: sessions, svc: svc}
}

func seedSession(t *testing.T, f *serviceFixture) {
	t.Helper()
	require.NoError(t, f.sessions.Save(context.Background(), &garmin.Session{
		Cookies:   []garmin.Cookie{{Name: "SESSIONID", Value: "seeded"}},
		CreatedAt: time.Now(),
	}))
}

func intPtr(v int) *int { return &v }

func TestService_RunNotConfigured(t *testing.T) {
	f := newServiceFixture(t, &fakeClient{}, Credentials{}, Options{})

	_, err := f.svc.Run(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
	require.Zero(t, f.client.authCalls)
}

func TestService_RunAuthenticatesWhenNoSession(t *testing.T) {
	client := &fakeClient{}
	f := newServiceFixture(t, client, Credentials{Username: "u", Password: "p"}, Options{DayWindow: 1})

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, result.ActivitiesSynced)
	require.Equal(t, 0, result.DaysSynced)
	require.Equal(t, 1, client.authCalls)

	// The fresh session was persisted.
	require.True(t, f.svc.IsAuthenticated(context.Background()))
}

func TestService_RunAuthFailureIsTerminal(t *testing.T) {
	client := &fakeClient{
		authenticate: func(username, password string) (*garmin.Session, error) {
			return nil, garmin.ErrNoTicket
		},
	}
	f := newServiceFixture(t, client, Credentials{Username: "u", Password: "p"}, Options{})

	_, err := f.svc.Run(context.Background())
	require.ErrorIs(t, err, garmin.ErrNoTicket)
}

func TestService_RunSyncsActivitiesWithDetail(t *testing.T) {
	client := &fakeClient{
		fetchActivities: func(sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error) {
			return []garmin.ActivitySummary{
				{
					ActivityID:     101,
					ActivityName:   "Morning Run",
					StartTimeLocal: "2026-08-20 07:30:00",
					ActivityType:   garmin.ActivityType{TypeKey: "running"},
					Distance:       5012.3,
					Duration:       1622.8,
					Calories:       341,
					Raw:            []byte(`{"activityId":101}`),
				},
				{
					ActivityID:     102,
					ActivityName:   "Evening Ride",
					StartTimeLocal: "2026-08-19 18:00:00",
					ActivityType:   garmin.ActivityType{TypeKey: "cycling"},
					Raw:            []byte(`{"activityId":102}`),
				},
			}, nil
		},
		fetchDetail: func(sess *garmin.Session, activityID int64) (*garmin.ActivityDetail, error) {
			if activityID == 101 {
				return &garmin.ActivityDetail{
					AverageHR: intPtr(142),
					MaxHR:     intPtr(171),
					Raw:       []byte(`{"averageHR":142}`),
				}, nil
			}
			// Detail unavailable for the ride; absence is tolerated.
			return nil, nil
		},
	}
	f := newServiceFixture(t, client, Credentials{}, Options{DayWindow: 1})
	seedSession(t, f)

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.ActivitiesSynced)

	stored, err := sqlite.NewActivityRepository(f.db).List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	byID := map[string]health.Activity{}
	for _, a := range stored {
		byID[a.ID] = a
	}
	require.NotNil(t, byID["101"].AvgHeartRate)
	require.Equal(t, 142, *byID["101"].AvgHeartRate)
	require.Nil(t, byID["102"].AvgHeartRate)
	require.Nil(t, byID["102"].DetailRaw)
}

// Three-day window: full data, summary without sleep, no summary at all.
func TestService_RunDailyWindowScenario(t *testing.T) {
	today := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	day0 := "2026-08-20"
	day1 := "2026-08-19"

	client := &fakeClient{
		fetchDaily: func(sess *garmin.Session, day time.Time) (*garmin.DailySummary, error) {
			switch day.Format("2006-01-02") {
			case day0:
				return &garmin.DailySummary{
					CalendarDate:     day0,
					TotalSteps:       10432,
					RestingHeartRate: intPtr(52),
					Raw:              []byte(`{"calendarDate":"2026-08-20"}`),
				}, nil
			case day1:
				return &garmin.DailySummary{
					CalendarDate: day1,
					TotalSteps:   8120,
					Raw:          []byte(`{"calendarDate":"2026-08-19"}`),
				}, nil
			default:
				return nil, nil
			}
		},
		fetchSleep: func(sess *garmin.Session, day time.Time) (*garmin.SleepData, error) {
			if day.Format("2006-01-02") == day0 {
				return &garmin.SleepData{
					SleepTimeSeconds: intPtr(27360),
					SleepScore:       intPtr(81),
				}, nil
			}
			// Sleep sub-fetch succeeds only for day 0; day 1 has none and
			// day 2 must never be reached because its summary is absent.
			return nil, nil
		},
		fetchHRV: func(sess *garmin.Session, day time.Time) (*garmin.HRVData, error) {
			if day.Format("2006-01-02") == day0 {
				return &garmin.HRVData{Status: "BALANCED", LastNightAvg: intPtr(48)}, nil
			}
			return nil, nil
		},
	}
	f := newServiceFixture(t, client, Credentials{}, Options{DayWindow: 3})
	f.svc.now = func() time.Time { return today }
	seedSession(t, f)

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, result.DaysSynced)

	metrics, err := sqlite.NewDailyMetricRepository(f.db).List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, metrics, 2)

	require.Equal(t, day0, metrics[0].Day)
	require.NotNil(t, metrics[0].SleepSeconds)
	require.Equal(t, 27360, *metrics[0].SleepSeconds)
	require.NotNil(t, metrics[0].HRVStatus)
	require.Equal(t, "BALANCED", *metrics[0].HRVStatus)

	require.Equal(t, day1, metrics[1].Day)
	require.Nil(t, metrics[1].SleepSeconds)
	require.Nil(t, metrics[1].SleepScore)
	// HRV endpoint unavailable for day 1: status stays null, never derived.
	require.Nil(t, metrics[1].HRVStatus)
}

func TestService_RunSingleRetryOnExpiry(t *testing.T) {
	calls := 0
	client := &fakeClient{
		fetchActivities: func(sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error) {
			calls++
			if calls == 1 {
				return nil, garmin.ErrSessionExpired
			}
			return []garmin.ActivitySummary{{
				ActivityID:     201,
				ActivityName:   "Recovered Run",
				StartTimeLocal: "2026-08-20 07:30:00",
				Raw:            []byte(`{}`),
			}}, nil
		},
	}
	f := newServiceFixture(t, client, Credentials{Username: "u", Password: "p"}, Options{DayWindow: 1})
	seedSession(t, f)

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.ActivitiesSynced)
	require.Equal(t, 1, client.authCalls, "exactly one re-authentication")
	require.Equal(t, 2, calls, "exactly one retry of the fetch")
}

func TestService_RunDoubleExpiryFails(t *testing.T) {
	client := &fakeClient{
		fetchActivities: func(sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error) {
			return nil, garmin.ErrSessionExpired
		},
	}
	f := newServiceFixture(t, client, Credentials{Username: "u", Password: "p"}, Options{DayWindow: 1})
	seedSession(t, f)

	_, err := f.svc.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "re-authentication")
	require.Equal(t, 1, client.authCalls)
}

func TestService_RunReauthBudgetSharedAcrossPhases(t *testing.T) {
	dailyCalls := 0
	client := &fakeClient{
		fetchActivities: func(sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error) {
			if sess.Cookies[0].Value == "seeded" {
				return nil, garmin.ErrSessionExpired
			}
			return nil, nil
		},
		fetchDaily: func(sess *garmin.Session, day time.Time) (*garmin.DailySummary, error) {
			dailyCalls++
			return nil, garmin.ErrSessionExpired
		},
	}
	f := newServiceFixture(t, client, Credentials{Username: "u", Password: "p"}, Options{DayWindow: 5})
	seedSession(t, f)

	// The activities phase consumes the single re-auth; the first expired
	// daily fetch must abort instead of re-authenticating again.
	_, err := f.svc.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 1, client.authCalls)
	require.Equal(t, 1, dailyCalls)
}

func TestService_RunAllDaysFailed(t *testing.T) {
	client := &fakeClient{
		fetchDaily: func(sess *garmin.Session, day time.Time) (*garmin.DailySummary, error) {
			return nil, &garmin.TransportError{Op: "daily summary", Err: errors.New("connection refused")}
		},
	}
	f := newServiceFixture(t, client, Credentials{}, Options{DayWindow: 3})
	seedSession(t, f)

	_, err := f.svc.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "window failed")
}

func TestService_RunSomeDaysFailedIsTolerated(t *testing.T) {
	today := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	client := &fakeClient{
		fetchDaily: func(sess *garmin.Session, day time.Time) (*garmin.DailySummary, error) {
			switch day.Format("2006-01-02") {
			case "2026-08-20":
				return &garmin.DailySummary{CalendarDate: "2026-08-20", TotalSteps: 100, Raw: []byte(`{}`)}, nil
			case "2026-08-19":
				return nil, &garmin.TransportError{Op: "daily summary", Err: errors.New("timeout")}
			default:
				return nil, nil
			}
		},
	}
	f := newServiceFixture(t, client, Credentials{}, Options{DayWindow: 3})
	f.svc.now = func() time.Time { return today }
	seedSession(t, f)

	result, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, result.DaysSynced)
}

func TestService_RunIdempotent(t *testing.T) {
	client := &fakeClient{
		fetchActivities: func(sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error) {
			return []garmin.ActivitySummary{{
				ActivityID:     301,
				ActivityName:   "Repeat Run",
				StartTimeLocal: "2026-08-20 07:30:00",
				Raw:            []byte(`{}`),
			}}, nil
		},
	}
	f := newServiceFixture(t, client, Credentials{}, Options{DayWindow: 1})
	seedSession(t, f)

	for i := 0; i < 2; i++ {
		result, err := f.svc.Run(context.Background())
		require.NoError(t, err)
		require.Equal(t, 1, result.ActivitiesSynced)
	}

	stored, err := sqlite.NewActivityRepository(f.db).List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
}

func TestService_RunStorageFailureAborts(t *testing.T) {
	sessions := &mocks.SessionStore{}
	sessions.On("Load", mock.Anything).Return(&garmin.Session{
		Cookies:   []garmin.Cookie{{Name: "SESSIONID", Value: "s"}},
		CreatedAt: time.Now(),
	}, nil)

	activities := &mocks.ActivityRepository{}
	activities.On("Upsert", mock.Anything, mock.Anything).Return(errors.New("disk I/O error"))

	client := &fakeClient{
		fetchActivities: func(sess *garmin.Session, limit int) ([]garmin.ActivitySummary, error) {
			return []garmin.ActivitySummary{{ActivityID: 1, Raw: []byte(`{}`)}}, nil
		},
	}
	svc := NewService(client, sessions, activities, &mocks.DailyMetricRepository{}, Credentials{}, Options{}, nil)

	_, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "storing activity")
	activities.AssertExpectations(t)
}

func TestService_RunSessionLoadFailureAborts(t *testing.T) {
	sessions := &mocks.SessionStore{}
	sessions.On("Load", mock.Anything).Return(nil, errors.New("database is locked"))

	client := &fakeClient{}
	svc := NewService(client, sessions, &mocks.ActivityRepository{}, &mocks.DailyMetricRepository{}, Credentials{Username: "u", Password: "p"}, Options{}, nil)

	// A broken store is not the same as an absent session; no login attempt.
	_, err := svc.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "loading session")
	require.Zero(t, client.authCalls)
}

func TestService_LogoutClearsSession(t *testing.T) {
	f := newServiceFixture(t, &fakeClient{}, Credentials{}, Options{})
	seedSession(t, f)

	ctx := context.Background()
	require.True(t, f.svc.IsAuthenticated(ctx))
	require.NoError(t, f.svc.Logout(ctx))
	require.False(t, f.svc.IsAuthenticated(ctx))
}
