package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	stdsync "sync"
	"time"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
	"github.com/MightComeback/garmin-health-sync/internal/garmin"
	"github.com/MightComeback/garmin-health-sync/internal/repository"
)

// Credentials are the external-service login credentials. Both fields may be
// empty; syncing then requires a still-valid stored session.
type Credentials struct {
	Username string
	Password string
}

// Options bound how much a single run pulls.
type Options struct {
	// ActivityLimit is the number of most recent activities fetched per run.
	ActivityLimit int
	// DayWindow is the trailing number of days the daily pass covers.
	DayWindow int
}

// Service orchestrates one sync pass: ensure a valid session, pull recent
// activities with best-effort detail enrichment, then walk the trailing daily
// window merging the per-day wellness sub-resources.
type Service struct {
	client     garmin.Client
	sessions   repository.SessionStore
	activities repository.ActivityRepository
	daily      repository.DailyMetricRepository
	creds      Credentials
	opts       Options
	logger     *slog.Logger
	now        func() time.Time
}

// NewService creates a new sync service.
func NewService(
	client garmin.Client,
	sessions repository.SessionStore,
	activities repository.ActivityRepository,
	daily repository.DailyMetricRepository,
	creds Credentials,
	opts Options,
	logger *slog.Logger,
) *Service {
	if opts.ActivityLimit <= 0 {
		opts.ActivityLimit = 50
	}
	if opts.DayWindow <= 0 {
		opts.DayWindow = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:     client,
		sessions:   sessions,
		activities: activities,
		daily:      daily,
		creds:      creds,
		opts:       opts,
		logger:     logger,
		now:        time.Now,
	}
}

// sessionState tracks the session and the single re-authentication budget
// shared by every mandatory fetch in one run.
type sessionState struct {
	sess     *garmin.Session
	reauthed bool
}

// Run executes one full sync pass and returns the counts. The caller is
// responsible for opening and closing the sync log entry around it.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	sess, err := s.ensureSession(ctx)
	if err != nil {
		return nil, err
	}
	st := &sessionState{sess: sess}

	activitiesSynced, err := s.syncActivities(ctx, st)
	if err != nil {
		return nil, err
	}

	daysSynced, err := s.syncDailyWindow(ctx, st)
	if err != nil {
		return nil, err
	}

	result := &Result{
		ActivitiesSynced: activitiesSynced,
		DaysSynced:       daysSynced,
	}
	s.logger.Info("sync pass complete", "activities", result.ActivitiesSynced, "days", result.DaysSynced)
	return result, nil
}

// IsAuthenticated reports whether a valid session is stored. It never
// contacts the external service.
func (s *Service) IsAuthenticated(ctx context.Context) bool {
	_, err := s.sessions.Load(ctx)
	return err == nil
}

// Logout clears the stored session. The server-side session is not revoked.
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Clear(ctx)
}

func (s *Service) syncActivities(ctx context.Context, st *sessionState) (int, error) {
	activities, err := fetchWithReauth(ctx, s, st, func(sess *garmin.Session) ([]garmin.ActivitySummary, error) {
		return s.client.FetchActivities(ctx, sess, s.opts.ActivityLimit)
	})
	if err != nil {
		return 0, fmt.Errorf("fetching activities: %w", err)
	}

	synced := 0
	for i := range activities {
		summary := activities[i]
		detail, err := fetchWithReauth(ctx, s, st, func(sess *garmin.Session) (*garmin.ActivityDetail, error) {
			return s.client.FetchActivityDetail(ctx, sess, summary.ActivityID)
		})
		if err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				return 0, fmt.Errorf("enriching activity %d: %w", summary.ActivityID, err)
			}
			detail = nil
		}

		if err := s.activities.Upsert(ctx, buildActivity(summary, detail)); err != nil {
			return 0, fmt.Errorf("storing activity %d: %w", summary.ActivityID, err)
		}
		synced++
	}
	return synced, nil
}

func (s *Service) syncDailyWindow(ctx context.Context, st *sessionState) (int, error) {
	today := s.now()
	synced := 0
	failed := 0

	for i := 0; i < s.opts.DayWindow; i++ {
		day := today.AddDate(0, 0, -i)
		dayKey := day.Format("2006-01-02")

		summary, err := fetchWithReauth(ctx, s, st, func(sess *garmin.Session) (*garmin.DailySummary, error) {
			return s.client.FetchDailySummary(ctx, sess, day)
		})
		if err != nil {
			var fatal *fatalError
			if errors.As(err, &fatal) {
				return 0, fmt.Errorf("fetching daily summary for %s: %w", dayKey, err)
			}
			s.logger.Warn("daily summary fetch failed", "day", dayKey, "error", err)
			failed++
			continue
		}
		if summary == nil {
			// No data recorded for this day; skipped, not counted.
			continue
		}

		metric := s.collectDay(ctx, st.sess, day, summary)
		if err := s.daily.Upsert(ctx, metric); err != nil {
			return 0, fmt.Errorf("storing daily metric for %s: %w", dayKey, err)
		}
		synced++
	}

	if failed > 0 && failed == s.opts.DayWindow {
		return 0, fmt.Errorf("every day in the %d-day window failed", s.opts.DayWindow)
	}
	return synced, nil
}

// collectDay fetches the four per-day sub-resources concurrently and merges
// them with the daily summary. Each sub-fetch is independently best-effort;
// an expired session inside a sub-fetch degrades to absence rather than
// triggering a concurrent re-authentication.
func (s *Service) collectDay(ctx context.Context, sess *garmin.Session, day time.Time, summary *garmin.DailySummary) *health.DailyMetric {
	var (
		sleep  *garmin.SleepData
		bb     *garmin.BodyBatteryData
		stress *garmin.StressData
		hrv    *garmin.HRVData
	)

	var wg stdsync.WaitGroup
	wg.Add(4)
	go func() {
		defer wg.Done()
		sleep, _ = s.client.FetchSleep(ctx, sess, day)
	}()
	go func() {
		defer wg.Done()
		bb, _ = s.client.FetchBodyBattery(ctx, sess, day)
	}()
	go func() {
		defer wg.Done()
		stress, _ = s.client.FetchStress(ctx, sess, day)
	}()
	go func() {
		defer wg.Done()
		hrv, _ = s.client.FetchHRV(ctx, sess, day)
	}()
	wg.Wait()

	return mergeDaily(day, summary, sleep, bb, stress, hrv)
}

func mergeDaily(day time.Time, summary *garmin.DailySummary, sleep *garmin.SleepData, bb *garmin.BodyBatteryData, stress *garmin.StressData, hrv *garmin.HRVData) *health.DailyMetric {
	dayKey := summary.CalendarDate
	if dayKey == "" {
		dayKey = day.Format("2006-01-02")
	}

	metric := &health.DailyMetric{
		Day:              dayKey,
		Steps:            summary.TotalSteps,
		RestingHeartRate: summary.RestingHeartRate,
		AvgSpO2:          summary.AverageSpO2,
		AvgRespiration:   summary.AvgWakingRespirationRate,
		AvgStress:        summary.AverageStressLevel,
		MaxStress:        summary.MaxStressLevel,
		Raw:              summary.Raw,
	}

	if sleep != nil {
		metric.SleepSeconds = sleep.SleepTimeSeconds
		metric.SleepScore = sleep.SleepScore
		metric.DeepSleepSeconds = sleep.DeepSleepSeconds
		metric.LightSleepSeconds = sleep.LightSleepSeconds
		metric.RemSleepSeconds = sleep.RemSleepSeconds
		metric.AwakeSleepSeconds = sleep.AwakeSleepSeconds
	}
	if bb != nil {
		metric.BodyBatteryHigh = bb.Highest
		metric.BodyBatteryLow = bb.Lowest
		metric.BodyBatteryCharged = bb.Charged
		metric.BodyBatteryDrained = bb.Drained
	}
	if stress != nil {
		// The dedicated stress endpoint has finer data than the summary.
		metric.AvgStress = stress.AvgStressLevel
		metric.MaxStress = stress.MaxStressLevel
	}
	if hrv != nil {
		// The endpoint-provided status is authoritative; when the endpoint
		// is unavailable the status stays null rather than being derived
		// from stress.
		status := hrv.Status
		metric.HRVStatus = &status
		metric.HRVLastNightAvg = hrv.LastNightAvg
	}

	return metric
}

func buildActivity(summary garmin.ActivitySummary, detail *garmin.ActivityDetail) *health.Activity {
	act := &health.Activity{
		ID:              strconv.FormatInt(summary.ActivityID, 10),
		Provider:        health.ProviderGarmin,
		Name:            summary.ActivityName,
		Type:            summary.ActivityType.TypeKey,
		StartTime:       parseStartTime(summary.StartTimeLocal),
		DistanceMeters:  summary.Distance,
		DurationSeconds: summary.Duration,
		Calories:        summary.Calories,
		Raw:             summary.Raw,
	}
	if detail != nil {
		act.AvgHeartRate = detail.AverageHR
		act.MaxHeartRate = detail.MaxHR
		act.AvgSpeed = detail.AverageSpeed
		act.MaxSpeed = detail.MaxSpeed
		act.ElevationGain = detail.ElevationGain
		act.ElevationLoss = detail.ElevationLoss
		act.DetailRaw = detail.Raw
	}
	return act
}

func parseStartTime(value string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ensureSession loads the stored session or establishes a fresh one.
func (s *Service) ensureSession(ctx context.Context) (*garmin.Session, error) {
	sess, err := s.sessions.Load(ctx)
	if err == nil {
		return sess, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	return s.authenticate(ctx)
}

// authenticate performs a fresh login and persists the resulting session.
// Any handshake failure is terminal for this run; the next run starts over.
func (s *Service) authenticate(ctx context.Context) (*garmin.Session, error) {
	if s.creds.Username == "" || s.creds.Password == "" {
		return nil, ErrNotConfigured
	}
	sess, err := s.client.Authenticate(ctx, s.creds.Username, s.creds.Password)
	if err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if err := s.sessions.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("storing session: %w", err)
	}
	return sess, nil
}

// refreshSession discards the rejected session and logs in again.
func (s *Service) refreshSession(ctx context.Context) (*garmin.Session, error) {
	if err := s.sessions.Clear(ctx); err != nil {
		s.logger.Warn("failed to clear rejected session", "error", err)
	}
	return s.authenticate(ctx)
}

// fetchWithReauth runs fn and, if the service rejects the session, performs
// at most one re-authentication for the whole run before retrying once. A
// second rejection is fatal.
func fetchWithReauth[T any](ctx context.Context, s *Service, st *sessionState, fn func(*garmin.Session) (T, error)) (T, error) {
	out, err := fn(st.sess)
	if err == nil || !errors.Is(err, garmin.ErrSessionExpired) {
		return out, err
	}

	var zero T
	if st.reauthed {
		return zero, &fatalError{errors.New("session expired again after re-authentication")}
	}
	st.reauthed = true

	s.logger.Info("session rejected by external service, re-authenticating")
	sess, err := s.refreshSession(ctx)
	if err != nil {
		return zero, &fatalError{err}
	}
	st.sess = sess

	out, err = fn(st.sess)
	if err != nil && errors.Is(err, garmin.ErrSessionExpired) {
		return zero, &fatalError{errors.New("session expired immediately after re-authentication")}
	}
	return out, err
}
