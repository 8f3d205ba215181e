package sync

import (
	"context"
	"fmt"
	"log/slog"
	stdsync "sync"
	"time"

	"github.com/google/uuid"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
	"github.com/MightComeback/garmin-health-sync/internal/repository"
)

// State is the scheduler lifecycle state.
type State string

const (
	StateStopped State = "stopped"
	StateArmed   State = "armed"
	StateRunning State = "running"
)

// Runner executes one sync pass. *Service satisfies it.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Hooks let collaborators observe scheduler activity without polling. All
// callbacks are optional and are invoked outside the scheduler lock.
type Hooks struct {
	OnStarted     func()
	OnStopped     func()
	OnSyncStart   func(runID string)
	OnSyncSuccess func(runID string, result *Result, elapsed time.Duration)
	OnSyncError   func(runID string, err error, elapsed time.Duration)
}

// Status is the externally visible scheduler state.
type Status struct {
	Enabled   bool          `json:"enabled"`
	Interval  time.Duration `json:"-"`
	LastRunAt *time.Time    `json:"lastRunAt"`
	NextRunAt *time.Time    `json:"nextRunAt"`
	IsRunning bool          `json:"isRunning"`
}

// Scheduler triggers sync runs on a fixed interval or on demand, enforcing at
// most one in-flight run. It owns the sync log bookkeeping around each run:
// one entry opened per run, always closed to success or error.
type Scheduler struct {
	runner   Runner
	syncLog  repository.SyncLogRepository
	interval time.Duration
	hooks    Hooks
	logger   *slog.Logger
	now      func() time.Time

	mu        stdsync.Mutex
	state     State
	enabled   bool
	timer     *time.Timer
	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewScheduler creates a scheduler. An interval of 0 disables automatic runs;
// TriggerNow still works.
func NewScheduler(runner Runner, syncLog repository.SyncLogRepository, interval time.Duration, hooks Hooks, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		runner:   runner,
		syncLog:  syncLog,
		interval: interval,
		hooks:    hooks,
		logger:   logger,
		now:      time.Now,
		state:    StateStopped,
	}
}

// Start arms the timer for the first run. No-op when already armed or
// running, or when the interval is 0.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.interval <= 0 || s.state != StateStopped {
		s.mu.Unlock()
		return
	}
	s.enabled = true
	s.state = StateArmed
	s.armLocked()
	s.mu.Unlock()

	s.logger.Info("scheduler started", "interval", s.interval)
	if s.hooks.OnStarted != nil {
		s.hooks.OnStarted()
	}
}

// Stop cancels any pending timer. A sync already executing is not
// interrupted; it simply won't be rescheduled.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	wasStopped := !s.enabled && s.state == StateStopped
	s.enabled = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.nextRunAt = nil
	if s.state == StateArmed {
		s.state = StateStopped
	}
	s.mu.Unlock()

	if wasStopped {
		return
	}
	s.logger.Info("scheduler stopped")
	if s.hooks.OnStopped != nil {
		s.hooks.OnStopped()
	}
}

// TriggerNow cancels any pending timer and runs a sync synchronously. If a
// run is already executing it returns ErrSyncRunning without queueing.
func (s *Scheduler) TriggerNow(ctx context.Context) (*Result, error) {
	s.mu.Lock()
	if s.state == StateRunning {
		s.mu.Unlock()
		return nil, ErrSyncRunning
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.nextRunAt = nil
	s.state = StateRunning
	s.mu.Unlock()

	return s.execute(ctx, "manual")
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Enabled:   s.enabled,
		Interval:  s.interval,
		LastRunAt: s.lastRunAt,
		NextRunAt: s.nextRunAt,
		IsRunning: s.state == StateRunning,
	}
}

// armLocked schedules the next run. Caller holds the lock.
func (s *Scheduler) armLocked() {
	next := s.now().Add(s.interval)
	s.nextRunAt = &next
	s.timer = time.AfterFunc(s.interval, s.timerFired)
}

// timerFired runs a scheduled sync. A concurrent manual run wins; the timer
// run is simply skipped and the schedule rearmed on that run's completion.
func (s *Scheduler) timerFired() {
	s.mu.Lock()
	if s.state == StateRunning || !s.enabled {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.nextRunAt = nil
	s.state = StateRunning
	s.mu.Unlock()

	// Scheduled runs never propagate errors; they are recorded in the sync
	// log and reported through the error hook, and the schedule continues.
	if _, err := s.execute(context.Background(), "scheduled"); err != nil {
		s.logger.Error("scheduled sync failed", "error", err)
	}
}

// execute performs one run with the sync log entry opened and closed around
// it, then records bookkeeping and rearms if still enabled. The caller must
// have transitioned state to Running.
func (s *Scheduler) execute(ctx context.Context, trigger string) (*Result, error) {
	runID := uuid.NewString()
	startedAt := s.now()
	logger := s.logger.With("run_id", runID, "trigger", trigger)
	logger.Info("sync run starting")

	if s.hooks.OnSyncStart != nil {
		s.hooks.OnSyncStart(runID)
	}

	result, runErr := s.runLogged(ctx, startedAt, logger)
	elapsed := s.now().Sub(startedAt)

	s.mu.Lock()
	now := s.now()
	s.lastRunAt = &now
	if s.enabled {
		s.state = StateArmed
		s.armLocked()
	} else {
		s.state = StateStopped
	}
	s.mu.Unlock()

	if runErr != nil {
		logger.Error("sync run failed", "error", runErr, "elapsed", elapsed)
		if s.hooks.OnSyncError != nil {
			s.hooks.OnSyncError(runID, runErr, elapsed)
		}
		return nil, runErr
	}

	logger.Info("sync run succeeded", "activities", result.ActivitiesSynced, "days", result.DaysSynced, "elapsed", elapsed)
	if s.hooks.OnSyncSuccess != nil {
		s.hooks.OnSyncSuccess(runID, result, elapsed)
	}
	return result, nil
}

// runLogged wraps the runner call in a sync log entry. Exactly one running
// entry exists per invocation and it is always closed.
func (s *Scheduler) runLogged(ctx context.Context, startedAt time.Time, logger *slog.Logger) (*Result, error) {
	logID, err := s.syncLog.Open(ctx, startedAt)
	if err != nil {
		return nil, fmt.Errorf("opening sync log entry: %w", err)
	}

	result, runErr := s.runner.Run(ctx)

	status := health.SyncStatusSuccess
	details := ""
	if runErr != nil {
		status = health.SyncStatusError
		details = runErr.Error()
	} else {
		details = result.Details()
	}

	if err := s.syncLog.Close(ctx, logID, s.now(), status, details); err != nil {
		logger.Error("failed to close sync log entry", "log_id", logID, "error", err)
	}

	return result, runErr
}
