package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/MightComeback/garmin-health-sync/internal/domain/health"
	"github.com/MightComeback/garmin-health-sync/internal/garmin"
)

// SessionStore is a mock for repository.SessionStore.
type SessionStore struct {
	mock.Mock
}

func (m *SessionStore) Load(ctx context.Context) (*garmin.Session, error) {
	args := m.Called(ctx)
	if sess, ok := args.Get(0).(*garmin.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionStore) Save(ctx context.Context, sess *garmin.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// ActivityRepository is a mock for repository.ActivityRepository.
type ActivityRepository struct {
	mock.Mock
}

func (m *ActivityRepository) Upsert(ctx context.Context, act *health.Activity) error {
	args := m.Called(ctx, act)
	return args.Error(0)
}

func (m *ActivityRepository) List(ctx context.Context, limit int) ([]health.Activity, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]health.Activity); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// DailyMetricRepository is a mock for repository.DailyMetricRepository.
type DailyMetricRepository struct {
	mock.Mock
}

func (m *DailyMetricRepository) Upsert(ctx context.Context, metric *health.DailyMetric) error {
	args := m.Called(ctx, metric)
	return args.Error(0)
}

func (m *DailyMetricRepository) List(ctx context.Context, limit int) ([]health.DailyMetric, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]health.DailyMetric); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// SyncLogRepository is a mock for repository.SyncLogRepository.
type SyncLogRepository struct {
	mock.Mock
}

func (m *SyncLogRepository) Open(ctx context.Context, startedAt time.Time) (int64, error) {
	args := m.Called(ctx, startedAt)
	return args.Get(0).(int64), args.Error(1)
}

func (m *SyncLogRepository) Close(ctx context.Context, id int64, endedAt time.Time, status health.SyncStatus, details string) error {
	args := m.Called(ctx, id, endedAt, status, details)
	return args.Error(0)
}

func (m *SyncLogRepository) ListRecent(ctx context.Context, limit int) ([]health.SyncLogEntry, error) {
	args := m.Called(ctx, limit)
	if list, ok := args.Get(0).([]health.SyncLogEntry); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
