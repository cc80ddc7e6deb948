package mocks

import (
	"context"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockNotifier is a mock implementation of workflow.Notifier interface.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

// MockStatsCache is a mock implementation of workflow.StatsCache interface.
type MockStatsCache struct {
	mock.Mock
}

func (m *MockStatsCache) Get(ctx context.Context, tenantID string) (models.WorkflowStats, bool, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}

	return args.Get(0).(models.WorkflowStats), args.Bool(1), args.Error(2)
}

func (m *MockStatsCache) Generation(ctx context.Context, tenantID string) (int64, error) {
	args := m.Called(ctx, tenantID)

	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStatsCache) Set(ctx context.Context, tenantID string, stats models.WorkflowStats, generation int64) error {
	args := m.Called(ctx, tenantID, stats, generation)

	return args.Error(0)
}

func (m *MockStatsCache) Invalidate(ctx context.Context, tenantID string) error {
	args := m.Called(ctx, tenantID)

	return args.Error(0)
}
