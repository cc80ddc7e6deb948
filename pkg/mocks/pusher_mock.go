package mocks

import (
	"context"

	"github.com/edulab/orchestrator/pkg/ergomate"
	"github.com/stretchr/testify/mock"
)

// MockPusher is a mock implementation of ergomate.Pusher interface.
type MockPusher struct {
	mock.Mock
}

func (m *MockPusher) Push(ctx context.Context, req ergomate.PushRequest) (*ergomate.PushResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*ergomate.PushResult), args.Error(1)
}
