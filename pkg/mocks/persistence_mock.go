package mocks

import (
	"context"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/stretchr/testify/mock"
)

// MockPersistence wires mock repositories. RunInTx calls fn directly unless TxErr is set.
type MockPersistence struct {
	Catalog       *MockCatalogRepository
	History       *MockHistoryRepository
	Users         persistence.UserRepository
	Notifications *MockNotificationRepository
	Publications  persistence.PublicationRepository
	TxErr         error
}

func NewMockPersistence() *MockPersistence {
	return &MockPersistence{
		Catalog:       &MockCatalogRepository{},
		History:       &MockHistoryRepository{},
		Notifications: &MockNotificationRepository{},
	}
}

func (m *MockPersistence) RunInTx(ctx context.Context, fn persistence.TxFunc) error {
	if m.TxErr != nil {
		return m.TxErr
	}

	return fn(ctx)
}

func (m *MockPersistence) CatalogRepository() persistence.CatalogRepository {
	return m.Catalog
}

func (m *MockPersistence) HistoryRepository() persistence.HistoryRepository {
	return m.History
}

func (m *MockPersistence) UserRepository() persistence.UserRepository {
	return m.Users
}

func (m *MockPersistence) NotificationRepository() persistence.NotificationRepository {
	return m.Notifications
}

func (m *MockPersistence) PublicationRepository() persistence.PublicationRepository {
	return m.Publications
}

func (m *MockPersistence) HealthCheck(ctx context.Context) error {
	return nil
}

func (m *MockPersistence) Close(ctx context.Context) error {
	return nil
}

// MockCatalogRepository is a mock implementation of persistence.CatalogRepository interface.
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) Create(ctx context.Context, entry *models.CatalogEntry) error {
	args := m.Called(ctx, entry)

	return args.Error(0)
}

func (m *MockCatalogRepository) GetByID(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error) {
	args := m.Called(ctx, id, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CatalogEntry), args.Error(1)
}

func (m *MockCatalogRepository) GetForUpdate(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error) {
	args := m.Called(ctx, id, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*models.CatalogEntry), args.Error(1)
}

func (m *MockCatalogRepository) UpdateStatus(ctx context.Context, update persistence.StatusUpdate) error {
	args := m.Called(ctx, update)

	return args.Error(0)
}

func (m *MockCatalogRepository) List(ctx context.Context, filter models.CatalogFilter) ([]*models.CatalogEntry, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.CatalogEntry), args.Error(1)
}

func (m *MockCatalogRepository) CountByStatus(ctx context.Context, tenantID string) (models.WorkflowStats, error) {
	args := m.Called(ctx, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(models.WorkflowStats), args.Error(1)
}

// MockHistoryRepository is a mock implementation of persistence.HistoryRepository interface.
type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, transition *models.WorkflowTransition) error {
	args := m.Called(ctx, transition)

	return args.Error(0)
}

func (m *MockHistoryRepository) ListByEntry(ctx context.Context, entryID, tenantID string) ([]*models.WorkflowTransition, error) {
	args := m.Called(ctx, entryID, tenantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.WorkflowTransition), args.Error(1)
}

// MockNotificationRepository is a mock implementation of persistence.NotificationRepository interface.
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Save(ctx context.Context, notification *models.Notification) error {
	args := m.Called(ctx, notification)

	return args.Error(0)
}

func (m *MockNotificationRepository) ListForUser(ctx context.Context, user *models.User, limit int) ([]*models.Notification, error) {
	args := m.Called(ctx, user, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]*models.Notification), args.Error(1)
}
