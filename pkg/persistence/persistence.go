// Package persistence provides the storage abstraction for the catalog, its workflow history,
// users, notifications and partner publications.
package persistence

import (
	"context"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
)

// TxFunc is a unit of work. Repositories called with the ctx it receives join the transaction.
type TxFunc func(ctx context.Context) error

type Persistence interface {
	// RunInTx runs fn atomically. An error or panic from fn rolls back every write made through
	// the transaction context. Calls nested inside fn join the outer transaction.
	RunInTx(ctx context.Context, fn TxFunc) error

	CatalogRepository() CatalogRepository
	HistoryRepository() HistoryRepository
	UserRepository() UserRepository
	NotificationRepository() NotificationRepository
	PublicationRepository() PublicationRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// StatusUpdate moves an entry from one workflow status to another.
type StatusUpdate struct {
	EntryID     string
	TenantID    string
	From        models.WorkflowStatus
	To          models.WorkflowStatus
	UpdatedBy   string
	UpdatedAt   time.Time
	PublishedAt *time.Time // only written when set
}

// CatalogRepository stores catalog entries. Every read is scoped by tenant.
type CatalogRepository interface {
	Create(ctx context.Context, entry *models.CatalogEntry) error
	GetByID(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error)
	// GetForUpdate reads the entry and locks it until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error)
	// UpdateStatus applies the update only if the stored status still equals From,
	// otherwise it returns ErrStatusConflict.
	UpdateStatus(ctx context.Context, update StatusUpdate) error
	List(ctx context.Context, filter models.CatalogFilter) ([]*models.CatalogEntry, error)
	CountByStatus(ctx context.Context, tenantID string) (models.WorkflowStats, error)
}

// HistoryRepository stores workflow transitions. Records are never updated or deleted.
type HistoryRepository interface {
	Append(ctx context.Context, transition *models.WorkflowTransition) error
	// ListByEntry returns the most recent transition first, with the actor's name and email.
	// Entries of other tenants yield no transitions and only users of tenantID name actors.
	ListByEntry(ctx context.Context, entryID, tenantID string) ([]*models.WorkflowTransition, error)
}

type UserRepository interface {
	Save(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}

type NotificationRepository interface {
	Save(ctx context.Context, notification *models.Notification) error
	// ListForUser returns notifications addressed to the user directly or to its role, newest first.
	ListForUser(ctx context.Context, user *models.User, limit int) ([]*models.Notification, error)
}

type PublicationRepository interface {
	// Save inserts or replaces a publication.
	Save(ctx context.Context, publication *models.Publication) error
	GetByID(ctx context.Context, id string) (*models.Publication, error)
	List(ctx context.Context, filter models.PublicationFilter) ([]*models.Publication, error)
	// ListFailed returns failed publications with fewer than maxAttempts attempts, oldest
	// update first. maxAttempts <= 0 disables the cap.
	ListFailed(ctx context.Context, maxAttempts, limit int) ([]*models.Publication, error)
}

// ClampLimit normalizes a page size to 1..maxLimit, using def when limit is not positive.
func ClampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}

	if limit > maxLimit {
		return maxLimit
	}

	return limit
}
