package file

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
)

const catalogDir = "catalog"

// CatalogRepository keeps one JSON document per catalog entry.
type CatalogRepository struct {
	store *store
}

func (r *CatalogRepository) Create(ctx context.Context, entry *models.CatalogEntry) error {
	if !validID(entry.ID) {
		return fmt.Errorf("invalid catalog entry id %q", entry.ID)
	}

	var existing models.CatalogEntry

	found, err := r.store.read(ctx, docPath(catalogDir, entry.ID), &existing)
	if err != nil {
		return persistence.NewCatalogError("Create", entry.ID, err)
	}

	if found {
		return persistence.NewCatalogError("Create", entry.ID, persistence.ErrAlreadyExists)
	}

	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}

	if entry.UpdatedAt.IsZero() {
		entry.UpdatedAt = entry.CreatedAt
	}

	return r.store.write(ctx, docPath(catalogDir, entry.ID), entry)
}

func (r *CatalogRepository) GetByID(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error) {
	return r.get(ctx, "GetByID", id, tenantID)
}

// GetForUpdate needs no extra locking: transactions already hold the store mutex.
func (r *CatalogRepository) GetForUpdate(ctx context.Context, id, tenantID string) (*models.CatalogEntry, error) {
	return r.get(ctx, "GetForUpdate", id, tenantID)
}

func (r *CatalogRepository) UpdateStatus(ctx context.Context, update persistence.StatusUpdate) error {
	return r.store.runInTx(ctx, func(ctx context.Context) error {
		entry, err := r.get(ctx, "UpdateStatus", update.EntryID, update.TenantID)
		if err != nil {
			return err
		}

		if entry.WorkflowStatus != update.From {
			return &persistence.CatalogError{
				Op:      "UpdateStatus",
				EntryID: update.EntryID,
				Err:     persistence.ErrStatusConflict,
				Message: fmt.Sprintf("expected %s, found %s", update.From, entry.WorkflowStatus),
			}
		}

		entry.WorkflowStatus = update.To
		entry.UpdatedBy = update.UpdatedBy
		entry.UpdatedAt = update.UpdatedAt

		if update.PublishedAt != nil {
			publishedAt := *update.PublishedAt
			entry.PublishedAt = &publishedAt
		}

		return r.store.write(ctx, docPath(catalogDir, entry.ID), entry)
	})
}

// List filters in memory and orders by last update, most recent first.
func (r *CatalogRepository) List(ctx context.Context, filter models.CatalogFilter) ([]*models.CatalogEntry, error) {
	entries, err := readAll[models.CatalogEntry](ctx, r.store, catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}

	search := strings.ToLower(filter.Search)
	matched := make([]*models.CatalogEntry, 0, len(entries))

	for _, entry := range entries {
		if entry.TenantID != filter.TenantID {
			continue
		}

		if filter.Status != nil && entry.WorkflowStatus != *filter.Status {
			continue
		}

		if filter.Subject != "" && entry.Subject != filter.Subject {
			continue
		}

		if filter.Level != "" && entry.Level != filter.Level {
			continue
		}

		if filter.Difficulty != "" && entry.Difficulty != filter.Difficulty {
			continue
		}

		if filter.Tag != "" && !entry.HasTag(filter.Tag) {
			continue
		}

		if search != "" && !matchesSearch(entry, search) {
			continue
		}

		matched = append(matched, entry)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].ID < matched[j].ID
		}

		return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
	})

	return paginate(matched, filter.Offset, filter.Limit), nil
}

func (r *CatalogRepository) CountByStatus(ctx context.Context, tenantID string) (models.WorkflowStats, error) {
	entries, err := readAll[models.CatalogEntry](ctx, r.store, catalogDir)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog entries: %w", err)
	}

	stats := make(models.WorkflowStats)

	for _, entry := range entries {
		if entry.TenantID == tenantID {
			stats[entry.WorkflowStatus]++
		}
	}

	return stats, nil
}

func (r *CatalogRepository) get(ctx context.Context, op, id, tenantID string) (*models.CatalogEntry, error) {
	if !validID(id) {
		return nil, persistence.NewCatalogError(op, id, persistence.ErrCatalogEntryNotFound)
	}

	var entry models.CatalogEntry

	found, err := r.store.read(ctx, docPath(catalogDir, id), &entry)
	if err != nil {
		return nil, persistence.NewCatalogError(op, id, err)
	}

	if !found || entry.TenantID != tenantID {
		return nil, persistence.NewCatalogError(op, id, persistence.ErrCatalogEntryNotFound)
	}

	return &entry, nil
}

func matchesSearch(entry *models.CatalogEntry, search string) bool {
	if strings.Contains(strings.ToLower(entry.Title), search) ||
		strings.Contains(strings.ToLower(entry.Description), search) {
		return true
	}

	for _, tag := range entry.Tags {
		if strings.Contains(strings.ToLower(tag), search) {
			return true
		}
	}

	return false
}
