package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
)

const publicationsDir = "publications"

type PublicationRepository struct {
	store *store
}

func (r *PublicationRepository) Save(ctx context.Context, publication *models.Publication) error {
	if !validID(publication.ID) {
		return fmt.Errorf("invalid publication id %q", publication.ID)
	}

	now := time.Now().UTC()
	if publication.CreatedAt.IsZero() {
		publication.CreatedAt = now
	}

	if publication.UpdatedAt.IsZero() {
		publication.UpdatedAt = now
	}

	return r.store.write(ctx, docPath(publicationsDir, publication.ID), publication)
}

func (r *PublicationRepository) GetByID(ctx context.Context, id string) (*models.Publication, error) {
	notFound := &persistence.PublicationError{Op: "GetByID", PublicationID: id, Err: persistence.ErrPublicationNotFound}

	if !validID(id) {
		return nil, notFound
	}

	var publication models.Publication

	found, err := r.store.read(ctx, docPath(publicationsDir, id), &publication)
	if err != nil {
		return nil, &persistence.PublicationError{Op: "GetByID", PublicationID: id, Err: err}
	}

	if !found {
		return nil, notFound
	}

	return &publication, nil
}

// List returns matching publications, most recent first.
func (r *PublicationRepository) List(ctx context.Context, filter models.PublicationFilter) ([]*models.Publication, error) {
	publications, err := readAll[models.Publication](ctx, r.store, publicationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	matched := make([]*models.Publication, 0)

	for _, p := range publications {
		if p.TenantID != filter.TenantID {
			continue
		}

		if filter.UserID != "" && p.UserID != filter.UserID {
			continue
		}

		if filter.Status != "" && p.Status != filter.Status {
			continue
		}

		if filter.PublicationType != "" && p.PublicationType != filter.PublicationType {
			continue
		}

		matched = append(matched, p)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	return paginate(matched, filter.Offset, filter.Limit), nil
}

func (r *PublicationRepository) ListFailed(ctx context.Context, maxAttempts, limit int) ([]*models.Publication, error) {
	publications, err := readAll[models.Publication](ctx, r.store, publicationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	failed := make([]*models.Publication, 0)

	for _, p := range publications {
		if p.Status == models.PublicationStatusFailed && (maxAttempts <= 0 || p.Attempts < maxAttempts) {
			failed = append(failed, p)
		}
	}

	sort.SliceStable(failed, func(i, j int) bool {
		return failed[i].UpdatedAt.Before(failed[j].UpdatedAt)
	})

	return paginate(failed, 0, limit), nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset >= len(items) {
		return []T{}
	}

	items = items[max(offset, 0):]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}
