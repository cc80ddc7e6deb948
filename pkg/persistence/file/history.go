package file

import (
	"context"
	"fmt"
	"sort"

	"github.com/edulab/orchestrator/pkg/models"
)

const historyDir = "history"

// HistoryRepository keeps the transitions of an entry in one document, in insertion order.
type HistoryRepository struct {
	store *store
	users *UserRepository
}

func (r *HistoryRepository) Append(ctx context.Context, transition *models.WorkflowTransition) error {
	if !validID(transition.CatalogEntryID) {
		return fmt.Errorf("invalid catalog entry id %q", transition.CatalogEntryID)
	}

	return r.store.runInTx(ctx, func(ctx context.Context) error {
		transitions, err := r.load(ctx, transition.CatalogEntryID)
		if err != nil {
			return err
		}

		stored := *transition
		stored.UserName = ""
		stored.UserEmail = ""

		return r.store.write(ctx, docPath(historyDir, transition.CatalogEntryID), append(transitions, &stored))
	})
}

func (r *HistoryRepository) ListByEntry(ctx context.Context, entryID, tenantID string) ([]*models.WorkflowTransition, error) {
	if !validID(entryID) {
		return []*models.WorkflowTransition{}, nil
	}

	var entry models.CatalogEntry

	found, err := r.store.read(ctx, docPath(catalogDir, entryID), &entry)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog entry %s: %w", entryID, err)
	}

	if !found || entry.TenantID != tenantID {
		return []*models.WorkflowTransition{}, nil
	}

	transitions, err := r.load(ctx, entryID)
	if err != nil {
		return nil, err
	}

	// reverse insertion order so that equal timestamps keep the latest insert first
	for i, j := 0, len(transitions)-1; i < j; i, j = i+1, j-1 {
		transitions[i], transitions[j] = transitions[j], transitions[i]
	}

	sort.SliceStable(transitions, func(i, j int) bool {
		return transitions[i].CreatedAt.After(transitions[j].CreatedAt)
	})

	names := make(map[string]*models.User)

	for _, transition := range transitions {
		user, ok := names[transition.UserID]
		if !ok {
			user, err = r.users.find(ctx, transition.UserID)
			if err != nil {
				return nil, err
			}

			names[transition.UserID] = user
		}

		if user != nil && user.TenantID == tenantID {
			transition.UserName = user.Name
			transition.UserEmail = user.Email
		}
	}

	return transitions, nil
}

func (r *HistoryRepository) load(ctx context.Context, entryID string) ([]*models.WorkflowTransition, error) {
	transitions := make([]*models.WorkflowTransition, 0)

	if _, err := r.store.read(ctx, docPath(historyDir, entryID), &transitions); err != nil {
		return nil, fmt.Errorf("failed to load history of %s: %w", entryID, err)
	}

	return transitions, nil
}
