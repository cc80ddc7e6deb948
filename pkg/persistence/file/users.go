package file

import (
	"context"
	"fmt"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
)

const usersDir = "users"

type UserRepository struct {
	store *store
}

// Save inserts or replaces a user. An id already owned by another tenant is left untouched and
// reported as ErrUserNotFound.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	if !validID(user.ID) {
		return fmt.Errorf("invalid user id %q", user.ID)
	}

	return r.store.runInTx(ctx, func(ctx context.Context) error {
		existing, err := r.find(ctx, user.ID)
		if err != nil {
			return err
		}

		if existing != nil && existing.TenantID != user.TenantID {
			return fmt.Errorf("user %s: %w", user.ID, persistence.ErrUserNotFound)
		}

		return r.store.write(ctx, docPath(usersDir, user.ID), user)
	})
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := r.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if user == nil {
		return nil, fmt.Errorf("user %s: %w", id, persistence.ErrUserNotFound)
	}

	return user, nil
}

// find returns nil without error when the user does not exist.
func (r *UserRepository) find(ctx context.Context, id string) (*models.User, error) {
	if !validID(id) {
		return nil, nil
	}

	var user models.User

	found, err := r.store.read(ctx, docPath(usersDir, id), &user)
	if err != nil {
		return nil, fmt.Errorf("failed to read user %s: %w", id, err)
	}

	if !found {
		return nil, nil
	}

	return &user, nil
}
