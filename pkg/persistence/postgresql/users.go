package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
)

type UserRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// Save inserts or updates a user. An id already owned by another tenant is left untouched and
// reported as ErrUserNotFound.
func (r *UserRepository) Save(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, tenant_id, name, email, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			role = EXCLUDED.role
		WHERE users.tenant_id = EXCLUDED.tenant_id
	`

	result, err := querierFromCtx(ctx, r.db).ExecContext(ctx, query, user.ID, user.TenantID, user.Name, user.Email, user.Role)
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to save user %s: %w", user.ID, err)
	}

	if affected == 0 {
		return fmt.Errorf("user %s: %w", user.ID, persistence.ErrUserNotFound)
	}

	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User

	err := querierFromCtx(ctx, r.db).QueryRowContext(ctx,
		`SELECT id, tenant_id, name, email, role FROM users WHERE id = $1`, id,
	).Scan(&user.ID, &user.TenantID, &user.Name, &user.Email, &user.Role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, persistence.ErrUserNotFound)
		}

		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}

	return &user, nil
}

