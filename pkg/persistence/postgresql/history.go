package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/edulab/orchestrator/pkg/models"
)

type HistoryRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *HistoryRepository) Append(ctx context.Context, transition *models.WorkflowTransition) error {
	query := `
		INSERT INTO workflow_transitions (id, catalog_entry_id, user_id, from_status, to_status, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := querierFromCtx(ctx, r.db).ExecContext(ctx, query,
		transition.ID,
		transition.CatalogEntryID,
		transition.UserID,
		transition.FromStatus,
		transition.ToStatus,
		transition.Comment,
		transition.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append transition for %s: %w", transition.CatalogEntryID, err)
	}

	return nil
}

// ListByEntry orders by creation time, then by insertion order, most recent first. Entries of
// other tenants yield no rows.
func (r *HistoryRepository) ListByEntry(ctx context.Context, entryID, tenantID string) ([]*models.WorkflowTransition, error) {
	query := `
		SELECT
			h.id
		  , h.catalog_entry_id
		  , h.user_id
		  , COALESCE(u.name, '')
		  , COALESCE(u.email, '')
		  , h.from_status
		  , h.to_status
		  , h.comment
		  , h.created_at
		FROM workflow_transitions h
		JOIN catalog_entries e ON e.id = h.catalog_entry_id AND e.tenant_id = $2
		LEFT JOIN users u ON u.id = h.user_id AND u.tenant_id = e.tenant_id
		WHERE h.catalog_entry_id = $1
		ORDER BY h.created_at DESC, h.seq DESC
	`

	rows, err := querierFromCtx(ctx, r.db).QueryContext(ctx, query, entryID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to query history of %s: %w", entryID, err)
	}
	defer closeRows(ctx, r.logger, rows)

	transitions := make([]*models.WorkflowTransition, 0)

	for rows.Next() {
		var (
			t       models.WorkflowTransition
			comment sql.NullString
		)

		err := rows.Scan(&t.ID, &t.CatalogEntryID, &t.UserID, &t.UserName, &t.UserEmail,
			&t.FromStatus, &t.ToStatus, &comment, &t.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}

		if comment.Valid {
			c := comment.String
			t.Comment = &c
		}

		transitions = append(transitions, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transitions: %w", err)
	}

	return transitions, nil
}
