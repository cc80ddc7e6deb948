package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
)

type NotificationRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *NotificationRepository) Save(ctx context.Context, notification *models.Notification) error {
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	data, err := jsonOrNull(notification.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal notification data: %w", err)
	}

	query := `
		INSERT INTO notifications (id, tenant_id, user_id, user_role, type, data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = querierFromCtx(ctx, r.db).ExecContext(ctx, query,
		notification.ID,
		notification.TenantID,
		nullString(notification.UserID),
		nullString(string(notification.UserRole)),
		notification.Type,
		data,
		notification.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save notification %s: %w", notification.ID, err)
	}

	return nil
}

func (r *NotificationRepository) ListForUser(ctx context.Context, user *models.User, limit int) ([]*models.Notification, error) {
	query := `
		SELECT id, tenant_id, user_id, user_role, type, data, created_at
		FROM notifications
		WHERE tenant_id = $1 AND (user_id = $2 OR (user_id IS NULL AND user_role = $3))
		ORDER BY created_at DESC
	`
	args := []any{user.TenantID, user.ID, user.Role}

	if limit > 0 {
		query += " LIMIT $4"
		args = append(args, limit)
	}

	rows, err := querierFromCtx(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query notifications: %w", err)
	}
	defer closeRows(ctx, r.logger, rows)

	notifications := make([]*models.Notification, 0)

	for rows.Next() {
		var (
			n            models.Notification
			userID, role sql.NullString
			data         []byte
		)

		if err := rows.Scan(&n.ID, &n.TenantID, &userID, &role, &n.Type, &data, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}

		n.UserID = userID.String
		n.UserRole = models.Role(role.String)

		if len(data) > 0 {
			if err := json.Unmarshal(data, &n.Data); err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification data: %w", err)
			}
		}

		notifications = append(notifications, &n)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notifications: %w", err)
	}

	return notifications, nil
}

// jsonOrNull marshals v, returning nil (SQL NULL) for nil maps and slices.
func jsonOrNull(v any) (any, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	if string(body) == "null" {
		return nil, nil
	}

	return body, nil
}
