package file

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
)

const notificationsDir = "notifications"

type NotificationRepository struct {
	store *store
}

func (r *NotificationRepository) Save(ctx context.Context, notification *models.Notification) error {
	if !validID(notification.ID) {
		return fmt.Errorf("invalid notification id %q", notification.ID)
	}

	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = time.Now().UTC()
	}

	return r.store.write(ctx, docPath(notificationsDir, notification.ID), notification)
}

func (r *NotificationRepository) ListForUser(ctx context.Context, user *models.User, limit int) ([]*models.Notification, error) {
	notifications, err := readAll[models.Notification](ctx, r.store, notificationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	matched := make([]*models.Notification, 0)

	for _, n := range notifications {
		if n.TenantID != user.TenantID {
			continue
		}

		if n.UserID == user.ID || (n.UserID == "" && n.UserRole == user.Role) {
			matched = append(matched, n)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}

	return matched, nil
}
