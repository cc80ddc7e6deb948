package models

import "time"

// NotificationType identifies the reason a notification was emitted.
type NotificationType string

const (
	NotificationThemeSubmitted     NotificationType = "theme_submitted"
	NotificationThemeValidated     NotificationType = "theme_validated"
	NotificationThemeRejected      NotificationType = "theme_rejected"
	NotificationNewCatalogTheme    NotificationType = "new_catalog_theme"
	NotificationPublicationResult  NotificationType = "publication_result"
	NotificationPublicationAckRecv NotificationType = "publication_acknowledged"
)

// Notification is addressed either to a single user or to every user of a role in a tenant.
type Notification struct {
	ID        string           `json:"id"`
	TenantID  string           `json:"tenant_id"`
	UserID    string           `json:"user_id,omitempty"`
	UserRole  Role             `json:"user_role,omitempty"`
	Type      NotificationType `json:"type"`
	Data      map[string]any   `json:"data,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
