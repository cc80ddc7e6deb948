package models

import "time"

// PublicationType selects the partner endpoint a theme is pushed to.
type PublicationType string

const (
	PublicationTypeCatalog    PublicationType = "catalog"
	PublicationTypeAssignment PublicationType = "assignment"
)

// PublicationStatus tracks a push to the partner system.
type PublicationStatus string

const (
	PublicationStatusPending      PublicationStatus = "pending"
	PublicationStatusPublished    PublicationStatus = "published"
	PublicationStatusFailed       PublicationStatus = "failed"
	PublicationStatusAcknowledged PublicationStatus = "acknowledged"
	PublicationStatusRejected     PublicationStatus = "rejected"
)

// Publication records one push of a catalog theme to Ergo-Mate.
type Publication struct {
	ID                   string            `json:"id"`
	TenantID             string            `json:"tenant_id"`
	UserID               string            `json:"user_id"`
	CatalogEntryID       string            `json:"catalog_entry_id"`
	PublicationType      PublicationType   `json:"publication_type"`
	TargetClasses        []string          `json:"target_classes,omitempty"`
	TargetStudents       []string          `json:"target_students,omitempty"`
	Status               PublicationStatus `json:"status"`
	ErgomateThemeID      string            `json:"ergomate_theme_id,omitempty"`
	ErgomateAssignmentID string            `json:"ergomate_assignment_id,omitempty"`
	ErrorMessage         string            `json:"error_message,omitempty"`
	Attempts             int               `json:"attempts"`
	AckData              map[string]any    `json:"ack_data,omitempty"`
	AckReceivedAt        *time.Time        `json:"ack_received_at,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
	UpdatedAt            time.Time         `json:"updated_at"`
}

// PublicationFilter narrows a publication listing.
type PublicationFilter struct {
	TenantID        string
	UserID          string
	Status          PublicationStatus
	PublicationType PublicationType
	Limit           int
	Offset          int
}
