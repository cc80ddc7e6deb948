// Package models defines the core domain models for the pedagogical catalog and its publication workflow.
package models

import "time"

// WorkflowStatus represents the lifecycle state of a catalog entry.
type WorkflowStatus string

const (
	WorkflowStatusDraft     WorkflowStatus = "draft"     // Editable by its author
	WorkflowStatusProposed  WorkflowStatus = "proposed"  // Waiting for a referent decision
	WorkflowStatusValidated WorkflowStatus = "validated" // Approved, not yet visible in the catalog
	WorkflowStatusPublished WorkflowStatus = "published" // Visible to every teacher of the tenant
	WorkflowStatusRejected  WorkflowStatus = "rejected"  // Sent back with a mandatory comment
	WorkflowStatusArchived  WorkflowStatus = "archived"  // Soft-deleted, can be resurrected as draft
)

// WorkflowStatuses lists every status in display order.
var WorkflowStatuses = []WorkflowStatus{
	WorkflowStatusDraft,
	WorkflowStatusProposed,
	WorkflowStatusValidated,
	WorkflowStatusPublished,
	WorkflowStatusRejected,
	WorkflowStatusArchived,
}

// IsValid reports whether s is one of the defined workflow statuses.
func (s WorkflowStatus) IsValid() bool {
	switch s {
	case WorkflowStatusDraft, WorkflowStatusProposed, WorkflowStatusValidated,
		WorkflowStatusPublished, WorkflowStatusRejected, WorkflowStatusArchived:
		return true
	default:
		return false
	}
}

func (s WorkflowStatus) String() string {
	return string(s)
}

// WorkflowTransition is an append-only audit record of a status change.
type WorkflowTransition struct {
	ID             string         `json:"id"`
	CatalogEntryID string         `json:"catalog_entry_id"`
	UserID         string         `json:"user_id"`
	UserName       string         `json:"user_name,omitempty"`
	UserEmail      string         `json:"user_email,omitempty"`
	FromStatus     WorkflowStatus `json:"from_status"`
	ToStatus       WorkflowStatus `json:"to_status"`
	Comment        *string        `json:"comment,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TransitionResult is returned by every successful workflow operation.
type TransitionResult struct {
	CatalogEntryID string         `json:"catalog_entry_id"`
	PreviousStatus WorkflowStatus `json:"previous_status"`
	NewStatus      WorkflowStatus `json:"new_status"`
	Comment        string         `json:"comment"`
	TransitionID   string         `json:"transition_id"`
}

// WorkflowStats maps each status to the number of entries currently holding it.
type WorkflowStats map[WorkflowStatus]int
