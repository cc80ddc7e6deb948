package models

import "time"

// Difficulty is the pedagogical level of a theme.
type Difficulty string

const (
	DifficultyBeginner     Difficulty = "beginner"
	DifficultyIntermediate Difficulty = "intermediate"
	DifficultyAdvanced     Difficulty = "advanced"
)

// IsValid reports whether d is a known difficulty.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyBeginner, DifficultyIntermediate, DifficultyAdvanced:
		return true
	default:
		return false
	}
}

// CatalogEntry is a pedagogical theme proposal owned by a tenant.
type CatalogEntry struct {
	ID               string         `json:"id"`
	TenantID         string         `json:"tenant_id"`
	Title            string         `json:"title"`
	Description      string         `json:"description"`
	Subject          string         `json:"subject,omitempty"`
	Level            string         `json:"level,omitempty"`
	Difficulty       Difficulty     `json:"difficulty"`
	Tags             []string       `json:"tags"`
	Content          map[string]any `json:"content,omitempty"`
	WorkflowStatus   WorkflowStatus `json:"workflow_status"`
	CurrentVersionID string         `json:"current_version_id,omitempty"`
	CreatedBy        string         `json:"created_by"`
	UpdatedBy        string         `json:"updated_by,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	PublishedAt      *time.Time     `json:"published_at,omitempty"`
}

// HasTag reports whether the entry carries the given tag.
func (e *CatalogEntry) HasTag(tag string) bool {
	for _, t := range e.Tags {
		if t == tag {
			return true
		}
	}

	return false
}

// CatalogFilter narrows a catalog listing. TenantID is mandatory.
type CatalogFilter struct {
	TenantID   string
	Status     *WorkflowStatus
	Subject    string
	Level      string
	Difficulty Difficulty
	Tag        string
	Search     string
	Limit      int
	Offset     int
}
