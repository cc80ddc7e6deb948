package web

// CreateEntryRequest represents the request body for creating a catalog entry.
type CreateEntryRequest struct {
	Title       string         `json:"title"                validate:"required,min=3,max=255"`
	Description string         `json:"description"          validate:"max=2000"`
	Subject     string         `json:"subject,omitempty"`
	Level       string         `json:"level,omitempty"`
	Difficulty  string         `json:"difficulty,omitempty" validate:"omitempty,oneof=beginner intermediate advanced"`
	Tags        []string       `json:"tags,omitempty"       validate:"max=20,dive,required,max=50"`
	Content     map[string]any `json:"content,omitempty"`
}

// TransitionRequest is the optional body of a workflow action.
type TransitionRequest struct {
	Comment string `json:"comment" validate:"max=2000"`
}

// ArchiveRequest is the optional body of an archive action.
type ArchiveRequest struct {
	Reason string `json:"reason" validate:"max=2000"`
}

// ValidateContentRequest carries a content document to check.
type ValidateContentRequest struct {
	Theme  map[string]any `json:"theme"  validate:"required"`
	Strict bool           `json:"strict"`
}

// PublishRequest represents the request body for pushing a theme to Ergo-Mate.
type PublishRequest struct {
	ThemeID         string   `json:"theme_id"                  validate:"required"`
	PublicationType string   `json:"publication_type"          validate:"required"`
	TargetClasses   []string `json:"target_classes,omitempty"`
	TargetStudents  []string `json:"target_students,omitempty"`
}

// SyncUserRequest represents the request body for recording a user profile.
type SyncUserRequest struct {
	Name  string `json:"name"  validate:"required,max=200"`
	Email string `json:"email" validate:"omitempty,email"`
	Role  string `json:"role"  validate:"required,oneof=teacher referent direction admin student"`
}
