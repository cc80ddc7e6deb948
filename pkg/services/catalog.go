package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/edulab/orchestrator/pkg/validation"
	"github.com/edulab/orchestrator/pkg/workflow"
	"github.com/google/uuid"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100

	// StatusAll disables the status filter of a listing.
	StatusAll = "all"
)

// Catalog manages catalog entries of a tenant and exposes the workflow actions.
type Catalog struct {
	persistence persistence.Persistence
	engine      *workflow.Engine
	logger      *slog.Logger
	now         func() time.Time
}

// NewCatalog creates a new catalog service.
func NewCatalog(p persistence.Persistence, engine *workflow.Engine, logger *slog.Logger) *Catalog {
	return &Catalog{
		persistence: p,
		engine:      engine,
		logger:      logger.With("module", "catalog_service"),
		now:         time.Now,
	}
}

// HealthCheck checks the health of the persistence layer.
func (c *Catalog) HealthCheck(ctx context.Context) (string, bool) {
	if c.persistence == nil {
		return "Persistence layer not initialized", false
	}

	if err := c.persistence.HealthCheck(ctx); err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// CreateEntryRequest contains the editable fields of a new catalog entry.
type CreateEntryRequest struct {
	Title       string
	Description string
	Subject     string
	Level       string
	Difficulty  models.Difficulty
	Tags        []string
	Content     map[string]any
}

// CreateEntry stores a new draft authored by the actor.
func (c *Catalog) CreateEntry(ctx context.Context, actor models.Actor, req CreateEntryRequest) (*models.CatalogEntry, error) {
	if actor.Role == models.RoleStudent {
		return nil, &ServiceError{Op: "CreateEntry", Code: "FORBIDDEN", Message: "Students cannot create themes", Err: ErrForbidden}
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, NewValidationError("CreateEntry", "MISSING_TITLE", "Missing required field: title", ErrInvalidRequest)
	}

	difficulty := req.Difficulty
	if difficulty == "" {
		difficulty = models.DifficultyIntermediate
	}

	if !difficulty.IsValid() {
		return nil, NewValidationError("CreateEntry", "INVALID_DIFFICULTY",
			fmt.Sprintf("invalid difficulty '%s', allowed: beginner, intermediate, advanced", difficulty), ErrInvalidRequest)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate catalog entry id: %w", err)
	}

	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	now := c.now().UTC()

	entry := &models.CatalogEntry{
		ID:             id.String(),
		TenantID:       actor.TenantID,
		Title:          title,
		Description:    strings.TrimSpace(req.Description),
		Subject:        req.Subject,
		Level:          req.Level,
		Difficulty:     difficulty,
		Tags:           tags,
		Content:        req.Content,
		WorkflowStatus: models.WorkflowStatusDraft,
		CreatedBy:      actor.UserID,
		UpdatedBy:      actor.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := c.persistence.CatalogRepository().Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to create catalog entry: %w", err)
	}

	c.logger.InfoContext(ctx, "Catalog entry created", "catalog_entry_id", entry.ID, "tenant_id", entry.TenantID)

	return entry, nil
}

// EntryDetails is a catalog entry with its audit trail.
type EntryDetails struct {
	*models.CatalogEntry

	WorkflowHistory      []*models.WorkflowTransition `json:"workflow_history"`
	AvailableTransitions []models.WorkflowStatus      `json:"available_transitions"`
}

// GetEntry returns an entry of the actor's tenant with its history and the statuses the
// actor may move it to.
func (c *Catalog) GetEntry(ctx context.Context, actor models.Actor, id string) (*EntryDetails, error) {
	entry, err := c.persistence.CatalogRepository().GetByID(ctx, id, actor.TenantID)
	if err != nil {
		return nil, err
	}

	history, err := c.engine.GetWorkflowHistory(ctx, id, actor.TenantID)
	if err != nil {
		return nil, err
	}

	return &EntryDetails{
		CatalogEntry:         entry,
		WorkflowHistory:      history,
		AvailableTransitions: workflow.NextStatuses(entry.WorkflowStatus, actor.Role),
	}, nil
}

// History returns the workflow history of an entry, most recent first.
func (c *Catalog) History(ctx context.Context, actor models.Actor, id string) ([]*models.WorkflowTransition, error) {
	return c.engine.GetWorkflowHistory(ctx, id, actor.TenantID)
}

// ListEntriesRequest contains options for listing catalog entries.
type ListEntriesRequest struct {
	// Empty means published; StatusAll disables the filter.
	Status     string
	Subject    string
	Level      string
	Difficulty string
	Tag        string
	Search     string
	Limit      int
	Offset     int
}

// ListEntriesResponse contains one page of catalog entries.
type ListEntriesResponse struct {
	Entries []*models.CatalogEntry `json:"catalog_entries"`
	Count   int                    `json:"count"`
	Limit   int                    `json:"limit"`
	Offset  int                    `json:"offset"`
}

// ListEntries lists the tenant's entries, most recently updated first.
func (c *Catalog) ListEntries(ctx context.Context, actor models.Actor, req ListEntriesRequest) (*ListEntriesResponse, error) {
	filter := models.CatalogFilter{
		TenantID: actor.TenantID,
		Subject:  req.Subject,
		Level:    req.Level,
		Tag:      req.Tag,
		Search:   strings.TrimSpace(req.Search),
		Limit:    persistence.ClampLimit(req.Limit, defaultListLimit, maxListLimit),
		Offset:   max(req.Offset, 0),
	}

	switch req.Status {
	case StatusAll:
	case "":
		status := models.WorkflowStatusPublished
		filter.Status = &status
	default:
		status := models.WorkflowStatus(req.Status)
		if !status.IsValid() {
			return nil, NewValidationError("ListEntries", "INVALID_STATUS", fmt.Sprintf("invalid status '%s'", req.Status), ErrInvalidStatus)
		}

		filter.Status = &status
	}

	if req.Difficulty != "" {
		difficulty := models.Difficulty(req.Difficulty)
		if !difficulty.IsValid() {
			return nil, NewValidationError("ListEntries", "INVALID_DIFFICULTY",
				fmt.Sprintf("invalid difficulty '%s'", req.Difficulty), ErrInvalidRequest)
		}

		filter.Difficulty = difficulty
	}

	entries, err := c.persistence.CatalogRepository().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog entries: %w", err)
	}

	return &ListEntriesResponse{
		Entries: entries,
		Count:   len(entries),
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// StatsResponse summarizes the tenant's catalog.
type StatsResponse struct {
	TenantID     string               `json:"tenant_id"`
	TotalEntries int                  `json:"total_entries"`
	ByStatus     models.WorkflowStats `json:"by_status"`
}

func (c *Catalog) Stats(ctx context.Context, actor models.Actor) (*StatsResponse, error) {
	stats, err := c.engine.GetWorkflowStats(ctx, actor.TenantID)
	if err != nil {
		return nil, err
	}

	total := 0
	for _, count := range stats {
		total += count
	}

	return &StatsResponse{TenantID: actor.TenantID, TotalEntries: total, ByStatus: stats}, nil
}

func (c *Catalog) Submit(ctx context.Context, actor models.Actor, id, comment string) (*models.TransitionResult, error) {
	return c.engine.SubmitForValidation(ctx, id, actor, comment)
}

func (c *Catalog) Validate(ctx context.Context, actor models.Actor, id, comment string) (*models.TransitionResult, error) {
	return c.engine.ValidateTheme(ctx, id, actor, comment)
}

func (c *Catalog) Reject(ctx context.Context, actor models.Actor, id, comment string) (*models.TransitionResult, error) {
	return c.engine.RejectTheme(ctx, id, actor, comment)
}

func (c *Catalog) Publish(ctx context.Context, actor models.Actor, id, comment string) (*models.TransitionResult, error) {
	return c.engine.PublishTheme(ctx, id, actor, comment)
}

func (c *Catalog) Archive(ctx context.Context, actor models.Actor, id, reason string) (*models.TransitionResult, error) {
	return c.engine.ArchiveTheme(ctx, id, actor, reason)
}

func (c *Catalog) ReturnToDraft(ctx context.Context, actor models.Actor, id, comment string) (*models.TransitionResult, error) {
	return c.engine.ReturnToDraft(ctx, id, actor, comment)
}

// ContentReport is the outcome of checking a content document.
type ContentReport struct {
	validation.Result

	ContentType models.ContentType          `json:"content_type"`
	Suggestions validation.ImageSuggestions `json:"image_suggestions"`
}

// ValidateContent validates a content document and suggests illustrations for it.
func (c *Catalog) ValidateContent(doc map[string]any, strict bool) *ContentReport {
	doc = validation.WithContentType(doc)
	contentType, _ := doc["content_type"].(string)

	return &ContentReport{
		Result:      validation.Validate(doc, strict),
		ContentType: models.ContentType(contentType),
		Suggestions: validation.SuggestImages(doc),
	}
}

// Notifications returns the notifications addressed to the actor or to the actor's role.
func (c *Catalog) Notifications(ctx context.Context, actor models.Actor, limit int) ([]*models.Notification, error) {
	user := &models.User{ID: actor.UserID, TenantID: actor.TenantID, Role: actor.Role}

	notifications, err := c.persistence.NotificationRepository().ListForUser(ctx, user, persistence.ClampLimit(limit, defaultListLimit, maxListLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	return notifications, nil
}

// SyncUser records the display profile of a user of the actor's tenant. It feeds the
// author names shown in workflow histories. Ids owned by another tenant are reported as not
// found.
func (c *Catalog) SyncUser(ctx context.Context, actor models.Actor, user *models.User) error {
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleDirection {
		return &ServiceError{Op: "SyncUser", Code: "FORBIDDEN", Message: "Only admin or direction can manage users", Err: ErrForbidden}
	}

	if strings.TrimSpace(user.ID) == "" {
		return NewValidationError("SyncUser", "MISSING_ID", "Missing required field: id", ErrInvalidRequest)
	}

	existing, err := c.persistence.UserRepository().GetByID(ctx, user.ID)
	if err != nil && !persistence.IsUserNotFound(err) {
		return fmt.Errorf("failed to load user: %w", err)
	}

	if existing != nil && existing.TenantID != actor.TenantID {
		return userNotFound()
	}

	user.TenantID = actor.TenantID

	if err := c.persistence.UserRepository().Save(ctx, user); err != nil {
		if persistence.IsUserNotFound(err) {
			return userNotFound()
		}

		return fmt.Errorf("failed to save user: %w", err)
	}

	return nil
}

func userNotFound() error {
	return &ServiceError{Op: "SyncUser", Code: "NOT_FOUND", Message: "User not found", Err: ErrUserNotFound}
}
