package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edulab/orchestrator/pkg/ergomate"
	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/otelhelper"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/edulab/orchestrator/pkg/validation"
	"github.com/edulab/orchestrator/pkg/workflow"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultRetryBatch = 20

	// MaxPublishAttempts caps the pushes of one publication, retries included.
	MaxPublishAttempts = 5
)

var acknowledgementSchema = map[string]any{
	"type":     "object",
	"required": []any{"publication_id", "status"},
	"properties": map[string]any{
		"publication_id":         map[string]any{"type": "string", "minLength": 1},
		"status":                 map[string]any{"type": "string", "enum": []any{"pending", "published", "failed", "acknowledged", "rejected"}},
		"ergomate_theme_id":      map[string]any{"type": []any{"string", "null"}},
		"ergomate_assignment_id": map[string]any{"type": []any{"string", "null"}},
		"data":                   map[string]any{"type": []any{"object", "null"}},
	},
}

// Publishing pushes published catalog themes to Ergo-Mate and tracks the outcome.
type Publishing struct {
	persistence persistence.Persistence
	pusher      ergomate.Pusher
	notifier    workflow.Notifier
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

// NewPublishing creates a new publishing service. notifier may be nil.
func NewPublishing(p persistence.Persistence, pusher ergomate.Pusher, notifier workflow.Notifier, logger *slog.Logger) *Publishing {
	return &Publishing{
		persistence: p,
		pusher:      pusher,
		notifier:    notifier,
		tracer:      otel.Tracer("orchestrator/publishing"),
		logger:      logger.With("module", "publishing_service"),
		now:         time.Now,
	}
}

// PublishRequest selects what to push and to whom.
type PublishRequest struct {
	CatalogEntryID  string
	PublicationType models.PublicationType
	TargetClasses   []string
	TargetStudents  []string
}

// PublishTheme validates a published entry against the partner profile, records a
// publication and pushes it. When the push fails the failed publication is returned together
// with an error wrapping ErrPublicationFailed.
func (s *Publishing) PublishTheme(ctx context.Context, actor models.Actor, req PublishRequest) (*models.Publication, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "publishing.PublishTheme",
		attribute.String(otelhelper.CatalogEntryIDKey, req.CatalogEntryID),
		attribute.String(otelhelper.TenantIDKey, actor.TenantID),
	)
	defer span.End()

	switch req.PublicationType {
	case models.PublicationTypeCatalog:
	case models.PublicationTypeAssignment:
		if len(req.TargetClasses) == 0 && len(req.TargetStudents) == 0 {
			return nil, NewValidationError("PublishTheme", "VALIDATION_ERROR",
				"target_classes or target_students required for assignment publication", ErrTargetsRequired)
		}
	default:
		return nil, NewValidationError("PublishTheme", "VALIDATION_ERROR",
			`Invalid publication_type. Must be "catalog" or "assignment"`, ErrInvalidPublicationType)
	}

	if actor.Role == models.RoleStudent {
		return nil, &ServiceError{Op: "PublishTheme", Code: "FORBIDDEN", Message: "Students cannot publish themes", Err: ErrForbidden}
	}

	entry, err := s.persistence.CatalogRepository().GetByID(ctx, req.CatalogEntryID, actor.TenantID)
	if err != nil {
		return nil, err
	}

	if entry.WorkflowStatus != models.WorkflowStatusPublished {
		return nil, NewValidationError("PublishTheme", "VALIDATION_ERROR",
			"Only published themes can be pushed to Ergo-Mate", ErrNotPublished)
	}

	doc := themeDocument(entry)

	if result := validation.Validate(doc, true); !result.Valid {
		return nil, &ServiceError{
			Op:      "PublishTheme",
			Code:    "VALIDATION_ERROR",
			Message: "Theme is not Ergo-Mate compliant",
			Details: result.Errors,
			Err:     ErrNotCompliant,
		}
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate publication id: %w", err)
	}

	now := s.now().UTC()

	publication := &models.Publication{
		ID:              id.String(),
		TenantID:        actor.TenantID,
		UserID:          actor.UserID,
		CatalogEntryID:  entry.ID,
		PublicationType: req.PublicationType,
		TargetClasses:   req.TargetClasses,
		TargetStudents:  req.TargetStudents,
		Status:          models.PublicationStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.persistence.PublicationRepository().Save(ctx, publication); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to record publication: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.PublicationIDKey, publication.ID))

	if err := s.push(ctx, publication, entry.Title, doc); err != nil {
		otelhelper.SetError(span, err)

		return publication, err
	}

	return publication, nil
}

// push sends the publication and stores its outcome.
func (s *Publishing) push(ctx context.Context, publication *models.Publication, title string, doc map[string]any) error {
	result, pushErr := s.pusher.Push(ctx, ergomate.PushRequest{
		TenantID:       publication.TenantID,
		Type:           publication.PublicationType,
		Theme:          doc,
		TargetClasses:  publication.TargetClasses,
		TargetStudents: publication.TargetStudents,
	})

	publication.Attempts++
	publication.UpdatedAt = s.now().UTC()

	switch {
	case ergomate.IsRejection(pushErr):
		publication.Status = models.PublicationStatusRejected
		publication.ErrorMessage = pushErr.Error()
	case pushErr != nil:
		publication.Status = models.PublicationStatusFailed
		publication.ErrorMessage = pushErr.Error()
	default:
		publication.Status = models.PublicationStatusPublished
		publication.ErrorMessage = ""
		publication.ErgomateThemeID = result.ThemeID
		publication.ErgomateAssignmentID = result.AssignmentID
	}

	if err := s.persistence.PublicationRepository().Save(ctx, publication); err != nil {
		return fmt.Errorf("failed to record publication outcome: %w", err)
	}

	if pushErr != nil {
		s.logger.ErrorContext(ctx, "Ergo-Mate publication failed",
			"publication_id", publication.ID,
			"attempts", publication.Attempts,
			"error", pushErr,
		)

		return &ServiceError{Op: "PublishTheme", Code: "PUBLICATION_ERROR", Message: pushErr.Error(), Err: fmt.Errorf("%w: %w", ErrPublicationFailed, pushErr)}
	}

	s.logger.InfoContext(ctx, "Theme published to Ergo-Mate",
		"publication_id", publication.ID,
		"catalog_entry_id", publication.CatalogEntryID,
		"publication_type", publication.PublicationType,
	)

	s.notify(ctx, &models.Notification{
		TenantID: publication.TenantID,
		UserID:   publication.UserID,
		Type:     models.NotificationPublicationResult,
		Data: map[string]any{
			"publication_id":   publication.ID,
			"catalog_entry_id": publication.CatalogEntryID,
			"title":            title,
			"status":           string(publication.Status),
		},
	})

	return nil
}

// Acknowledgement is a decoded Ergo-Mate acknowledgement.
type Acknowledgement struct {
	PublicationID        string
	Status               models.PublicationStatus
	ErgomateThemeID      string
	ErgomateAssignmentID string
	Data                 map[string]any
}

// Acknowledge applies an Ergo-Mate acknowledgement to the publication it names. The payload
// is the decoded JSON body of the partner callback.
func (s *Publishing) Acknowledge(ctx context.Context, payload map[string]any) (*models.Publication, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "publishing.Acknowledge")
	defer span.End()

	ack, err := parseAcknowledgement(payload)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.PublicationIDKey, ack.PublicationID))

	publication, err := s.persistence.PublicationRepository().GetByID(ctx, ack.PublicationID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()

	publication.Status = ack.Status
	publication.AckData = ack.Data
	publication.AckReceivedAt = &now
	publication.UpdatedAt = now

	if ack.ErgomateThemeID != "" {
		publication.ErgomateThemeID = ack.ErgomateThemeID
	}

	if ack.ErgomateAssignmentID != "" {
		publication.ErgomateAssignmentID = ack.ErgomateAssignmentID
	}

	if err := s.persistence.PublicationRepository().Save(ctx, publication); err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to record acknowledgement: %w", err)
	}

	s.logger.InfoContext(ctx, "Ergo-Mate acknowledgement received", "publication_id", publication.ID, "status", publication.Status)

	s.notify(ctx, &models.Notification{
		TenantID: publication.TenantID,
		UserID:   publication.UserID,
		Type:     models.NotificationPublicationAckRecv,
		Data: map[string]any{
			"publication_id":   publication.ID,
			"catalog_entry_id": publication.CatalogEntryID,
			"status":           string(publication.Status),
		},
	})

	return publication, nil
}

func parseAcknowledgement(payload map[string]any) (*Acknowledgement, error) {
	if payload == nil {
		return nil, NewValidationError("Acknowledge", "VALIDATION_ERROR", "Missing acknowledgement payload", ErrInvalidAcknowledgement)
	}

	schemaLoader := gojsonschema.NewGoLoader(acknowledgementSchema)
	dataLoader := gojsonschema.NewGoLoader(payload)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return nil, fmt.Errorf("failed to validate acknowledgement: %w", err)
	}

	if !result.Valid() {
		var details []string
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return nil, &ServiceError{
			Op:      "Acknowledge",
			Code:    "VALIDATION_ERROR",
			Message: "Invalid acknowledgement: " + strings.Join(details, "; "),
			Details: details,
			Err:     ErrInvalidAcknowledgement,
		}
	}

	ack := &Acknowledgement{
		PublicationID: payload["publication_id"].(string),
		Status:        models.PublicationStatus(payload["status"].(string)),
	}

	ack.ErgomateThemeID, _ = payload["ergomate_theme_id"].(string)
	ack.ErgomateAssignmentID, _ = payload["ergomate_assignment_id"].(string)
	ack.Data, _ = payload["data"].(map[string]any)

	return ack, nil
}

// ListPublicationsRequest contains options for listing publications.
type ListPublicationsRequest struct {
	Status          models.PublicationStatus
	PublicationType models.PublicationType
	Limit           int
	Offset          int
}

// ListPublications lists the tenant's publications, newest first. Teachers only see their own.
func (s *Publishing) ListPublications(ctx context.Context, actor models.Actor, req ListPublicationsRequest) ([]*models.Publication, error) {
	filter := models.PublicationFilter{
		TenantID:        actor.TenantID,
		Status:          req.Status,
		PublicationType: req.PublicationType,
		Limit:           persistence.ClampLimit(req.Limit, defaultListLimit, maxListLimit),
		Offset:          max(req.Offset, 0),
	}

	if actor.Role == models.RoleTeacher {
		filter.UserID = actor.UserID
	}

	publications, err := s.persistence.PublicationRepository().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list publications: %w", err)
	}

	return publications, nil
}

// GetPublication returns a publication of the actor's tenant.
func (s *Publishing) GetPublication(ctx context.Context, actor models.Actor, id string) (*models.Publication, error) {
	publication, err := s.persistence.PublicationRepository().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if publication.TenantID != actor.TenantID {
		return nil, persistence.ErrPublicationNotFound
	}

	if actor.Role == models.RoleTeacher && publication.UserID != actor.UserID {
		return nil, persistence.ErrPublicationNotFound
	}

	return publication, nil
}

// RetryReport summarizes one retry pass.
type RetryReport struct {
	Attempted int
	Succeeded int
	Failed    int
	Skipped   int
}

// RetryFailed pushes failed publications again, oldest first. Publications that reached
// MaxPublishAttempts are left failed. Publications whose entry is gone or no longer published
// are skipped.
func (s *Publishing) RetryFailed(ctx context.Context, limit int) (RetryReport, error) {
	ctx, span := otelhelper.StartSpan(ctx, s.tracer, "publishing.RetryFailed")
	defer span.End()

	report := RetryReport{}

	failed, err := s.persistence.PublicationRepository().ListFailed(ctx, MaxPublishAttempts, persistence.ClampLimit(limit, defaultRetryBatch, maxListLimit))
	if err != nil {
		otelhelper.SetError(span, err)

		return report, fmt.Errorf("failed to list failed publications: %w", err)
	}

	for _, publication := range failed {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}

		entry, err := s.persistence.CatalogRepository().GetByID(ctx, publication.CatalogEntryID, publication.TenantID)
		if err != nil && !persistence.IsCatalogEntryNotFound(err) {
			return report, fmt.Errorf("failed to load catalog entry: %w", err)
		}

		if entry == nil || entry.WorkflowStatus != models.WorkflowStatusPublished {
			report.Skipped++

			continue
		}

		report.Attempted++

		if err := s.push(ctx, publication, entry.Title, themeDocument(entry)); err != nil {
			if !IsPartnerError(err) {
				return report, err
			}

			report.Failed++

			continue
		}

		report.Succeeded++
	}

	s.logger.InfoContext(ctx, "Publication retry pass finished",
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
	)

	return report, nil
}

func (s *Publishing) notify(ctx context.Context, notification *models.Notification) {
	if s.notifier == nil {
		return
	}

	id, err := uuid.NewV7()
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to generate notification id", "error", err)

		return
	}

	notification.ID = id.String()
	notification.CreatedAt = s.now().UTC()

	if err := s.notifier.Notify(ctx, notification); err != nil {
		s.logger.WarnContext(ctx, "Failed to dispatch notification", "type", notification.Type, "error", err)
	}
}

// themeDocument builds the partner document of an entry. Content fields win over the
// entry's own metadata; content_type is inferred when missing.
func themeDocument(entry *models.CatalogEntry) map[string]any {
	doc := make(map[string]any, len(entry.Content)+3)
	doc["title"] = entry.Title
	doc["description"] = entry.Description
	doc["difficulty"] = string(entry.Difficulty)

	for k, v := range entry.Content {
		doc[k] = v
	}

	return validation.WithContentType(doc)
}
