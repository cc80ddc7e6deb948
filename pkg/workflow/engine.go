// Package workflow implements the catalog entry state machine: allowed transitions, the role
// permission table, transition execution with its audit history, and per-tenant statistics.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/otelhelper"
	"github.com/edulab/orchestrator/pkg/persistence"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultSubmitComment   = "Submitted for validation"
	DefaultValidateComment = "Theme validated"
	DefaultPublishComment  = "Theme published to catalog"
	DefaultArchiveComment  = "Theme archived"
	DefaultDraftComment    = "Returned to draft"
)

// Notifier delivers workflow notifications. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, notification *models.Notification) error
}

// StatsCache memoizes per-tenant workflow statistics.
type StatsCache interface {
	Get(ctx context.Context, tenantID string) (models.WorkflowStats, bool, error)
	// Generation changes on every Invalidate. Set drops stats computed under an older one.
	Generation(ctx context.Context, tenantID string) (int64, error)
	Set(ctx context.Context, tenantID string, stats models.WorkflowStats, generation int64) error
	Invalidate(ctx context.Context, tenantID string) error
}

// Engine executes workflow transitions. It enforces the edge table, the role permission
// table, per-operation preconditions, and tenant isolation.
type Engine struct {
	persistence persistence.Persistence
	notifier    Notifier
	cache       StatsCache
	tracer      trace.Tracer
	logger      *slog.Logger
	now         func() time.Time
}

type Option func(*Engine)

func WithStatsCache(cache StatsCache) Option {
	return func(e *Engine) { e.cache = cache }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(e *Engine) { e.tracer = tracer }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a workflow engine. notifier may be nil.
func NewEngine(p persistence.Persistence, notifier Notifier, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		persistence: p,
		notifier:    notifier,
		tracer:      otel.Tracer("orchestrator/workflow"),
		logger:      logger.With("module", "workflow_engine"),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// action describes one public workflow operation.
type action struct {
	name            string
	target          models.WorkflowStatus
	defaultComment  string
	commentRequired bool
	// check runs the status precondition, then the ownership rule.
	check  func(entry *models.CatalogEntry, actor models.Actor) *RuleError
	notify func(entry *models.CatalogEntry, comment string) []*models.Notification
}

var (
	submitAction = action{
		name:           "submit_for_validation",
		target:         models.WorkflowStatusProposed,
		defaultComment: DefaultSubmitComment,
		check: func(entry *models.CatalogEntry, actor models.Actor) *RuleError {
			if entry.WorkflowStatus != models.WorkflowStatusDraft {
				return newRuleError(KindPreconditionFailed, "Only draft themes can be submitted for validation")
			}

			if entry.CreatedBy != actor.UserID {
				return newRuleError(KindValidationFailed, "You can only submit your own themes")
			}

			return nil
		},
		notify: func(entry *models.CatalogEntry, _ string) []*models.Notification {
			return []*models.Notification{roleNotification(entry, models.RoleReferent, models.NotificationThemeSubmitted)}
		},
	}

	validateAction = action{
		name:           "validate_theme",
		target:         models.WorkflowStatusValidated,
		defaultComment: DefaultValidateComment,
		check:          requireStatus(models.WorkflowStatusProposed, "Only proposed themes can be validated"),
		notify: func(entry *models.CatalogEntry, comment string) []*models.Notification {
			return []*models.Notification{authorNotification(entry, "validated", comment)}
		},
	}

	rejectAction = action{
		name:            "reject_theme",
		target:          models.WorkflowStatusRejected,
		commentRequired: true,
		check:           requireStatus(models.WorkflowStatusProposed, "Only proposed themes can be rejected"),
		notify: func(entry *models.CatalogEntry, comment string) []*models.Notification {
			return []*models.Notification{authorNotification(entry, "rejected", comment)}
		},
	}

	publishAction = action{
		name:           "publish_theme",
		target:         models.WorkflowStatusPublished,
		defaultComment: DefaultPublishComment,
		check:          requireStatus(models.WorkflowStatusValidated, "Only validated themes can be published"),
		notify: func(entry *models.CatalogEntry, _ string) []*models.Notification {
			return []*models.Notification{roleNotification(entry, models.RoleTeacher, models.NotificationNewCatalogTheme)}
		},
	}

	// archiving has no status precondition: the edge table decides.
	archiveAction = action{
		name:           "archive_theme",
		target:         models.WorkflowStatusArchived,
		defaultComment: DefaultArchiveComment,
	}

	draftAction = action{
		name:           "return_to_draft",
		target:         models.WorkflowStatusDraft,
		defaultComment: DefaultDraftComment,
		check: func(entry *models.CatalogEntry, actor models.Actor) *RuleError {
			if entry.WorkflowStatus == models.WorkflowStatusDraft {
				return newRuleError(KindPreconditionFailed, "Theme is already a draft")
			}

			if actor.Role == models.RoleTeacher && entry.CreatedBy != actor.UserID {
				return newRuleError(KindValidationFailed, "You can only return your own themes to draft")
			}

			return nil
		},
	}
)

func requireStatus(status models.WorkflowStatus, message string) func(*models.CatalogEntry, models.Actor) *RuleError {
	return func(entry *models.CatalogEntry, _ models.Actor) *RuleError {
		if entry.WorkflowStatus != status {
			return newRuleError(KindPreconditionFailed, "%s", message)
		}

		return nil
	}
}

// SubmitForValidation moves the actor's own draft to proposed and notifies the referents.
func (e *Engine) SubmitForValidation(ctx context.Context, entryID string, actor models.Actor, comment string) (*models.TransitionResult, error) {
	return e.run(ctx, submitAction, entryID, actor, comment)
}

// ValidateTheme approves a proposed entry and notifies its author.
func (e *Engine) ValidateTheme(ctx context.Context, entryID string, actor models.Actor, comment string) (*models.TransitionResult, error) {
	return e.run(ctx, validateAction, entryID, actor, comment)
}

// RejectTheme sends a proposed entry back to its author. comment is mandatory.
func (e *Engine) RejectTheme(ctx context.Context, entryID string, actor models.Actor, comment string) (*models.TransitionResult, error) {
	return e.run(ctx, rejectAction, entryID, actor, comment)
}

// PublishTheme makes a validated entry visible to every teacher of the tenant.
func (e *Engine) PublishTheme(ctx context.Context, entryID string, actor models.Actor, comment string) (*models.TransitionResult, error) {
	return e.run(ctx, publishAction, entryID, actor, comment)
}

// ArchiveTheme archives an entry from any status with an edge to archived.
func (e *Engine) ArchiveTheme(ctx context.Context, entryID string, actor models.Actor, reason string) (*models.TransitionResult, error) {
	return e.run(ctx, archiveAction, entryID, actor, reason)
}

// ReturnToDraft brings an entry back to draft. Teachers may only do so for their own entries.
func (e *Engine) ReturnToDraft(ctx context.Context, entryID string, actor models.Actor, comment string) (*models.TransitionResult, error) {
	return e.run(ctx, draftAction, entryID, actor, comment)
}

// TransitionStatus is the low-level primitive behind every operation. It checks the edge
// and the actor's permission, then atomically updates the status and appends the history
// record, provided the entry is still in from. It applies no operation precondition and
// sends no notification.
func (e *Engine) TransitionStatus(ctx context.Context, entryID string, actor models.Actor, from, to models.WorkflowStatus, comment string) (*models.TransitionResult, error) {
	ctx, span := e.startSpan(ctx, "workflow.transition_status", entryID, actor,
		attribute.String(otelhelper.TransitionFromKey, string(from)),
		attribute.String(otelhelper.TransitionToKey, string(to)),
	)
	defer span.End()

	result, err := func() (*models.TransitionResult, error) {
		entry, err := e.loadEntry(ctx, entryID, actor.TenantID)
		if err != nil {
			return nil, err
		}

		if !CanUserTransition(to, actor.Role) {
			return nil, forbidden(actor.Role, to)
		}

		return e.transitionStatus(ctx, entry, actor, from, to, strings.TrimSpace(comment))
	}()
	if err != nil {
		e.recordFailure(ctx, span, "transition_status", entryID, err)

		return nil, err
	}

	e.afterCommit(ctx, actor.TenantID, nil)

	return result, nil
}

// GetWorkflowHistory returns the transitions of an entry, most recent first.
func (e *Engine) GetWorkflowHistory(ctx context.Context, entryID, tenantID string) ([]*models.WorkflowTransition, error) {
	if _, err := e.loadEntry(ctx, entryID, tenantID); err != nil {
		return nil, err
	}

	transitions, err := e.persistence.HistoryRepository().ListByEntry(ctx, entryID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow history: %w", err)
	}

	return transitions, nil
}

// GetWorkflowStats counts the tenant's entries per status. Every status is present.
func (e *Engine) GetWorkflowStats(ctx context.Context, tenantID string) (models.WorkflowStats, error) {
	cacheable := false

	var generation int64

	if e.cache != nil {
		stats, ok, err := e.cache.Get(ctx, tenantID)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to read workflow stats cache", "tenant_id", tenantID, "error", err)
		} else if ok {
			return stats, nil
		}

		// the generation is read before counting so an invalidation racing the count wins
		generation, err = e.cache.Generation(ctx, tenantID)
		if err != nil {
			e.logger.WarnContext(ctx, "Failed to read workflow stats generation", "tenant_id", tenantID, "error", err)
		} else {
			cacheable = true
		}
	}

	counts, err := e.persistence.CatalogRepository().CountByStatus(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to count catalog entries: %w", err)
	}

	stats := make(models.WorkflowStats, len(models.WorkflowStatuses))
	for _, status := range models.WorkflowStatuses {
		stats[status] = counts[status]
	}

	if cacheable {
		if err := e.cache.Set(ctx, tenantID, stats, generation); err != nil {
			e.logger.WarnContext(ctx, "Failed to store workflow stats cache", "tenant_id", tenantID, "error", err)
		}
	}

	return stats, nil
}

func (e *Engine) run(ctx context.Context, act action, entryID string, actor models.Actor, comment string) (*models.TransitionResult, error) {
	ctx, span := e.startSpan(ctx, "workflow."+act.name, entryID, actor,
		attribute.String(otelhelper.TransitionToKey, string(act.target)),
	)
	defer span.End()

	comment = strings.TrimSpace(comment)

	result, entry, err := e.execute(ctx, act, entryID, actor, comment)
	if err != nil {
		e.recordFailure(ctx, span, act.name, entryID, err)

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.TransitionFromKey, string(result.PreviousStatus)))

	e.logger.InfoContext(ctx, "Workflow transition applied",
		"operation", act.name,
		"catalog_entry_id", entryID,
		"from", result.PreviousStatus,
		"to", result.NewStatus,
		"user_id", actor.UserID,
	)

	var notifications []*models.Notification
	if act.notify != nil {
		notifications = act.notify(entry, result.Comment)
	}

	e.afterCommit(ctx, actor.TenantID, notifications)

	return result, nil
}

func (e *Engine) execute(ctx context.Context, act action, entryID string, actor models.Actor, comment string) (*models.TransitionResult, *models.CatalogEntry, error) {
	if act.commentRequired && comment == "" {
		return nil, nil, newRuleError(KindValidationFailed, "Rejection comment is required")
	}

	entry, err := e.loadEntry(ctx, entryID, actor.TenantID)
	if err != nil {
		return nil, nil, err
	}

	if !CanUserTransition(act.target, actor.Role) {
		return nil, nil, forbidden(actor.Role, act.target)
	}

	if act.check != nil {
		if ruleErr := act.check(entry, actor); ruleErr != nil {
			return nil, nil, ruleErr
		}
	}

	if comment == "" {
		comment = act.defaultComment
	}

	result, err := e.transitionStatus(ctx, entry, actor, entry.WorkflowStatus, act.target, comment)
	if err != nil {
		return nil, nil, err
	}

	return result, entry, nil
}

// transitionStatus is the only path by which a workflow status changes.
func (e *Engine) transitionStatus(ctx context.Context, entry *models.CatalogEntry, actor models.Actor, from, to models.WorkflowStatus, comment string) (*models.TransitionResult, error) {
	if !IsTransitionAllowed(from, to) {
		return nil, newRuleError(KindPreconditionFailed, "Transition from %s to %s is not allowed", from, to)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate transition id: %w", err)
	}

	now := e.now().UTC()

	transition := &models.WorkflowTransition{
		ID:             id.String(),
		CatalogEntryID: entry.ID,
		UserID:         actor.UserID,
		FromStatus:     from,
		ToStatus:       to,
		CreatedAt:      now,
	}
	if comment != "" {
		transition.Comment = &comment
	}

	update := persistence.StatusUpdate{
		EntryID:   entry.ID,
		TenantID:  entry.TenantID,
		From:      from,
		To:        to,
		UpdatedBy: actor.UserID,
		UpdatedAt: now,
	}
	if to == models.WorkflowStatusPublished {
		update.PublishedAt = &now
	}

	err = e.persistence.RunInTx(ctx, func(ctx context.Context) error {
		catalog := e.persistence.CatalogRepository()

		locked, err := catalog.GetForUpdate(ctx, entry.ID, entry.TenantID)
		if err != nil {
			if persistence.IsCatalogEntryNotFound(err) {
				return entryNotFound()
			}

			return fmt.Errorf("failed to lock catalog entry: %w", err)
		}

		if locked.WorkflowStatus != from {
			return concurrentChange(locked.WorkflowStatus)
		}

		if err := catalog.UpdateStatus(ctx, update); err != nil {
			if persistence.IsStatusConflict(err) {
				return newRuleError(KindPreconditionFailed, "Theme status changed concurrently")
			}

			return fmt.Errorf("failed to update workflow status: %w", err)
		}

		if err := e.persistence.HistoryRepository().Append(ctx, transition); err != nil {
			return fmt.Errorf("failed to append workflow history: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	entry.WorkflowStatus = to
	entry.UpdatedBy = actor.UserID
	entry.UpdatedAt = now

	if update.PublishedAt != nil {
		entry.PublishedAt = update.PublishedAt
	}

	return &models.TransitionResult{
		CatalogEntryID: entry.ID,
		PreviousStatus: from,
		NewStatus:      to,
		Comment:        comment,
		TransitionID:   transition.ID,
	}, nil
}

// afterCommit runs once a transition is durable. Nothing here can fail the transition.
func (e *Engine) afterCommit(ctx context.Context, tenantID string, notifications []*models.Notification) {
	if e.cache != nil {
		if err := e.cache.Invalidate(ctx, tenantID); err != nil {
			e.logger.WarnContext(ctx, "Failed to invalidate workflow stats cache", "tenant_id", tenantID, "error", err)
		}
	}

	if e.notifier == nil {
		return
	}

	for _, notification := range notifications {
		e.dispatch(ctx, notification)
	}
}

func (e *Engine) dispatch(ctx context.Context, notification *models.Notification) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.ErrorContext(ctx, "Notification dispatch panicked", "type", notification.Type, "panic", r)
		}
	}()

	id, err := uuid.NewV7()
	if err != nil {
		e.logger.ErrorContext(ctx, "Failed to generate notification id", "error", err)

		return
	}

	notification.ID = id.String()
	notification.CreatedAt = e.now().UTC()

	if err := e.notifier.Notify(ctx, notification); err != nil {
		e.logger.WarnContext(ctx, "Failed to dispatch notification",
			"type", notification.Type,
			"tenant_id", notification.TenantID,
			"error", err,
		)
	}
}

func (e *Engine) loadEntry(ctx context.Context, entryID, tenantID string) (*models.CatalogEntry, error) {
	entry, err := e.persistence.CatalogRepository().GetByID(ctx, entryID, tenantID)
	if err != nil {
		if persistence.IsCatalogEntryNotFound(err) {
			return nil, entryNotFound()
		}

		return nil, fmt.Errorf("failed to load catalog entry: %w", err)
	}

	return entry, nil
}

func (e *Engine) startSpan(ctx context.Context, name, entryID string, actor models.Actor, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String(otelhelper.CatalogEntryIDKey, entryID),
		attribute.String(otelhelper.TenantIDKey, actor.TenantID),
	)

	return otelhelper.StartSpan(ctx, e.tracer, name, attrs...)
}

func (e *Engine) recordFailure(ctx context.Context, span trace.Span, operation, entryID string, err error) {
	if ruleErr, ok := IsRuleError(err); ok {
		otelhelper.SetRefused(span, string(ruleErr.Kind), ruleErr.Message)
		e.logger.InfoContext(ctx, "Workflow transition refused",
			"operation", operation,
			"catalog_entry_id", entryID,
			"kind", ruleErr.Kind,
			"reason", ruleErr.Message,
		)

		return
	}

	otelhelper.SetError(span, err)
	e.logger.ErrorContext(ctx, "Workflow transition failed",
		"operation", operation,
		"catalog_entry_id", entryID,
		"error", err,
	)
}

func entryNotFound() *RuleError {
	return newRuleError(KindNotFound, "Catalog entry not found")
}

func forbidden(role models.Role, to models.WorkflowStatus) *RuleError {
	return newRuleError(KindForbidden, "Role %s is not allowed to move themes to %s", role, to)
}

func concurrentChange(now models.WorkflowStatus) *RuleError {
	return newRuleError(KindPreconditionFailed, "Theme status changed concurrently (now %s)", now)
}

func roleNotification(entry *models.CatalogEntry, role models.Role, kind models.NotificationType) *models.Notification {
	return &models.Notification{
		TenantID: entry.TenantID,
		UserRole: role,
		Type:     kind,
		Data:     map[string]any{"catalog_entry_id": entry.ID, "title": entry.Title},
	}
}

func authorNotification(entry *models.CatalogEntry, outcome, comment string) *models.Notification {
	return &models.Notification{
		TenantID: entry.TenantID,
		UserID:   entry.CreatedBy,
		Type:     models.NotificationType("theme_" + outcome),
		Data: map[string]any{
			"catalog_entry_id": entry.ID,
			"title":            entry.Title,
			"action":           outcome,
			"comment":          comment,
		},
	}
}
