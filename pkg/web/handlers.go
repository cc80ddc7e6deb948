// Package web provides the HTTP handlers of the catalog orchestrator API.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/edulab/orchestrator/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	catalog    *services.Catalog
	publishing *services.Publishing
	validator  *validator.Validate
	logger     *slog.Logger
}

func NewAPIHandlers(
	catalog *services.Catalog,
	publishing *services.Publishing,
	validator *validator.Validate,
	logger *slog.Logger,
) *APIHandlers {
	return &APIHandlers{
		catalog:    catalog,
		publishing: publishing,
		validator:  validator,
		logger:     logger.With("module", "api"),
	}
}

// RegisterRoutes mounts every endpoint on router. Everything but /health and the partner
// acknowledgement callback requires an identity. Route middleware goes after the handler
// argument and runs before it.
func RegisterRoutes(router fiber.Router, h *APIHandlers) {
	router.Get("/health", h.HealthCheck)
	router.Post("/publications/acknowledge", h.AcknowledgePublication)

	catalog := router.Group("/catalog", RequireActor)
	catalog.Post("/", h.CreateEntry)
	catalog.Get("/", h.ListEntries)
	catalog.Get("/stats", h.GetStats)
	catalog.Get("/:id", h.GetEntry)
	catalog.Get("/:id/history", h.GetHistory)
	catalog.Post("/:id/submit", h.transition((*services.Catalog).Submit))
	catalog.Post("/:id/validate", h.transition((*services.Catalog).Validate))
	catalog.Post("/:id/reject", h.transition((*services.Catalog).Reject))
	catalog.Post("/:id/publish", h.transition((*services.Catalog).Publish))
	catalog.Post("/:id/archive", h.ArchiveEntry)
	catalog.Post("/:id/draft", h.transition((*services.Catalog).ReturnToDraft))

	router.Post("/content/validate", h.ValidateContent, RequireActor)

	publications := router.Group("/publications", RequireActor)
	publications.Post("/", h.PublishTheme)
	publications.Get("/", h.ListPublications)
	publications.Get("/:id", h.GetPublication)

	router.Get("/notifications", h.ListNotifications, RequireActor)
	router.Put("/users/:id", h.SyncUser, RequireActor)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	repositoryCheck, ok := h.catalog.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Orchestrator API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if ok {
		status = "healthy"
		message = "Orchestrator API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func (h *APIHandlers) CreateEntry(c fiber.Ctx) error {
	var req CreateEntryRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	entry, err := h.catalog.CreateEntry(c.Context(), actorFrom(c), services.CreateEntryRequest{
		Title:       req.Title,
		Description: req.Description,
		Subject:     req.Subject,
		Level:       req.Level,
		Difficulty:  models.Difficulty(req.Difficulty),
		Tags:        req.Tags,
		Content:     req.Content,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(entry)
}

func (h *APIHandlers) ListEntries(c fiber.Ctx) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	result, err := h.catalog.ListEntries(c.Context(), actorFrom(c), services.ListEntriesRequest{
		Status:     c.Query("status"),
		Subject:    c.Query("subject"),
		Level:      c.Query("level"),
		Difficulty: c.Query("difficulty"),
		Tag:        c.Query("tag"),
		Search:     c.Query("search"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) GetStats(c fiber.Ctx) error {
	stats, err := h.catalog.Stats(c.Context(), actorFrom(c))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(stats)
}

func (h *APIHandlers) GetEntry(c fiber.Ctx) error {
	details, err := h.catalog.GetEntry(c.Context(), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(details)
}

func (h *APIHandlers) GetHistory(c fiber.Ctx) error {
	history, err := h.catalog.History(c.Context(), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"catalog_entry_id": c.Params("id"),
		"history":          history,
	})
}

type transitionFunc func(catalog *services.Catalog, ctx context.Context, actor models.Actor, id, comment string) (*models.TransitionResult, error)

// transition builds the handler of a workflow action taking an optional comment.
func (h *APIHandlers) transition(action transitionFunc) fiber.Handler {
	return func(c fiber.Ctx) error {
		var req TransitionRequest
		if detail, ok := h.bindOptional(c, &req); !ok {
			return badRequest(c, detail)
		}

		result, err := action(h.catalog, c.Context(), actorFrom(c), c.Params("id"), req.Comment)
		if err != nil {
			return h.fail(c, err)
		}

		return c.JSON(result)
	}
}

func (h *APIHandlers) ArchiveEntry(c fiber.Ctx) error {
	var req ArchiveRequest
	if detail, ok := h.bindOptional(c, &req); !ok {
		return badRequest(c, detail)
	}

	result, err := h.catalog.Archive(c.Context(), actorFrom(c), c.Params("id"), req.Reason)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(result)
}

func (h *APIHandlers) ValidateContent(c fiber.Ctx) error {
	var req ValidateContentRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	return c.JSON(h.catalog.ValidateContent(req.Theme, req.Strict))
}

func (h *APIHandlers) PublishTheme(c fiber.Ctx) error {
	var req PublishRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	publication, err := h.publishing.PublishTheme(c.Context(), actorFrom(c), services.PublishRequest{
		CatalogEntryID:  req.ThemeID,
		PublicationType: models.PublicationType(req.PublicationType),
		TargetClasses:   req.TargetClasses,
		TargetStudents:  req.TargetStudents,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(publication)
}

func (h *APIHandlers) AcknowledgePublication(c fiber.Ctx) error {
	var payload map[string]any
	if err := c.Bind().JSON(&payload); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	publication, err := h.publishing.Acknowledge(c.Context(), payload)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"success":        true,
		"publication_id": publication.ID,
		"status":         publication.Status,
	})
}

func (h *APIHandlers) ListPublications(c fiber.Ctx) error {
	limit, offset, err := pagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	publications, err := h.publishing.ListPublications(c.Context(), actorFrom(c), services.ListPublicationsRequest{
		Status:          models.PublicationStatus(c.Query("status")),
		PublicationType: models.PublicationType(c.Query("publication_type")),
		Limit:           limit,
		Offset:          offset,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{
		"publications": publications,
		"count":        len(publications),
	})
}

func (h *APIHandlers) GetPublication(c fiber.Ctx) error {
	publication, err := h.publishing.GetPublication(c.Context(), actorFrom(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(publication)
}

func (h *APIHandlers) ListNotifications(c fiber.Ctx) error {
	limit, _, err := pagination(c)
	if err != nil {
		return badRequest(c, "Invalid query parameters: "+err.Error())
	}

	notifications, err := h.catalog.Notifications(c.Context(), actorFrom(c), limit)
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"notifications": notifications})
}

func (h *APIHandlers) SyncUser(c fiber.Ctx) error {
	var req SyncUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	user := &models.User{
		ID:    c.Params("id"),
		Name:  req.Name,
		Email: req.Email,
		Role:  models.Role(req.Role),
	}

	if err := h.catalog.SyncUser(c.Context(), actorFrom(c), user); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(user)
}

// bindOptional decodes and validates a body that may be absent. On failure it returns the
// problem detail.
func (h *APIHandlers) bindOptional(c fiber.Ctx, out any) (string, bool) {
	if len(c.Body()) == 0 {
		return "", true
	}

	if err := c.Bind().JSON(out); err != nil {
		return "Invalid JSON format", false
	}

	if err := h.validator.Struct(out); err != nil {
		return err.Error(), false
	}

	return "", true
}

func (h *APIHandlers) fail(c fiber.Ctx, err error) error {
	if isUnexpected(err) {
		h.logger.ErrorContext(c.Context(), "Request failed", "path", c.Path(), "method", c.Method(), "error", err)
	}

	return handleServiceError(c, err)
}

// pagination parses the limit and offset query parameters.
func pagination(c fiber.Ctx) (int, int, error) {
	var limit, offset int

	if limitStr := c.Query("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil {
			return 0, 0, err
		}

		limit = parsed
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		parsed, err := strconv.Atoi(offsetStr)
		if err != nil {
			return 0, 0, err
		}

		offset = parsed
	}

	return limit, offset, nil
}
