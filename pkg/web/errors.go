package web

import (
	"errors"

	"github.com/edulab/orchestrator/pkg/services"
	"github.com/edulab/orchestrator/pkg/workflow"
	"github.com/gofiber/fiber/v3"
	"github.com/moogar0880/problems"
)

// detailedProblem is an RFC 7807 document carrying the individual problems found.
type detailedProblem struct {
	*problems.Problem

	Errors []string `json:"errors,omitempty"`
}

func badRequest(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(400).
		WithInstance(c.Path()).
		WithType("validation_error").
		WithDetail(detail)

	return c.Status(fiber.StatusBadRequest).JSON(problem)
}

func unauthorized(c fiber.Ctx, detail string) error {
	problem := problems.NewStatusProblem(401).
		WithInstance(c.Path()).
		WithType("unauthorized").
		WithDetail(detail)

	return c.Status(fiber.StatusUnauthorized).JSON(problem)
}

func statusProblem(c fiber.Ctx, status int, kind, detail string) error {
	problem := problems.NewStatusProblem(status).
		WithInstance(c.Path()).
		WithType(kind).
		WithDetail(detail)

	return c.Status(status).JSON(problem)
}

// handleRuleError maps a workflow business failure to its HTTP status. The message is
// returned verbatim.
func handleRuleError(c fiber.Ctx, ruleErr *workflow.RuleError) error {
	switch ruleErr.Kind {
	case workflow.KindNotFound:
		return statusProblem(c, fiber.StatusNotFound, "not_found", ruleErr.Message)
	case workflow.KindForbidden:
		return statusProblem(c, fiber.StatusForbidden, "forbidden", ruleErr.Message)
	case workflow.KindPreconditionFailed:
		return statusProblem(c, fiber.StatusBadRequest, "precondition_failed", ruleErr.Message)
	default:
		return statusProblem(c, fiber.StatusBadRequest, "validation_error", ruleErr.Message)
	}
}

// handleServiceError provides typed error handling for service and workflow errors.
func handleServiceError(c fiber.Ctx, err error) error {
	if ruleErr, ok := workflow.IsRuleError(err); ok {
		return handleRuleError(c, ruleErr)
	}

	switch {
	case services.IsValidationError(err):
		problem := &detailedProblem{
			Problem: problems.NewStatusProblem(400).
				WithInstance(c.Path()).
				WithType("validation_error").
				WithDetail(message(err)),
			Errors: services.ErrorDetails(err),
		}

		return c.Status(fiber.StatusBadRequest).JSON(problem)

	case services.IsForbiddenError(err):
		return statusProblem(c, fiber.StatusForbidden, "forbidden", message(err))

	case services.IsNotFoundError(err):
		detail := "Catalog entry not found"

		switch {
		case errors.Is(err, services.ErrPublicationNotFound):
			detail = "Publication not found"
		case errors.Is(err, services.ErrUserNotFound):
			detail = "User not found"
		}

		return statusProblem(c, fiber.StatusNotFound, "not_found", detail)

	case services.IsPartnerError(err):
		return statusProblem(c, fiber.StatusBadGateway, "publication_error", message(err))

	default:
		// Log unexpected errors but don't expose details
		problem := problems.NewStatusProblem(500).
			WithInstance(c.Path()).
			WithType("internal_error").
			WithDetail("Internal server error")

		return c.Status(fiber.StatusInternalServerError).JSON(problem)
	}
}

// message returns the user-facing message of a service error.
func message(err error) string {
	var serviceErr *services.ServiceError
	if errors.As(err, &serviceErr) && serviceErr.Message != "" {
		return serviceErr.Message
	}

	return err.Error()
}

// isUnexpected reports whether err is an infrastructure failure rather than a refusal.
func isUnexpected(err error) bool {
	if _, ok := workflow.IsRuleError(err); ok {
		return false
	}

	return !services.IsValidationError(err) &&
		!services.IsForbiddenError(err) &&
		!services.IsNotFoundError(err) &&
		!services.IsPartnerError(err)
}
