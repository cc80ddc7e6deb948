package web

import (
	"strings"

	"github.com/edulab/orchestrator/pkg/models"
	"github.com/gofiber/fiber/v3"
)

// Identity headers set by the gateway once the caller's token has been verified.
const (
	HeaderUserID   = "X-User-Id"
	HeaderTenantID = "X-Tenant-Id"
	HeaderUserRole = "X-User-Role"
)

type actorKey struct{}

// RequireActor rejects requests without a complete identity and stores the actor for the
// handlers.
func RequireActor(c fiber.Ctx) error {
	actor := models.Actor{
		UserID:   strings.TrimSpace(c.Get(HeaderUserID)),
		TenantID: strings.TrimSpace(c.Get(HeaderTenantID)),
		Role:     models.Role(strings.TrimSpace(c.Get(HeaderUserRole))),
	}

	if actor.UserID == "" || actor.TenantID == "" {
		return unauthorized(c, "Missing user identity")
	}

	switch actor.Role {
	case models.RoleTeacher, models.RoleReferent, models.RoleDirection, models.RoleAdmin, models.RoleStudent:
	default:
		return unauthorized(c, "Unknown user role")
	}

	c.Locals(actorKey{}, actor)

	return c.Next()
}

func actorFrom(c fiber.Ctx) models.Actor {
	actor, _ := c.Locals(actorKey{}).(models.Actor)

	return actor
}
