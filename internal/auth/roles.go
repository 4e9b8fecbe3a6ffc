package auth

import (
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// RequireAdministrator ensures the caller holds the administrator role.
func RequireAdministrator() fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		if !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		if !actor.IsAdministrator() {
			return apperrors.NewForbidden("administrator role required")
		}
		return c.Next()
	}
}

// RequireActor ensures the caller is authenticated, regardless of role.
func RequireActor() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := ActorFromContext(c); !ok {
			return apperrors.NewUnauthenticated("authentication required")
		}
		return c.Next()
	}
}
