package auth

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/municipio-kit/chamados-service/internal/domain"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

const actorKey = "auth_actor"

// ActorResolver maps a bearer token to the resolved actor. The role in
// the result is authoritative for every downstream visibility decision.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (*domain.Actor, error)
}

// Middleware validates bearer tokens and loads the actor into the
// request context.
type Middleware struct {
	resolver ActorResolver
}

// NewMiddleware constructs middleware.
func NewMiddleware(resolver ActorResolver) *Middleware {
	return &Middleware{resolver: resolver}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthenticated("invalid authorization header")
	}

	actor, err := m.resolver.ResolveActor(c.UserContext(), parts[1])
	if err != nil {
		return err
	}

	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated actor.
func ActorFromContext(c *fiber.Ctx) (*domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return nil, false
	}
	actor, ok := val.(*domain.Actor)
	return actor, ok
}
