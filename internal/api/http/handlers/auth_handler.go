package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/municipio-kit/chamados-service/internal/api/dto"
	"github.com/municipio-kit/chamados-service/internal/auth"
	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/service"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// AuthHandler manages registration, sessions and profile edits.
type AuthHandler struct {
	service *service.AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{service: authService}
}

// SignUp POST /auth/signup.
func (h *AuthHandler) SignUp(c *fiber.Ctx) error {
	var req dto.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	actor, token, expiresAt, err := h.service.SignUp(c.UserContext(), service.SignUpInput{
		Name:         req.Name,
		Email:        req.Email,
		Password:     req.Password,
		Secretaria:   req.Secretaria,
		Departamento: req.Departamento,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": sessionResponse(actor, token, expiresAt)})
}

// SignIn POST /auth/signin.
func (h *AuthHandler) SignIn(c *fiber.Ctx) error {
	var req dto.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Email == "" || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	actor, token, expiresAt, err := h.service.SignIn(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": sessionResponse(actor, token, expiresAt)})
}

// SignOut POST /auth/signout.
func (h *AuthHandler) SignOut(c *fiber.Ctx) error {
	token := bearerToken(c)
	if token == "" {
		return apperrors.NewUnauthenticated("missing authorization header")
	}
	if err := h.service.SignOut(c.UserContext(), token); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	return c.JSON(fiber.Map{"data": actorResponse(*actor)})
}

// UpdateProfile PATCH /auth/profile.
func (h *AuthHandler) UpdateProfile(c *fiber.Ctx) error {
	actor, ok := auth.ActorFromContext(c)
	if !ok {
		return apperrors.NewUnauthenticated("authentication required")
	}
	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	updated, err := h.service.UpdateProfile(c.UserContext(), actor.ID, req.Name, req.AvatarURL)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": actorResponse(*updated)})
}

func bearerToken(c *fiber.Ctx) string {
	header := c.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

func actorResponse(actor domain.Actor) dto.ActorResponse {
	return dto.ActorResponse{
		ID:           actor.ID,
		DisplayName:  actor.DisplayName,
		Email:        actor.Email,
		AvatarURL:    actor.AvatarURL,
		Role:         actor.Role,
		Secretaria:   actor.Unit.Secretaria,
		Departamento: actor.Unit.Departamento,
	}
}

func sessionResponse(actor *domain.Actor, token string, expiresAt time.Time) dto.SessionResponse {
	return dto.SessionResponse{
		Actor:     actorResponse(*actor),
		Token:     token,
		ExpiresAt: expiresAt,
	}
}
