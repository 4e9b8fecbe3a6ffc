package dto

import (
	"time"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

// SignUpRequest registers a new requester account.
type SignUpRequest struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	Secretaria   string `json:"secretaria"`
	Departamento string `json:"departamento"`
}

// SignInRequest authenticates an existing account.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UpdateProfileRequest edits display name and avatar only.
type UpdateProfileRequest struct {
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

// ActorResponse is the public projection of a resolved actor.
type ActorResponse struct {
	ID           string      `json:"id"`
	DisplayName  string      `json:"display_name"`
	Email        string      `json:"email"`
	AvatarURL    string      `json:"avatar_url,omitempty"`
	Role         domain.Role `json:"role"`
	Secretaria   string      `json:"secretaria"`
	Departamento string      `json:"departamento"`
}

// SessionResponse carries the session token alongside the actor.
type SessionResponse struct {
	Actor     ActorResponse `json:"actor"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}
