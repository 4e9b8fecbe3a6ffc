package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/municipio-kit/chamados-service/internal/auth"
	"github.com/municipio-kit/chamados-service/internal/config"
	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/repository"
	"github.com/municipio-kit/chamados-service/internal/session"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// AuthService coordinates sign-up, sign-in/out and actor resolution.
type AuthService struct {
	profiles   repository.ProfileRepository
	sessions   session.Store
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// AuthDependencies bundles collaborators for the auth service.
type AuthDependencies struct {
	ProfileRepo  repository.ProfileRepository
	SessionStore session.Store
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	return &AuthService{
		profiles:   deps.ProfileRepo,
		sessions:   deps.SessionStore,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.SessionTTL()),
		bcryptCost: cfg.BcryptCost,
	}
}

// SignUpInput describes a registration payload. New accounts always start
// as requesters; promotion to administrator is a data operation, not an
// API one.
type SignUpInput struct {
	Name         string
	Email        string
	Password     string
	Secretaria   string
	Departamento string
}

// SignUp creates a profile, opens a session and returns the signed token.
func (s *AuthService) SignUp(ctx context.Context, input SignUpInput) (*domain.Actor, string, time.Time, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if name == "" || email == "" || input.Password == "" || input.Secretaria == "" || input.Departamento == "" {
		return nil, "", time.Time{}, apperrors.NewValidationError("name, email, password, secretaria, departamento required", nil)
	}

	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewConflict("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	profile := &domain.Profile{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleRequester,
		Unit: domain.UnitRef{
			Secretaria:   input.Secretaria,
			Departamento: input.Departamento,
		},
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}

	return s.openSession(ctx, profile)
}

// SignIn authenticates by email/password and opens a session.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Actor, string, time.Time, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
		}
		return nil, "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthenticated("invalid credentials")
	}
	return s.openSession(ctx, profile)
}

// SignOut destroys the session referenced by the token. Safe to call with
// an already-expired token.
func (s *AuthService) SignOut(ctx context.Context, token string) error {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return apperrors.NewUnauthenticated("invalid token")
	}
	return s.sessions.Delete(ctx, claims.SessionID)
}

// ResolveActor maps a session token to the current actor. The role and
// unit come from the stored profile, never from client-supplied input.
func (s *AuthService) ResolveActor(ctx context.Context, token string) (*domain.Actor, error) {
	claims, err := s.tokenMgr.ParseToken(token)
	if err != nil {
		return nil, apperrors.NewUnauthenticated("invalid token")
	}

	if _, err := s.sessions.Get(ctx, claims.SessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, apperrors.NewUnauthenticated("session expired or signed out")
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	profile, err := s.profiles.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewProfileMissing(claims.Subject)
		}
		return nil, apperrors.NewStoreUnavailable(err)
	}

	actor := domain.ActorFromProfile(profile)
	return &actor, nil
}

// UpdateProfile edits display name and avatar. Role and unit never change
// through this path.
func (s *AuthService) UpdateProfile(ctx context.Context, actorID, name, avatarURL string) (*domain.Actor, error) {
	profile, err := s.profiles.GetByID(ctx, actorID)
	if err != nil {
		return nil, storeErr(err, "profile")
	}
	if trimmed := strings.TrimSpace(name); trimmed != "" {
		profile.Name = trimmed
	}
	if avatarURL != "" {
		profile.AvatarURL = avatarURL
	}
	if err := s.profiles.Update(ctx, profile); err != nil {
		return nil, storeErr(err, "profile")
	}
	actor := domain.ActorFromProfile(profile)
	return &actor, nil
}

func (s *AuthService) openSession(ctx context.Context, profile *domain.Profile) (*domain.Actor, string, time.Time, error) {
	actor := domain.ActorFromProfile(profile)

	sessionID := uuid.NewString()
	token, expiresAt, err := s.tokenMgr.GenerateToken(profile.ID, sessionID)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	if err := s.sessions.Put(ctx, sessionID, actor, s.tokenMgr.TTL()); err != nil {
		return nil, "", time.Time{}, apperrors.NewStoreUnavailable(err)
	}
	return &actor, token, expiresAt, nil
}
