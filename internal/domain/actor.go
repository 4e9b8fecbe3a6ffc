package domain

import "time"

// Role distinguishes requesters from administrators. There is no finer
// permission model: a single role field drives every access decision.
type Role string

const (
	RoleRequester     Role = "REQUESTER"
	RoleAdministrator Role = "ADMINISTRATOR"
)

// Valid reports whether the role is a known value.
func (r Role) Valid() bool {
	return r == RoleRequester || r == RoleAdministrator
}

// UnitRef is the denormalized secretaria/departamento pair stamped on
// actors and tickets at assignment time.
type UnitRef struct {
	Secretaria   string
	Departamento string
}

// Actor is the resolved identity behind a request: the profile fields an
// authorization decision needs, loaded fresh so role and unit are always
// the stored truth, never client-supplied.
type Actor struct {
	ID          string
	DisplayName string
	Email       string
	AvatarURL   string
	Role        Role
	Unit        UnitRef
}

// IsAdministrator reports whether the actor holds the administrator role.
func (a Actor) IsAdministrator() bool {
	return a.Role == RoleAdministrator
}

// Profile is the stored account record backing an actor.
type Profile struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	AvatarURL    string
	Role         Role
	Unit         UnitRef
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ActorFromProfile projects the stored profile onto the request-scoped
// actor identity.
func ActorFromProfile(p *Profile) Actor {
	return Actor{
		ID:          p.ID,
		DisplayName: p.Name,
		Email:       p.Email,
		AvatarURL:   p.AvatarURL,
		Role:        p.Role,
		Unit:        p.Unit,
	}
}
