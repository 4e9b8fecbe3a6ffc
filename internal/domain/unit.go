package domain

import "time"

// Unit is an organizational catalog entry (secretaria/departamento).
// Removal is logical only: Active flips to false so historical tickets
// keep a resolvable reference.
type Unit struct {
	ID           string
	Secretaria   string
	Departamento string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Ref returns the denormalized pair carried by actors and tickets.
func (u *Unit) Ref() UnitRef {
	return UnitRef{Secretaria: u.Secretaria, Departamento: u.Departamento}
}
