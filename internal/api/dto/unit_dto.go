package dto

import "time"

// CreateUnitRequest registers a new organizational unit.
type CreateUnitRequest struct {
	Secretaria   string `json:"secretaria"`
	Departamento string `json:"departamento"`
}

// RenameUnitRequest renames a unit and cascades onto its tickets.
type RenameUnitRequest struct {
	Secretaria   string `json:"secretaria"`
	Departamento string `json:"departamento"`
}

// UnitResponse is the public projection of a catalog entry.
type UnitResponse struct {
	ID           string    `json:"id"`
	Secretaria   string    `json:"secretaria"`
	Departamento string    `json:"departamento"`
	Active       bool      `json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
