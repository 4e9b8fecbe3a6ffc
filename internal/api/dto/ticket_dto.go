package dto

import (
	"time"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

// CreateTicketRequest describes ticket creation payload. UnitID,
// RequesterID and Status are honored for administrators only.
type CreateTicketRequest struct {
	Subject     string  `json:"subject"`
	Complement  string  `json:"complement"`
	Status      *string `json:"status,omitempty"`
	UnitID      *string `json:"unit_id,omitempty"`
	RequesterID *string `json:"requester_id,omitempty"`
}

// UpdateTicketRequest is a partial update; absent fields are untouched.
type UpdateTicketRequest struct {
	Status      *string `json:"status,omitempty"`
	Complement  *string `json:"complement,omitempty"`
	UnitID      *string `json:"unit_id,omitempty"`
	RequesterID *string `json:"requester_id,omitempty"`
}

// TicketResponse is the public projection of a ticket.
type TicketResponse struct {
	ID            string               `json:"id"`
	RequesterID   string               `json:"requester_id"`
	RequesterName string               `json:"requester_name"`
	Secretaria    string               `json:"secretaria"`
	Departamento  string               `json:"departamento"`
	Subject       domain.TicketSubject `json:"subject"`
	Complement    string               `json:"complement,omitempty"`
	Status        domain.TicketStatus  `json:"status"`
	CreatedAt     time.Time            `json:"created_at"`
	LastUpdatedBy *string              `json:"last_updated_by,omitempty"`
	LastUpdatedAt *time.Time           `json:"last_updated_at,omitempty"`
}

// FeedResponse is one page of the ticket feed.
type FeedResponse struct {
	Items      []TicketResponse `json:"items"`
	NextCursor *string          `json:"next_cursor,omitempty"`
	Exhausted  bool             `json:"exhausted"`
}

// AuditEventResponse is one audit-trail entry.
type AuditEventResponse struct {
	ID         string                  `json:"id"`
	TicketID   string                  `json:"ticket_id"`
	ActorID    string                  `json:"actor_id"`
	ActorName  string                  `json:"actor_name"`
	ActorRole  domain.Role             `json:"actor_role"`
	ChangeType domain.TicketChangeType `json:"change_type"`
	OldValue   map[string]any          `json:"old_value,omitempty"`
	NewValue   map[string]any          `json:"new_value,omitempty"`
	CreatedAt  time.Time               `json:"created_at"`
}
