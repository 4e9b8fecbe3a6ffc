package events

import (
	"time"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated   EventType = "ticket_created"
	EventTicketUpdated   EventType = "ticket_updated"
	EventTicketDeleted   EventType = "ticket_deleted"
	EventUnitCreated     EventType = "unit_created"
	EventUnitDeactivated EventType = "unit_deactivated"
	EventUnitRenamed     EventType = "unit_renamed"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id,omitempty"`
	UnitID    string      `json:"unit_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Subject domain.TicketSubject `json:"subject"`
	Status  domain.TicketStatus  `json:"status"`
	Unit    domain.UnitRef       `json:"unit"`
}

// TicketUpdatedPayload payload.
type TicketUpdatedPayload struct {
	OldValue map[string]any `json:"old_value"`
	NewValue map[string]any `json:"new_value"`
}

// TicketDeletedPayload payload.
type TicketDeletedPayload struct {
	Subject domain.TicketSubject `json:"subject"`
	Unit    domain.UnitRef       `json:"unit"`
}

// UnitRenamedPayload payload.
type UnitRenamedPayload struct {
	OldRef          domain.UnitRef `json:"old_ref"`
	NewRef          domain.UnitRef `json:"new_ref"`
	CascadedTickets int            `json:"cascaded_tickets"`
}
