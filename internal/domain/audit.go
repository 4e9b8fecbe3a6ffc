package domain

import "time"

// TicketChangeType identifies what a persisted audit entry records.
type TicketChangeType string

const (
	ChangeTypeCreated TicketChangeType = "CREATED"
	ChangeTypeUpdated TicketChangeType = "UPDATED"
	ChangeTypeDeleted TicketChangeType = "DELETED"
)

// TicketEvent is one audit-trail entry: who touched a ticket, when, and
// the before/after values of the fields that changed.
type TicketEvent struct {
	ID         string
	TicketID   string
	ActorID    string
	ActorName  string
	ActorRole  Role
	ChangeType TicketChangeType
	OldValue   map[string]any
	NewValue   map[string]any
	CreatedAt  time.Time
}
