package domain

import "time"

// TicketStatus enumerates lifecycle states for chamados. Transitions
// between any two states are legal; every transition stamps the audit
// fields.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "OPEN"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusResolved   TicketStatus = "RESOLVED"
)

// Valid reports whether the status is a known value.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved:
		return true
	}
	return false
}

// TicketSubject enumerates the request categories.
type TicketSubject string

const (
	TicketSubjectSupport        TicketSubject = "SUPPORT"
	TicketSubjectTechnicalVisit TicketSubject = "TECHNICAL_VISIT"
	TicketSubjectFinancial      TicketSubject = "FINANCIAL"
)

// Valid reports whether the subject is a known value.
func (s TicketSubject) Valid() bool {
	switch s {
	case TicketSubjectSupport, TicketSubjectTechnicalVisit, TicketSubjectFinancial:
		return true
	}
	return false
}

// Ticket is the aggregate for service requests. RequesterID, RequesterName
// and Unit are denormalized from the requester at creation and only an
// administrator may change them afterwards. ID and CreatedAt are immutable.
type Ticket struct {
	ID            string
	RequesterID   string
	RequesterName string
	Unit          UnitRef
	Subject       TicketSubject
	Complement    string
	Status        TicketStatus
	CreatedAt     time.Time
	LastUpdatedBy *string
	LastUpdatedAt *time.Time
}
