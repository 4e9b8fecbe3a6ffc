// Package query builds the predicate set a ticket listing is allowed to
// run with. The planner is the single place where role-scoped visibility
// is decided; the store-side access rules are expected to re-enforce the
// same ownership invariant independently.
package query

import (
	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/repository"
)

// Filters are the optional criteria an administrator may apply. They are
// ignored for requesters: a requester can never broaden visibility beyond
// their own tickets.
type Filters struct {
	Secretaria   *string
	Departamento *string
	Status       *domain.TicketStatus
}

// BuildQuery produces the TicketQuery for the given actor. For a
// requester the requester-id predicate is pinned to the actor identity
// and any supplied filters are discarded. For an administrator the
// supplied filters are combined as a conjunction; none means all tickets.
// The sort key (created_at desc, id asc) is fixed by the repository.
func BuildQuery(actor domain.Actor, filters Filters) repository.TicketQuery {
	if !actor.IsAdministrator() {
		requesterID := actor.ID
		return repository.TicketQuery{RequesterID: &requesterID}
	}
	return repository.TicketQuery{
		Secretaria:   filters.Secretaria,
		Departamento: filters.Departamento,
		Status:       filters.Status,
	}
}
