package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/municipio-kit/chamados-service/internal/config"
	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/events"
	"github.com/municipio-kit/chamados-service/internal/feed"
	"github.com/municipio-kit/chamados-service/internal/query"
	"github.com/municipio-kit/chamados-service/internal/repository"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// TicketService coordinates ticket creation, the paginated feed and the
// lifecycle guard: which mutations an actor may perform and inside which
// time window.
type TicketService struct {
	tickets    repository.TicketRepository
	units      repository.UnitRepository
	profiles   repository.ProfileRepository
	audit      repository.AuditRepository
	dispatcher events.Dispatcher
	editWindow time.Duration
	pageSize   int
	now        func() time.Time
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	UnitRepo    repository.UnitRepository
	ProfileRepo repository.ProfileRepository
	AuditRepo   repository.AuditRepository
	Dispatcher  events.Dispatcher
}

// NewTicketService constructs the service.
func NewTicketService(cfg config.TicketConfig, deps TicketDependencies) *TicketService {
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 5
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		units:      deps.UnitRepo,
		profiles:   deps.ProfileRepo,
		audit:      deps.AuditRepo,
		dispatcher: deps.Dispatcher,
		editWindow: cfg.EditWindow(),
		pageSize:   pageSize,
		now:        time.Now,
	}
}

// CreateTicketInput describes ticket creation payload. UnitID and
// RequesterID are honored for administrators only.
type CreateTicketInput struct {
	Subject     domain.TicketSubject
	Complement  string
	Status      *domain.TicketStatus
	UnitID      *string
	RequesterID *string
}

// UpdateTicketInput is the patch an actor asks to apply. Nil fields are
// untouched.
type UpdateTicketInput struct {
	Status      *domain.TicketStatus
	Complement  *string
	UnitID      *string
	RequesterID *string
}

// CreateTicket files a new chamado. A requester's ticket is self-assigned
// from their profile unit; an administrator chooses the unit explicitly
// and may file on behalf of another requester. The id is assigned here so
// a retried insert after a transient failure cannot duplicate the ticket.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Actor, input CreateTicketInput) (*domain.Ticket, error) {
	if !input.Subject.Valid() {
		return nil, apperrors.NewValidationError("invalid subject", map[string]any{"subject": input.Subject})
	}

	ticket := &domain.Ticket{
		ID:            uuid.NewString(),
		RequesterID:   actor.ID,
		RequesterName: actor.DisplayName,
		Unit:          actor.Unit,
		Subject:       input.Subject,
		Complement:    strings.TrimSpace(input.Complement),
		Status:        domain.TicketStatusOpen,
		CreatedAt:     s.now().UTC(),
	}

	if actor.IsAdministrator() {
		if input.UnitID == nil {
			return nil, apperrors.NewValidationError("unit_id required for administrator-created tickets", nil)
		}
		unit, err := s.units.GetByID(ctx, *input.UnitID)
		if err != nil {
			return nil, storeErr(err, "unit")
		}
		if !unit.Active {
			return nil, apperrors.NewValidationError("unit is inactive", map[string]any{"unit_id": unit.ID})
		}
		ticket.Unit = unit.Ref()

		if input.RequesterID != nil && *input.RequesterID != actor.ID {
			requester, err := s.profiles.GetByID(ctx, *input.RequesterID)
			if err != nil {
				return nil, storeErr(err, "requester")
			}
			ticket.RequesterID = requester.ID
			ticket.RequesterName = requester.Name
		}
		if input.Status != nil {
			if !input.Status.Valid() {
				return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
			}
			ticket.Status = *input.Status
		}
	}

	if err := s.tickets.Insert(ctx, ticket); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	if err := s.recordAudit(ctx, actor, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"subject": ticket.Subject,
		"status":  ticket.Status,
		"unit":    ticket.Unit,
	}); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketCreatedPayload{
			Subject: ticket.Subject,
			Status:  ticket.Status,
			Unit:    ticket.Unit,
		},
	})
	return ticket, nil
}

// ListTickets plans the visibility-scoped query for the actor and fetches
// one feed page. Filters are honored for administrators only.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Actor, filters query.Filters, pageSize int, cursor *feed.Cursor) (*feed.Page, error) {
	if pageSize <= 0 {
		pageSize = s.pageSize
	}
	ticketQuery := query.BuildQuery(actor, filters)
	return feed.FetchPage(ctx, s.tickets, ticketQuery, pageSize, cursor)
}

// GetTicket fetches a single ticket, enforcing requester ownership.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Actor, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeErr(err, "ticket")
	}
	if !actor.IsAdministrator() && ticket.RequesterID != actor.ID {
		return nil, apperrors.NewForbidden("ticket belongs to another requester")
	}
	return ticket, nil
}

// UpdateTicket applies a guarded patch. Administrators may change status,
// complement, unit and requester at any time. Requesters may only change
// the complement of their own ticket, and only while the edit window is
// open. Every successful update stamps the audit fields.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Actor, ticketID string, input UpdateTicketInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, storeErr(err, "ticket")
	}

	patch := repository.TicketPatch{}

	if actor.IsAdministrator() {
		if input.Status != nil {
			if !input.Status.Valid() {
				return nil, apperrors.NewValidationError("invalid status", map[string]any{"status": *input.Status})
			}
			patch.Status = input.Status
		}
		if input.Complement != nil {
			patch.Complement = input.Complement
		}
		if input.UnitID != nil {
			unit, err := s.units.GetByID(ctx, *input.UnitID)
			if err != nil {
				return nil, storeErr(err, "unit")
			}
			if !unit.Active {
				return nil, apperrors.NewValidationError("unit is inactive", map[string]any{"unit_id": unit.ID})
			}
			ref := unit.Ref()
			patch.Unit = &ref
		}
		if input.RequesterID != nil {
			requester, err := s.profiles.GetByID(ctx, *input.RequesterID)
			if err != nil {
				return nil, storeErr(err, "requester")
			}
			patch.RequesterID = &requester.ID
			patch.RequesterName = &requester.Name
		}
	} else {
		if ticket.RequesterID != actor.ID {
			return nil, apperrors.NewForbidden("ticket belongs to another requester")
		}
		if input.Status != nil || input.UnitID != nil || input.RequesterID != nil {
			return nil, apperrors.NewForbidden("requesters may only edit the complement")
		}
		if s.windowExpired(ticket.CreatedAt) {
			return nil, apperrors.NewEditWindowExpired(map[string]any{
				"created_at":  ticket.CreatedAt,
				"window_mins": int(s.editWindow.Minutes()),
			})
		}
		patch.Complement = input.Complement
	}

	// Self-transitions and empty patches still stamp the audit fields
	// when invoked through the update path.
	updatedBy := actor.ID
	updatedAt := s.now().UTC()
	patch.LastUpdatedBy = &updatedBy
	patch.LastUpdatedAt = &updatedAt

	updated, err := s.tickets.UpdatePartial(ctx, ticketID, patch)
	if err != nil {
		return nil, storeErr(err, "ticket")
	}

	oldValue, newValue := diffTicket(ticket, updated)
	if err := s.recordAudit(ctx, actor, ticket.ID, domain.ChangeTypeUpdated, oldValue, newValue); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketUpdated,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketUpdatedPayload{
			OldValue: oldValue,
			NewValue: newValue,
		},
	})
	return updated, nil
}

// DeleteTicket removes a chamado. Administrators delete unconditionally;
// requesters only their own ticket while the window is open. The audit
// entry outlives the ticket row.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Actor, ticketID string) error {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return storeErr(err, "ticket")
	}

	if !actor.IsAdministrator() {
		if ticket.RequesterID != actor.ID {
			return apperrors.NewForbidden("ticket belongs to another requester")
		}
		if s.windowExpired(ticket.CreatedAt) {
			return apperrors.NewDeleteWindowExpired(map[string]any{
				"created_at":  ticket.CreatedAt,
				"window_mins": int(s.editWindow.Minutes()),
			})
		}
	}

	if err := s.tickets.Delete(ctx, ticketID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NewNotFound("ticket", nil)
		}
		return apperrors.NewStoreUnavailable(err)
	}

	if err := s.recordAudit(ctx, actor, ticket.ID, domain.ChangeTypeDeleted, map[string]any{
		"subject": ticket.Subject,
		"status":  ticket.Status,
		"unit":    ticket.Unit,
	}, nil); err != nil {
		return err
	}
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketDeleted,
		TicketID: ticket.ID,
		Actor:    eventActor(actor),
		Payload: events.TicketDeletedPayload{
			Subject: ticket.Subject,
			Unit:    ticket.Unit,
		},
	})
	return nil
}

// ListAuditTrail returns the persisted audit entries for a ticket.
// Administrators only.
func (s *TicketService) ListAuditTrail(ctx context.Context, actor domain.Actor, ticketID string, limit int) ([]domain.TicketEvent, error) {
	if !actor.IsAdministrator() {
		return nil, apperrors.NewForbidden("administrator role required")
	}
	entries, err := s.audit.ListByTicket(ctx, ticketID, limit)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return entries, nil
}

func (s *TicketService) windowExpired(createdAt time.Time) bool {
	return s.now().Sub(createdAt) > s.editWindow
}

// recordAudit appends the trail entry for a mutation. The entry is part
// of the operation's contract, so a failed append fails the operation.
func (s *TicketService) recordAudit(ctx context.Context, actor domain.Actor, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) error {
	if s.audit == nil {
		return nil
	}
	entry := &domain.TicketEvent{
		ID:         uuid.NewString(),
		TicketID:   ticketID,
		ActorID:    actor.ID,
		ActorName:  actor.DisplayName,
		ActorRole:  actor.Role,
		ChangeType: changeType,
		OldValue:   oldValue,
		NewValue:   newValue,
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		return apperrors.NewStoreUnavailable(err)
	}
	return nil
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func eventActor(actor domain.Actor) events.Actor {
	return events.Actor{
		ID:   actor.ID,
		Name: actor.DisplayName,
		Role: actor.Role,
	}
}

// diffTicket reduces two ticket snapshots to the fields that changed.
func diffTicket(before, after *domain.Ticket) (map[string]any, map[string]any) {
	oldValue := map[string]any{}
	newValue := map[string]any{}

	if before.Status != after.Status {
		oldValue["status"] = before.Status
		newValue["status"] = after.Status
	}
	if before.Complement != after.Complement {
		oldValue["complement"] = before.Complement
		newValue["complement"] = after.Complement
	}
	if before.Unit != after.Unit {
		oldValue["unit"] = before.Unit
		newValue["unit"] = after.Unit
	}
	if before.RequesterID != after.RequesterID {
		oldValue["requester_id"] = before.RequesterID
		newValue["requester_id"] = after.RequesterID
	}
	return oldValue, newValue
}
