package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/municipio-kit/chamados-service/internal/config"
	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/events"
	"github.com/municipio-kit/chamados-service/internal/query"
	"github.com/municipio-kit/chamados-service/internal/repository"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

type ticketFixture struct {
	svc      *TicketService
	tickets  *repository.MemoryTicketStore
	units    *repository.MemoryUnitStore
	profiles *repository.MemoryProfileStore
	audit    *repository.MemoryAuditStore
	clock    *time.Time
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	f := &ticketFixture{
		tickets:  repository.NewMemoryTicketStore(),
		units:    repository.NewMemoryUnitStore(),
		profiles: repository.NewMemoryProfileStore(),
		audit:    repository.NewMemoryAuditStore(),
		clock:    &now,
	}
	f.svc = NewTicketService(config.TicketConfig{PageSize: 5, EditWindowMinutes: 15}, TicketDependencies{
		TicketRepo:  f.tickets,
		UnitRepo:    f.units,
		ProfileRepo: f.profiles,
		AuditRepo:   f.audit,
		Dispatcher:  events.NewInMemoryDispatcher(),
	})
	f.svc.now = func() time.Time { return *f.clock }
	return f
}

func (f *ticketFixture) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

func requesterActor(id string) domain.Actor {
	return domain.Actor{
		ID:          id,
		DisplayName: "Requester " + id,
		Role:        domain.RoleRequester,
		Unit:        domain.UnitRef{Secretaria: "Saude", Departamento: "TI"},
	}
}

func adminActor() domain.Actor {
	return domain.Actor{
		ID:          "adm-1",
		DisplayName: "Admin",
		Role:        domain.RoleAdministrator,
		Unit:        domain.UnitRef{Secretaria: "Gabinete", Departamento: "Geral"},
	}
}

func TestCreateTicketSelfAssignsRequesterUnit(t *testing.T) {
	f := newTicketFixture(t)
	requester := requesterActor("user-1")

	unitID := "unit-1"
	ticket, err := f.svc.CreateTicket(context.Background(), requester, CreateTicketInput{
		Subject:    domain.TicketSubjectSupport,
		Complement: "printer offline",
		UnitID:     &unitID, // ignored for requesters
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.RequesterID != requester.ID || ticket.RequesterName != requester.DisplayName {
		t.Fatalf("requester not denormalized: %+v", ticket)
	}
	if ticket.Unit != requester.Unit {
		t.Fatalf("unit must come from the requester profile, got %+v", ticket.Unit)
	}
	if ticket.Status != domain.TicketStatusOpen {
		t.Fatalf("new tickets start open, got %s", ticket.Status)
	}
	if ticket.LastUpdatedBy != nil || ticket.LastUpdatedAt != nil {
		t.Fatalf("fresh ticket must not carry update stamps")
	}
}

func TestCreateTicketRejectsInvalidSubject(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.CreateTicket(context.Background(), requesterActor("user-1"), CreateTicketInput{
		Subject: domain.TicketSubject("COFFEE"),
	})
	if !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Fatalf("expected VALIDATION_FAILED, got %v", err)
	}
}

func TestAdminCreateRequiresActiveUnit(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	admin := adminActor()

	if _, err := f.svc.CreateTicket(ctx, admin, CreateTicketInput{Subject: domain.TicketSubjectFinancial}); !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Fatalf("missing unit_id must fail validation, got %v", err)
	}

	if err := f.units.Create(ctx, &domain.Unit{ID: "unit-1", Secretaria: "Obras", Departamento: "Vias", Active: true}); err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	if err := f.units.Deactivate(ctx, "unit-1"); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	unitID := "unit-1"
	if _, err := f.svc.CreateTicket(ctx, admin, CreateTicketInput{Subject: domain.TicketSubjectFinancial, UnitID: &unitID}); !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Fatalf("inactive unit must fail validation, got %v", err)
	}
}

func TestAdminCreateOnBehalfOfRequester(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	if err := f.units.Create(ctx, &domain.Unit{ID: "unit-1", Secretaria: "Obras", Departamento: "Vias", Active: true}); err != nil {
		t.Fatalf("seed unit: %v", err)
	}
	if err := f.profiles.Create(ctx, &domain.Profile{ID: "user-9", Name: "Maria", Email: "maria@example.com", Role: domain.RoleRequester}); err != nil {
		t.Fatalf("seed profile: %v", err)
	}

	unitID := "unit-1"
	requesterID := "user-9"
	inProgress := domain.TicketStatusInProgress
	ticket, err := f.svc.CreateTicket(ctx, adminActor(), CreateTicketInput{
		Subject:     domain.TicketSubjectTechnicalVisit,
		UnitID:      &unitID,
		RequesterID: &requesterID,
		Status:      &inProgress,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.RequesterID != "user-9" || ticket.RequesterName != "Maria" {
		t.Fatalf("on-behalf requester not denormalized: %+v", ticket)
	}
	if ticket.Unit.Secretaria != "Obras" || ticket.Unit.Departamento != "Vias" {
		t.Fatalf("unit not taken from catalog: %+v", ticket.Unit)
	}
	if ticket.Status != domain.TicketStatusInProgress {
		t.Fatalf("explicit status dropped, got %s", ticket.Status)
	}
}

func TestRequesterUpdateInsideWindow(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	requester := requesterActor("user-1")

	created, err := f.svc.CreateTicket(ctx, requester, CreateTicketInput{Subject: domain.TicketSubjectSupport, Complement: "before"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.advance(14*time.Minute + 59*time.Second)
	after := "after"
	updated, err := f.svc.UpdateTicket(ctx, requester, created.ID, UpdateTicketInput{Complement: &after})
	if err != nil {
		t.Fatalf("update inside window: %v", err)
	}
	if updated.Complement != "after" {
		t.Fatalf("complement not applied: %q", updated.Complement)
	}
	if updated.LastUpdatedBy == nil || *updated.LastUpdatedBy != requester.ID {
		t.Fatalf("update must stamp last_updated_by, got %+v", updated.LastUpdatedBy)
	}
	if updated.LastUpdatedAt == nil || !updated.LastUpdatedAt.Equal(f.clock.UTC()) {
		t.Fatalf("update must stamp last_updated_at, got %+v", updated.LastUpdatedAt)
	}
}

func TestRequesterUpdateOutsideWindow(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	requester := requesterActor("user-1")

	created, err := f.svc.CreateTicket(ctx, requester, CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.advance(15*time.Minute + time.Second)
	text := "too late"
	_, err = f.svc.UpdateTicket(ctx, requester, created.ID, UpdateTicketInput{Complement: &text})
	if !apperrors.HasCode(err, "EDIT_WINDOW_EXPIRED") {
		t.Fatalf("expected EDIT_WINDOW_EXPIRED, got %v", err)
	}
}

func TestRequesterCannotPatchStatus(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	requester := requesterActor("user-1")

	created, err := f.svc.CreateTicket(ctx, requester, CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Forbidden regardless of timing: the window only ever gates the
	// complement edit.
	resolved := domain.TicketStatusResolved
	_, err = f.svc.UpdateTicket(ctx, requester, created.ID, UpdateTicketInput{Status: &resolved})
	if !apperrors.HasCode(err, "FORBIDDEN") {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestRequesterCannotTouchForeignTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateTicket(ctx, requesterActor("user-1"), CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	other := requesterActor("user-2")
	if _, err := f.svc.GetTicket(ctx, other, created.ID); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Fatalf("get: expected FORBIDDEN, got %v", err)
	}
	text := "hijack"
	if _, err := f.svc.UpdateTicket(ctx, other, created.ID, UpdateTicketInput{Complement: &text}); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Fatalf("update: expected FORBIDDEN, got %v", err)
	}
	if err := f.svc.DeleteTicket(ctx, other, created.ID); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Fatalf("delete: expected FORBIDDEN, got %v", err)
	}
}

func TestRequesterDeleteWindow(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	requester := requesterActor("user-1")

	first, err := f.svc.CreateTicket(ctx, requester, CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.advance(14*time.Minute + 59*time.Second)
	if err := f.svc.DeleteTicket(ctx, requester, first.ID); err != nil {
		t.Fatalf("delete inside window: %v", err)
	}

	second, err := f.svc.CreateTicket(ctx, requester, CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	f.advance(15*time.Minute + time.Second)
	if err := f.svc.DeleteTicket(ctx, requester, second.ID); !apperrors.HasCode(err, "DELETE_WINDOW_EXPIRED") {
		t.Fatalf("expected DELETE_WINDOW_EXPIRED, got %v", err)
	}

	// Administrators are never gated by the window.
	if err := f.svc.DeleteTicket(ctx, adminActor(), second.ID); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
}

func TestDeleteMissingTicket(t *testing.T) {
	f := newTicketFixture(t)

	err := f.svc.DeleteTicket(context.Background(), adminActor(), "nope")
	if !apperrors.HasCode(err, "NOT_FOUND") {
		t.Fatalf("expected NOT_FOUND, got %v", err)
	}
}

func TestUpdateRecordsAuditTrail(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	admin := adminActor()

	created, err := f.svc.CreateTicket(ctx, requesterActor("user-1"), CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	resolved := domain.TicketStatusResolved
	if _, err := f.svc.UpdateTicket(ctx, admin, created.ID, UpdateTicketInput{Status: &resolved}); err != nil {
		t.Fatalf("update: %v", err)
	}

	trail, err := f.svc.ListAuditTrail(ctx, admin, created.ID, 10)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected create+update entries, got %d", len(trail))
	}
	var sawUpdate bool
	for _, entry := range trail {
		if entry.ChangeType != domain.ChangeTypeUpdated {
			continue
		}
		sawUpdate = true
		if entry.ActorID != admin.ID || entry.ActorRole != domain.RoleAdministrator {
			t.Fatalf("update entry must carry the acting admin, got %+v", entry)
		}
		if entry.NewValue["status"] != resolved {
			t.Fatalf("new value must record the status change, got %+v", entry.NewValue)
		}
	}
	if !sawUpdate {
		t.Fatalf("no update entry in trail: %+v", trail)
	}

	if _, err := f.svc.ListAuditTrail(ctx, requesterActor("user-1"), created.ID, 10); !apperrors.HasCode(err, "FORBIDDEN") {
		t.Fatalf("trail must be admin-only, got %v", err)
	}
}

type failingAuditStore struct {
	repository.AuditRepository
}

func (f *failingAuditStore) Create(context.Context, *domain.TicketEvent) error {
	return errors.New("connection refused")
}

// A mutation whose trail entry cannot be written must not report success.
func TestAuditAppendFailureFailsMutation(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	admin := adminActor()

	created, err := f.svc.CreateTicket(ctx, requesterActor("user-1"), CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	f.svc.audit = &failingAuditStore{}

	resolved := domain.TicketStatusResolved
	if _, err := f.svc.UpdateTicket(ctx, admin, created.ID, UpdateTicketInput{Status: &resolved}); !apperrors.HasCode(err, "STORE_UNAVAILABLE") {
		t.Fatalf("update: expected STORE_UNAVAILABLE, got %v", err)
	}
	if err := f.svc.DeleteTicket(ctx, admin, created.ID); !apperrors.HasCode(err, "STORE_UNAVAILABLE") {
		t.Fatalf("delete: expected STORE_UNAVAILABLE, got %v", err)
	}
	if _, err := f.svc.CreateTicket(ctx, requesterActor("user-1"), CreateTicketInput{Subject: domain.TicketSubjectSupport}); !apperrors.HasCode(err, "STORE_UNAVAILABLE") {
		t.Fatalf("create: expected STORE_UNAVAILABLE, got %v", err)
	}
}

func TestAuditOutlivesDeletedTicket(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	admin := adminActor()

	created, err := f.svc.CreateTicket(ctx, requesterActor("user-1"), CreateTicketInput{Subject: domain.TicketSubjectSupport})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := f.svc.DeleteTicket(ctx, admin, created.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	trail, err := f.svc.ListAuditTrail(ctx, admin, created.ID, 10)
	if err != nil {
		t.Fatalf("audit trail: %v", err)
	}
	if len(trail) != 2 {
		t.Fatalf("expected create+delete entries after removal, got %d", len(trail))
	}
}

// A requester files a ticket, the admin finds it through a unit filter,
// resolves it, and the requester sees the resolved state with the admin's
// stamp on their next fetch.
func TestResolutionRoundTrip(t *testing.T) {
	f := newTicketFixture(t)
	ctx := context.Background()
	requester := requesterActor("user-1")
	admin := adminActor()

	created, err := f.svc.CreateTicket(ctx, requester, CreateTicketInput{
		Subject:    domain.TicketSubjectSupport,
		Complement: "no network on floor 2",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	secretaria := requester.Unit.Secretaria
	page, err := f.svc.ListTickets(ctx, admin, query.Filters{Secretaria: &secretaria}, 10, nil)
	if err != nil {
		t.Fatalf("admin list: %v", err)
	}
	if len(page.Items) != 1 || page.Items[0].ID != created.ID {
		t.Fatalf("admin unit filter must surface the ticket, got %+v", page.Items)
	}

	resolved := domain.TicketStatusResolved
	if _, err := f.svc.UpdateTicket(ctx, admin, created.ID, UpdateTicketInput{Status: &resolved}); err != nil {
		t.Fatalf("resolve: %v", err)
	}

	page, err = f.svc.ListTickets(ctx, requester, query.Filters{}, 10, nil)
	if err != nil {
		t.Fatalf("requester list: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("requester must still see their ticket, got %d", len(page.Items))
	}
	got := page.Items[0]
	if got.Status != domain.TicketStatusResolved {
		t.Fatalf("requester must observe the resolution, got %s", got.Status)
	}
	if got.LastUpdatedBy == nil || *got.LastUpdatedBy != admin.ID {
		t.Fatalf("resolution must carry the admin stamp, got %+v", got.LastUpdatedBy)
	}
}
