package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/events"
	"github.com/municipio-kit/chamados-service/internal/repository"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// UnitService manages the organizational unit catalog. All mutations are
// administrator-only; "deletion" is a logical deactivation.
type UnitService struct {
	units      repository.UnitRepository
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
}

// UnitDependencies bundles collaborators for the unit service.
type UnitDependencies struct {
	UnitRepo   repository.UnitRepository
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
}

// NewUnitService constructs the service.
func NewUnitService(deps UnitDependencies) *UnitService {
	return &UnitService{
		units:      deps.UnitRepo,
		tickets:    deps.TicketRepo,
		dispatcher: deps.Dispatcher,
	}
}

// CreateUnit registers a new (secretaria, departamento) pair.
func (s *UnitService) CreateUnit(ctx context.Context, actor domain.Actor, secretaria, departamento string) (*domain.Unit, error) {
	if !actor.IsAdministrator() {
		return nil, apperrors.NewForbidden("administrator role required")
	}
	secretaria = strings.TrimSpace(secretaria)
	departamento = strings.TrimSpace(departamento)
	if secretaria == "" || departamento == "" {
		return nil, apperrors.NewValidationError("secretaria and departamento required", nil)
	}

	unit := &domain.Unit{
		ID:           uuid.NewString(),
		Secretaria:   secretaria,
		Departamento: departamento,
		Active:       true,
	}
	if err := s.units.Create(ctx, unit); err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	s.publish(ctx, events.Event{
		Type:   events.EventUnitCreated,
		UnitID: unit.ID,
		Actor:  eventActor(actor),
	})
	return unit, nil
}

// ListActiveUnits returns the catalog entries still accepting tickets.
func (s *UnitService) ListActiveUnits(ctx context.Context, actor domain.Actor) ([]domain.Unit, error) {
	if !actor.IsAdministrator() {
		return nil, apperrors.NewForbidden("administrator role required")
	}
	units, err := s.units.ListActive(ctx)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}
	return units, nil
}

// DeactivateUnit soft-deletes a catalog entry. Historical tickets keep
// their denormalized unit reference untouched.
func (s *UnitService) DeactivateUnit(ctx context.Context, actor domain.Actor, unitID string) error {
	if !actor.IsAdministrator() {
		return apperrors.NewForbidden("administrator role required")
	}
	if err := s.units.Deactivate(ctx, unitID); err != nil {
		return storeErr(err, "unit")
	}
	s.publish(ctx, events.Event{
		Type:   events.EventUnitDeactivated,
		UnitID: unitID,
		Actor:  eventActor(actor),
	})
	return nil
}

// RenameUnit updates a catalog entry and cascades the denormalized pair
// onto existing tickets. The cascade is a best-effort batch of
// independent per-document updates: a partial failure leaves earlier
// tickets updated and is reported with the applied count, there is no
// rollback.
func (s *UnitService) RenameUnit(ctx context.Context, actor domain.Actor, unitID, secretaria, departamento string) (*domain.Unit, int, error) {
	if !actor.IsAdministrator() {
		return nil, 0, apperrors.NewForbidden("administrator role required")
	}
	secretaria = strings.TrimSpace(secretaria)
	departamento = strings.TrimSpace(departamento)
	if secretaria == "" || departamento == "" {
		return nil, 0, apperrors.NewValidationError("secretaria and departamento required", nil)
	}

	unit, err := s.units.GetByID(ctx, unitID)
	if err != nil {
		return nil, 0, storeErr(err, "unit")
	}

	oldRef := unit.Ref()
	unit.Secretaria = secretaria
	unit.Departamento = departamento
	if err := s.units.Update(ctx, unit); err != nil {
		return nil, 0, storeErr(err, "unit")
	}
	newRef := unit.Ref()

	ids, err := s.collectTicketIDs(ctx, oldRef)
	if err != nil {
		return nil, 0, err
	}

	patches := make([]repository.TicketBatchPatch, 0, len(ids))
	for _, id := range ids {
		ref := newRef
		patches = append(patches, repository.TicketBatchPatch{
			ID:    id,
			Patch: repository.TicketPatch{Unit: &ref},
		})
	}
	applied, err := s.tickets.BatchUpdate(ctx, patches)
	if err != nil {
		return nil, applied, apperrors.NewDomainError(
			"STORE_UNAVAILABLE", "unit rename cascade partially applied", http.StatusServiceUnavailable,
			map[string]any{"applied": applied, "total": len(patches)})
	}

	s.publish(ctx, events.Event{
		Type:   events.EventUnitRenamed,
		UnitID: unit.ID,
		Actor:  eventActor(actor),
		Payload: events.UnitRenamedPayload{
			OldRef:          oldRef,
			NewRef:          newRef,
			CascadedTickets: applied,
		},
	})
	return unit, applied, nil
}

// collectTicketIDs pages through every ticket carrying the given unit
// reference using the same keyset order as the feed.
func (s *UnitService) collectTicketIDs(ctx context.Context, ref domain.UnitRef) ([]string, error) {
	const pageSize = 200

	var (
		ids   []string
		after *repository.PageKey
	)
	for {
		batch, err := s.tickets.Query(ctx, repository.TicketQuery{
			Secretaria:   &ref.Secretaria,
			Departamento: &ref.Departamento,
			After:        after,
			Limit:        pageSize,
		})
		if err != nil {
			return nil, apperrors.NewStoreUnavailable(err)
		}
		for _, ticket := range batch {
			ids = append(ids, ticket.ID)
		}
		if len(batch) < pageSize {
			return ids, nil
		}
		last := batch[len(batch)-1]
		after = &repository.PageKey{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

func (s *UnitService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}
