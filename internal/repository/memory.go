package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

// MemoryTicketStore is an in-memory TicketRepository with the same sort,
// cursor and predicate semantics as the Postgres implementation. It backs
// the test suite and the no-database development mode.
type MemoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewMemoryTicketStore builds an empty store.
func NewMemoryTicketStore() *MemoryTicketStore {
	return &MemoryTicketStore{tickets: make(map[string]domain.Ticket)}
}

func (s *MemoryTicketStore) Insert(_ context.Context, ticket *domain.Ticket) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	// Same contract as the SQL ON CONFLICT DO NOTHING: a retried insert
	// with the same client-assigned id is a no-op.
	if _, exists := s.tickets[ticket.ID]; exists {
		return nil
	}
	s.tickets[ticket.ID] = *ticket
	return nil
}

func (s *MemoryTicketStore) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &ticket, nil
}

func (s *MemoryTicketStore) Query(_ context.Context, query TicketQuery) ([]domain.Ticket, error) {
	s.mu.RLock()
	matched := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if query.RequesterID != nil && ticket.RequesterID != *query.RequesterID {
			continue
		}
		if query.Secretaria != nil && ticket.Unit.Secretaria != *query.Secretaria {
			continue
		}
		if query.Departamento != nil && ticket.Unit.Departamento != *query.Departamento {
			continue
		}
		if query.Status != nil && ticket.Status != *query.Status {
			continue
		}
		matched = append(matched, ticket)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})

	if query.After != nil {
		cut := 0
		for cut < len(matched) && !afterKey(matched[cut], *query.After) {
			cut++
		}
		matched = matched[cut:]
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

// afterKey reports whether the ticket sorts strictly after the page key
// under (created_at desc, id asc).
func afterKey(ticket domain.Ticket, key PageKey) bool {
	if ticket.CreatedAt.Before(key.CreatedAt) {
		return true
	}
	return ticket.CreatedAt.Equal(key.CreatedAt) && ticket.ID > key.ID
}

func (s *MemoryTicketStore) UpdatePartial(_ context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	if patch.Status != nil {
		ticket.Status = *patch.Status
	}
	if patch.Complement != nil {
		ticket.Complement = *patch.Complement
	}
	if patch.Unit != nil {
		ticket.Unit = *patch.Unit
	}
	if patch.RequesterID != nil {
		ticket.RequesterID = *patch.RequesterID
	}
	if patch.RequesterName != nil {
		ticket.RequesterName = *patch.RequesterName
	}
	if patch.LastUpdatedBy != nil {
		ticket.LastUpdatedBy = patch.LastUpdatedBy
	}
	if patch.LastUpdatedAt != nil {
		ticket.LastUpdatedAt = patch.LastUpdatedAt
	}
	s.tickets[id] = ticket
	return &ticket, nil
}

func (s *MemoryTicketStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(s.tickets, id)
	return nil
}

func (s *MemoryTicketStore) BatchUpdate(ctx context.Context, patches []TicketBatchPatch) (int, error) {
	applied := 0
	for _, entry := range patches {
		if _, err := s.UpdatePartial(ctx, entry.ID, entry.Patch); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (s *MemoryTicketStore) BatchDelete(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// MemoryUnitStore is the in-memory UnitRepository.
type MemoryUnitStore struct {
	mu    sync.RWMutex
	units map[string]domain.Unit
}

// NewMemoryUnitStore builds an empty store.
func NewMemoryUnitStore() *MemoryUnitStore {
	return &MemoryUnitStore{units: make(map[string]domain.Unit)}
}

func (s *MemoryUnitStore) Create(_ context.Context, unit *domain.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	unit.CreatedAt = now
	unit.UpdatedAt = now
	s.units[unit.ID] = *unit
	return nil
}

func (s *MemoryUnitStore) Update(_ context.Context, unit *domain.Unit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.units[unit.ID]; !ok {
		return pgx.ErrNoRows
	}
	unit.UpdatedAt = time.Now()
	s.units[unit.ID] = *unit
	return nil
}

func (s *MemoryUnitStore) GetByID(_ context.Context, id string) (*domain.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	unit, ok := s.units[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &unit, nil
}

func (s *MemoryUnitStore) ListActive(_ context.Context) ([]domain.Unit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []domain.Unit
	for _, unit := range s.units {
		if unit.Active {
			result = append(result, unit)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Secretaria != result[j].Secretaria {
			return result[i].Secretaria < result[j].Secretaria
		}
		return result[i].Departamento < result[j].Departamento
	})
	return result, nil
}

func (s *MemoryUnitStore) Deactivate(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	unit, ok := s.units[id]
	if !ok {
		return pgx.ErrNoRows
	}
	unit.Active = false
	unit.UpdatedAt = time.Now()
	s.units[id] = unit
	return nil
}

// MemoryProfileStore is the in-memory ProfileRepository.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]domain.Profile
}

// NewMemoryProfileStore builds an empty store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{profiles: make(map[string]domain.Profile)}
}

func (s *MemoryProfileStore) Create(_ context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *MemoryProfileStore) Update(_ context.Context, profile *domain.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[profile.ID]; !ok {
		return pgx.ErrNoRows
	}
	profile.UpdatedAt = time.Now()
	s.profiles[profile.ID] = *profile
	return nil
}

func (s *MemoryProfileStore) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &profile, nil
}

func (s *MemoryProfileStore) GetByEmail(_ context.Context, email string) (*domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, profile := range s.profiles {
		if profile.Email == email {
			p := profile
			return &p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

// Delete removes a profile. Not part of ProfileRepository; account
// removal is an operational task, but tests need to simulate it.
func (s *MemoryProfileStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, id)
}

// MemoryAuditStore is the in-memory AuditRepository.
type MemoryAuditStore struct {
	mu     sync.RWMutex
	events []domain.TicketEvent
}

// NewMemoryAuditStore builds an empty store.
func NewMemoryAuditStore() *MemoryAuditStore {
	return &MemoryAuditStore{}
}

func (s *MemoryAuditStore) Create(_ context.Context, event *domain.TicketEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	s.events = append(s.events, *event)
	return nil
}

func (s *MemoryAuditStore) ListByTicket(_ context.Context, ticketID string, limit int) ([]domain.TicketEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var result []domain.TicketEvent
	for _, event := range s.events {
		if event.TicketID == ticketID {
			result = append(result, event)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
