package feed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/repository"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

func seedTickets(t *testing.T, store *repository.MemoryTicketStore, n int) []string {
	t.Helper()
	base := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("ticket-%02d", i)
		ticket := &domain.Ticket{
			ID:          id,
			RequesterID: "user-1",
			Unit:        domain.UnitRef{Secretaria: "Saude", Departamento: "TI"},
			Subject:     domain.TicketSubjectSupport,
			Status:      domain.TicketStatusOpen,
			CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Insert(context.Background(), ticket); err != nil {
			t.Fatalf("insert: %v", err)
		}
		ids = append(ids, id)
	}
	return ids
}

func collectAll(t *testing.T, store repository.TicketRepository, pageSize int) []domain.Ticket {
	t.Helper()
	var (
		all    []domain.Ticket
		cursor *Cursor
	)
	for {
		page, err := FetchPage(context.Background(), store, repository.TicketQuery{}, pageSize, cursor)
		if err != nil {
			t.Fatalf("fetch page: %v", err)
		}
		all = append(all, page.Items...)
		if page.Exhausted {
			return all
		}
		cursor = page.NextCursor
	}
}

func TestPaginationCompleteness(t *testing.T) {
	store := repository.NewMemoryTicketStore()
	seedTickets(t, store, 5)

	single, err := FetchPage(context.Background(), store, repository.TicketQuery{}, 5, nil)
	if err != nil {
		t.Fatalf("single page: %v", err)
	}
	paged := collectAll(t, store, 2)

	if len(paged) != len(single.Items) {
		t.Fatalf("paged walk returned %d items, single page %d", len(paged), len(single.Items))
	}
	for i := range paged {
		if paged[i].ID != single.Items[i].ID {
			t.Fatalf("order diverged at %d: %s vs %s", i, paged[i].ID, single.Items[i].ID)
		}
	}
}

func TestNoDuplicatesNoGaps(t *testing.T) {
	store := repository.NewMemoryTicketStore()
	ids := seedTickets(t, store, 9)

	paged := collectAll(t, store, 4)
	if len(paged) != len(ids) {
		t.Fatalf("expected %d tickets across pages, got %d", len(ids), len(paged))
	}
	seen := map[string]bool{}
	for _, ticket := range paged {
		if seen[ticket.ID] {
			t.Fatalf("duplicate ticket %s across pages", ticket.ID)
		}
		seen[ticket.ID] = true
	}
}

func TestTieBreakOnEqualCreatedAt(t *testing.T) {
	store := repository.NewMemoryTicketStore()
	created := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	for _, id := range []string{"b", "c", "a", "d"} {
		ticket := &domain.Ticket{
			ID:          id,
			RequesterID: "user-1",
			Subject:     domain.TicketSubjectSupport,
			Status:      domain.TicketStatusOpen,
			CreatedAt:   created,
		}
		if err := store.Insert(context.Background(), ticket); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	paged := collectAll(t, store, 2)
	want := []string{"a", "b", "c", "d"}
	if len(paged) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(paged))
	}
	for i, id := range want {
		if paged[i].ID != id {
			t.Fatalf("tie-break order wrong at %d: got %s want %s", i, paged[i].ID, id)
		}
	}
}

func TestExhaustionIsIdempotent(t *testing.T) {
	store := repository.NewMemoryTicketStore()
	seedTickets(t, store, 3)

	first, err := FetchPage(context.Background(), store, repository.TicketQuery{}, 4, nil)
	if err != nil {
		t.Fatalf("first page: %v", err)
	}
	if !first.Exhausted {
		t.Fatalf("short page must report exhaustion")
	}
	if first.NextCursor == nil {
		t.Fatalf("non-empty page must still carry a cursor")
	}

	terminal := first.NextCursor
	for i := 0; i < 3; i++ {
		page, err := FetchPage(context.Background(), store, repository.TicketQuery{}, 4, terminal)
		if err != nil {
			t.Fatalf("terminal fetch %d: %v", i, err)
		}
		if len(page.Items) != 0 || !page.Exhausted {
			t.Fatalf("terminal fetch %d returned %d items, exhausted=%v", i, len(page.Items), page.Exhausted)
		}
	}
}

type failingStore struct {
	repository.TicketRepository
}

func (f *failingStore) Query(context.Context, repository.TicketQuery) ([]domain.Ticket, error) {
	return nil, errors.New("connection refused")
}

func TestStoreFailurePropagates(t *testing.T) {
	_, err := FetchPage(context.Background(), &failingStore{}, repository.TicketQuery{}, 5, nil)
	if err == nil {
		t.Fatalf("expected error from failing store")
	}
	if !apperrors.HasCode(err, "STORE_UNAVAILABLE") {
		t.Fatalf("expected STORE_UNAVAILABLE, got %v", err)
	}
}

func TestInvalidPageSizeRejected(t *testing.T) {
	store := repository.NewMemoryTicketStore()
	for _, size := range []int{0, -1} {
		if _, err := FetchPage(context.Background(), store, repository.TicketQuery{}, size, nil); !apperrors.HasCode(err, "VALIDATION_FAILED") {
			t.Fatalf("page size %d: expected VALIDATION_FAILED, got %v", size, err)
		}
	}
}

func TestMalformedCursorRejected(t *testing.T) {
	store := repository.NewMemoryTicketStore()
	bad := Cursor("not base64 json!!")
	if _, err := FetchPage(context.Background(), store, repository.TicketQuery{}, 5, &bad); !apperrors.HasCode(err, "VALIDATION_FAILED") {
		t.Fatalf("expected VALIDATION_FAILED for malformed cursor, got %v", err)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	key := repository.PageKey{
		CreatedAt: time.Date(2024, 5, 10, 12, 0, 0, 123456000, time.UTC),
		ID:        "ticket-42",
	}
	decoded, err := DecodeCursor(EncodeCursor(key))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !decoded.CreatedAt.Equal(key.CreatedAt) || decoded.ID != key.ID {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, key)
	}
}
