// Package feed fetches ticket pages of fixed size using the last-seen
// item as a continuation cursor. Each call is stateless; the running list
// and the last cursor live in the caller.
package feed

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/municipio-kit/chamados-service/internal/domain"
	"github.com/municipio-kit/chamados-service/internal/repository"
	apperrors "github.com/municipio-kit/chamados-service/pkg/util"
)

// Cursor is the opaque continuation token handed to the caller.
type Cursor string

type cursorPayload struct {
	T  time.Time `json:"t"`
	ID string    `json:"id"`
}

// EncodeCursor packs a page key into an opaque token.
func EncodeCursor(key repository.PageKey) Cursor {
	blob, _ := json.Marshal(cursorPayload{T: key.CreatedAt, ID: key.ID})
	return Cursor(base64.RawURLEncoding.EncodeToString(blob))
}

// DecodeCursor unpacks an opaque token back into a page key.
func DecodeCursor(cursor Cursor) (*repository.PageKey, error) {
	blob, err := base64.RawURLEncoding.DecodeString(string(cursor))
	if err != nil {
		return nil, apperrors.NewValidationError("malformed cursor", nil)
	}
	var payload cursorPayload
	if err := json.Unmarshal(blob, &payload); err != nil {
		return nil, apperrors.NewValidationError("malformed cursor", nil)
	}
	return &repository.PageKey{CreatedAt: payload.T, ID: payload.ID}, nil
}

// Page is one feed response. Exhausted is true iff the page came back
// shorter than the requested size; re-fetching with the same cursor after
// that returns an empty exhausted page.
type Page struct {
	Items      []domain.Ticket
	NextCursor *Cursor
	Exhausted  bool
}

// FetchPage runs the planned query against the store for one page. A
// failed store round-trip surfaces as STORE_UNAVAILABLE without touching
// any caller-side state, so retrying with the same cursor is safe.
func FetchPage(ctx context.Context, store repository.TicketRepository, ticketQuery repository.TicketQuery, pageSize int, cursor *Cursor) (*Page, error) {
	if pageSize <= 0 {
		return nil, apperrors.NewValidationError("page size must be positive", map[string]any{"page_size": pageSize})
	}

	if cursor != nil {
		after, err := DecodeCursor(*cursor)
		if err != nil {
			return nil, err
		}
		ticketQuery.After = after
	}
	ticketQuery.Limit = pageSize

	items, err := store.Query(ctx, ticketQuery)
	if err != nil {
		return nil, apperrors.NewStoreUnavailable(err)
	}

	page := &Page{
		Items:     items,
		Exhausted: len(items) < pageSize,
	}
	if len(items) > 0 {
		last := items[len(items)-1]
		next := EncodeCursor(repository.PageKey{CreatedAt: last.CreatedAt, ID: last.ID})
		page.NextCursor = &next
	}
	return page, nil
}
