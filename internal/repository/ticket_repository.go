package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

// PageKey is the decoded continuation point for keyset pagination: the
// sort-key values of the last item already returned.
type PageKey struct {
	CreatedAt time.Time
	ID        string
}

// TicketQuery captures the predicate set and page bounds produced by the
// query planner. The sort order is fixed: created_at descending, id
// ascending on ties, so pagination stays deterministic under coarse
// timestamp resolution.
type TicketQuery struct {
	RequesterID  *string
	Secretaria   *string
	Departamento *string
	Status       *domain.TicketStatus
	After        *PageKey
	Limit        int
}

// TicketPatch is a partial update; nil fields are left untouched.
type TicketPatch struct {
	Status        *domain.TicketStatus
	Complement    *string
	Unit          *domain.UnitRef
	RequesterID   *string
	RequesterName *string
	LastUpdatedBy *string
	LastUpdatedAt *time.Time
}

// Empty reports whether the patch would change nothing.
func (p TicketPatch) Empty() bool {
	return p.Status == nil && p.Complement == nil && p.Unit == nil &&
		p.RequesterID == nil && p.RequesterName == nil &&
		p.LastUpdatedBy == nil && p.LastUpdatedAt == nil
}

// TicketBatchPatch pairs a ticket id with its partial update for batch
// mutations.
type TicketBatchPatch struct {
	ID    string
	Patch TicketPatch
}

// TicketRepository encapsulates ticket persistence. Batch operations are
// best-effort: each document is updated independently and a partial
// failure leaves earlier updates in place.
type TicketRepository interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	Query(ctx context.Context, query TicketQuery) ([]domain.Ticket, error)
	UpdatePartial(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error)
	Delete(ctx context.Context, id string) error
	BatchUpdate(ctx context.Context, patches []TicketBatchPatch) (int, error)
	BatchDelete(ctx context.Context, ids []string) (int, error)
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository returns a Postgres-backed implementation.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, requester_id, requester_name, secretaria, departamento,
               subject, complement, status, created_at, last_updated_by, last_updated_at`

func (r *ticketRepository) Insert(ctx context.Context, ticket *domain.Ticket) error {
	// Ids are client-assigned so a retried insert after a transient
	// failure lands on the same row instead of duplicating the ticket.
	const query = `
        INSERT INTO tickets (id, requester_id, requester_name, secretaria, departamento, subject, complement, status, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO NOTHING`
	_, err := r.pool.Exec(ctx, query,
		ticket.ID,
		ticket.RequesterID,
		ticket.RequesterName,
		ticket.Unit.Secretaria,
		ticket.Unit.Departamento,
		ticket.Subject,
		ticket.Complement,
		ticket.Status,
		ticket.CreatedAt,
	)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE id=$1`, ticketColumns)
	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&ticket.ID,
		&ticket.RequesterID,
		&ticket.RequesterName,
		&ticket.Unit.Secretaria,
		&ticket.Unit.Departamento,
		&ticket.Subject,
		&ticket.Complement,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.LastUpdatedBy,
		&ticket.LastUpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Query(ctx context.Context, query TicketQuery) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if query.RequesterID != nil {
		args = append(args, *query.RequesterID)
		clauses = append(clauses, fmt.Sprintf("requester_id=$%d", len(args)))
	}
	if query.Secretaria != nil {
		args = append(args, *query.Secretaria)
		clauses = append(clauses, fmt.Sprintf("secretaria=$%d", len(args)))
	}
	if query.Departamento != nil {
		args = append(args, *query.Departamento)
		clauses = append(clauses, fmt.Sprintf("departamento=$%d", len(args)))
	}
	if query.Status != nil {
		args = append(args, *query.Status)
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if query.After != nil {
		args = append(args, query.After.CreatedAt)
		tsArg := len(args)
		args = append(args, query.After.ID)
		idArg := len(args)
		clauses = append(clauses, fmt.Sprintf(
			"(created_at < $%d OR (created_at = $%d AND id > $%d))", tsArg, tsArg, idArg))
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 20
	}

	sql := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC, id ASC LIMIT %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit)

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdatePartial(ctx context.Context, id string, patch TicketPatch) (*domain.Ticket, error) {
	sets := []string{}
	args := []any{}

	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}

	if patch.Status != nil {
		add("status", *patch.Status)
	}
	if patch.Complement != nil {
		add("complement", *patch.Complement)
	}
	if patch.Unit != nil {
		add("secretaria", patch.Unit.Secretaria)
		add("departamento", patch.Unit.Departamento)
	}
	if patch.RequesterID != nil {
		add("requester_id", *patch.RequesterID)
	}
	if patch.RequesterName != nil {
		add("requester_name", *patch.RequesterName)
	}
	if patch.LastUpdatedBy != nil {
		add("last_updated_by", *patch.LastUpdatedBy)
	}
	if patch.LastUpdatedAt != nil {
		add("last_updated_at", *patch.LastUpdatedAt)
	}
	if len(sets) == 0 {
		return r.GetByID(ctx, id)
	}

	args = append(args, id)
	sql := fmt.Sprintf(`UPDATE tickets SET %s WHERE id=$%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), ticketColumns)

	var ticket domain.Ticket
	if err := r.pool.QueryRow(ctx, sql, args...).Scan(
		&ticket.ID,
		&ticket.RequesterID,
		&ticket.RequesterName,
		&ticket.Unit.Secretaria,
		&ticket.Unit.Departamento,
		&ticket.Subject,
		&ticket.Complement,
		&ticket.Status,
		&ticket.CreatedAt,
		&ticket.LastUpdatedBy,
		&ticket.LastUpdatedAt,
	); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM tickets WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) BatchUpdate(ctx context.Context, patches []TicketBatchPatch) (int, error) {
	applied := 0
	for _, entry := range patches {
		if _, err := r.UpdatePartial(ctx, entry.ID, entry.Patch); err != nil {
			return applied, err
		}
		applied++
	}
	return applied, nil
}

func (r *ticketRepository) BatchDelete(ctx context.Context, ids []string) (int, error) {
	deleted := 0
	for _, id := range ids {
		if err := r.Delete(ctx, id); err != nil {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.RequesterID,
			&ticket.RequesterName,
			&ticket.Unit.Secretaria,
			&ticket.Unit.Departamento,
			&ticket.Subject,
			&ticket.Complement,
			&ticket.Status,
			&ticket.CreatedAt,
			&ticket.LastUpdatedBy,
			&ticket.LastUpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
