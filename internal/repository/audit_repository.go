package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/municipio-kit/chamados-service/internal/domain"
)

// AuditRepository persists the per-ticket audit trail. Entries survive
// ticket deletion so administrators can still see who removed what.
type AuditRepository interface {
	Create(ctx context.Context, event *domain.TicketEvent) error
	ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketEvent, error)
}

type auditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository builds the repository.
func NewAuditRepository(pool *pgxpool.Pool) AuditRepository {
	return &auditRepository{pool: pool}
}

func (r *auditRepository) Create(ctx context.Context, event *domain.TicketEvent) error {
	oldValue, err := json.Marshal(event.OldValue)
	if err != nil {
		return err
	}
	newValue, err := json.Marshal(event.NewValue)
	if err != nil {
		return err
	}

	const query = `
        INSERT INTO ticket_events (id, ticket_id, actor_id, actor_name, actor_role, change_type, old_value, new_value)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at`
	return r.pool.QueryRow(ctx, query,
		event.ID,
		event.TicketID,
		event.ActorID,
		event.ActorName,
		event.ActorRole,
		event.ChangeType,
		oldValue,
		newValue,
	).Scan(&event.CreatedAt)
}

func (r *auditRepository) ListByTicket(ctx context.Context, ticketID string, limit int) ([]domain.TicketEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, ticket_id, actor_id, actor_name, actor_role, change_type, old_value, new_value, created_at
        FROM ticket_events WHERE ticket_id=$1
        ORDER BY created_at DESC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, ticketID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func scanEvents(rows pgx.Rows) ([]domain.TicketEvent, error) {
	var result []domain.TicketEvent
	for rows.Next() {
		var (
			event    domain.TicketEvent
			oldValue []byte
			newValue []byte
		)
		if err := rows.Scan(
			&event.ID,
			&event.TicketID,
			&event.ActorID,
			&event.ActorName,
			&event.ActorRole,
			&event.ChangeType,
			&oldValue,
			&newValue,
			&event.CreatedAt,
		); err != nil {
			return nil, err
		}
		if len(oldValue) > 0 {
			if err := json.Unmarshal(oldValue, &event.OldValue); err != nil {
				return nil, err
			}
		}
		if len(newValue) > 0 {
			if err := json.Unmarshal(newValue, &event.NewValue); err != nil {
				return nil, err
			}
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
