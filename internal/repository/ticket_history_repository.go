package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// TicketHistoryRepository is the append-only audit trail of a ticket.
type TicketHistoryRepository interface {
	Create(ctx context.Context, history *domain.TicketHistory) error
	ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error)
}

type ticketHistoryRepository struct {
	pool *pgxpool.Pool
}

func NewTicketHistoryRepository(pool *pgxpool.Pool) TicketHistoryRepository {
	return &ticketHistoryRepository{pool: pool}
}

func (r *ticketHistoryRepository) Create(ctx context.Context, entry *domain.TicketHistory) error {
	switch entry.ChangeType {
	case domain.ChangeTypeCreated, domain.ChangeTypeStatus, domain.ChangeTypeAssignee,
		domain.ChangeTypeTeam, domain.ChangeTypeGroup, domain.ChangeTypeSLA:
	default:
		return fmt.Errorf("unknown history change type %q", entry.ChangeType)
	}
	oldValue, newValue := entry.OldValue, entry.NewValue
	if oldValue == nil {
		oldValue = map[string]any{}
	}
	if newValue == nil {
		newValue = map[string]any{}
	}
	return r.pool.QueryRow(ctx, `
        INSERT INTO ticket_history (ticket_id, changed_by, change_type, old_value, new_value)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`,
		entry.TicketID, entry.ChangedBy, entry.ChangeType, oldValue, newValue,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByTicket returns entries oldest first with the author's display name; system entries
// carry "System".
func (r *ticketHistoryRepository) ListByTicket(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	rows, err := r.pool.Query(ctx, `
        SELECT h.id, h.ticket_id, h.changed_by, COALESCE(p.full_name, 'System'),
               h.change_type, h.old_value, h.new_value, h.created_at
        FROM ticket_history h
        LEFT JOIN profiles p ON p.id = h.changed_by
        WHERE h.ticket_id = $1
        ORDER BY h.created_at ASC, h.id ASC`, ticketID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TicketHistory, error) {
		var h domain.TicketHistory
		err := row.Scan(&h.ID, &h.TicketID, &h.ChangedBy, &h.ChangedByName,
			&h.ChangeType, &h.OldValue, &h.NewValue, &h.CreatedAt)
		return h, err
	})
}
