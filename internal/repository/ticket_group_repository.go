package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// TicketGroupRepository persists ticket groups.
type TicketGroupRepository interface {
	Create(ctx context.Context, group *domain.TicketGroup) error
	Update(ctx context.Context, group *domain.TicketGroup) error
	GetByID(ctx context.Context, id string) (*domain.TicketGroup, error)
	List(ctx context.Context, status *domain.TicketGroupStatus) ([]domain.TicketGroup, error)
}

type ticketGroupRepository struct {
	pool *pgxpool.Pool
}

// NewTicketGroupRepository constructs repository.
func NewTicketGroupRepository(pool *pgxpool.Pool) TicketGroupRepository {
	return &ticketGroupRepository{pool: pool}
}

const groupColumns = `id, name, issue_type_id, city, assigned_to, sla_due_at, status, created_by, created_at, updated_at, resolved_at`

func (r *ticketGroupRepository) Create(ctx context.Context, group *domain.TicketGroup) error {
	const query = `
        INSERT INTO ticket_groups (name, issue_type_id, city, assigned_to, sla_due_at, status, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		group.Name,
		group.IssueTypeID,
		group.City,
		group.AssignedTo,
		group.SLADueAt,
		group.Status,
		group.CreatedBy,
	).Scan(&group.ID, &group.CreatedAt, &group.UpdatedAt)
}

func (r *ticketGroupRepository) Update(ctx context.Context, group *domain.TicketGroup) error {
	const query = `
        UPDATE ticket_groups SET name=$1, assigned_to=$2, sla_due_at=$3, status=$4, resolved_at=$5, updated_at=NOW()
        WHERE id=$6`
	cmd, err := r.pool.Exec(ctx, query,
		group.Name,
		group.AssignedTo,
		group.SLADueAt,
		group.Status,
		group.ResolvedAt,
		group.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketGroupRepository) GetByID(ctx context.Context, id string) (*domain.TicketGroup, error) {
	var g domain.TicketGroup
	if err := scanGroup(r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM ticket_groups WHERE id=$1`, id), &g); err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *ticketGroupRepository) List(ctx context.Context, status *domain.TicketGroupStatus) ([]domain.TicketGroup, error) {
	query := `SELECT ` + groupColumns + ` FROM ticket_groups`
	args := []any{}
	if status != nil {
		query += ` WHERE status=$1`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketGroup
	for rows.Next() {
		var g domain.TicketGroup
		if err := scanGroup(rows, &g); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func scanGroup(row pgx.Row, g *domain.TicketGroup) error {
	return row.Scan(
		&g.ID,
		&g.Name,
		&g.IssueTypeID,
		&g.City,
		&g.AssignedTo,
		&g.SLADueAt,
		&g.Status,
		&g.CreatedBy,
		&g.CreatedAt,
		&g.UpdatedAt,
		&g.ResolvedAt,
	)
}
