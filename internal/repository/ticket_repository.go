package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// TicketFilter captures search parameters for ticket listings.
type TicketFilter struct {
	Statuses    []domain.TicketStatus
	Priorities  []domain.TicketPriority
	SLAStatuses []domain.SLAStatus
	RegionID    *string
	TeamID      *string
	AssigneeID  *string
	IssueTypeID *string
	GroupID     *string
	SearchTerm  *string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Limit       int
	Offset      int
}

// SLACursor is the keyset position of the last ticket an SLA sweep page returned.
type SLACursor struct {
	DueAt time.Time
	ID    string
}

// TicketRepository encapsulates ticket persistence.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.Ticket) error
	Update(ctx context.Context, ticket *domain.Ticket) error
	GetByID(ctx context.Context, id string) (*domain.Ticket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error)
	// ListActivity returns tickets created or completed inside [from, to), plus every ticket
	// still open, so dashboards see the whole live SLA picture.
	ListActivity(ctx context.Context, from, to time.Time) ([]domain.Ticket, error)
	// ListOpenWithDue pages open tickets with a due time in (sla_due_at, id) order, starting
	// after the cursor. A nil cursor starts from the earliest due ticket.
	ListOpenWithDue(ctx context.Context, after *SLACursor, limit int) ([]domain.Ticket, error)
	UpdateSLAStatus(ctx context.Context, id string, status domain.SLAStatus) error
	SetGroup(ctx context.Context, ticketID string, groupID *string) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, ticket_number, subject, description, issue_type_id, supplier_id, supplier_name,
       city, region_id, priority, status, assigned_to, team_id, tier2_team_id, sla_due_at, sla_status,
       created_by, ticket_group_id, created_at, updated_at, resolved_at, closed_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        INSERT INTO tickets (subject, description, issue_type_id, supplier_id, supplier_name, city, region_id,
            priority, status, assigned_to, team_id, tier2_team_id, sla_due_at, sla_status, created_by, ticket_group_id)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, ticket_number, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.IssueTypeID,
		ticket.SupplierID,
		ticket.SupplierName,
		ticket.City,
		ticket.RegionID,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.TeamID,
		ticket.Tier2TeamID,
		ticket.SLADueAt,
		ticket.SLAStatus,
		ticket.CreatedBy,
		ticket.TicketGroupID,
	).Scan(&ticket.ID, &ticket.TicketNumber, &ticket.CreatedAt, &ticket.UpdatedAt)
}

// Update persists mutable workflow fields. sla_due_at is written once at insert and never
// updated here.
func (r *ticketRepository) Update(ctx context.Context, ticket *domain.Ticket) error {
	const query = `
        UPDATE tickets SET subject=$1, description=$2, priority=$3, status=$4, assigned_to=$5, team_id=$6,
            sla_status=$7, ticket_group_id=$8, resolved_at=$9, closed_at=$10, updated_at=NOW()
        WHERE id=$11
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		ticket.Subject,
		ticket.Description,
		ticket.Priority,
		ticket.Status,
		ticket.AssignedTo,
		ticket.TeamID,
		ticket.SLAStatus,
		ticket.TicketGroupID,
		ticket.ResolvedAt,
		ticket.ClosedAt,
		ticket.ID,
	).Scan(&ticket.UpdatedAt)
	return err
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets WHERE id=$1`
	var ticket domain.Ticket
	if err := scanTicket(r.pool.QueryRow(ctx, query, id), &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.Ticket, error) {
	clauses := []string{"1=1"}
	args := []any{}

	addEq := func(column string, value *string) {
		if value == nil {
			return
		}
		args = append(args, *value)
		clauses = append(clauses, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	addEq("region_id", filter.RegionID)
	addEq("team_id", filter.TeamID)
	addEq("assigned_to", filter.AssigneeID)
	addEq("issue_type_id", filter.IssueTypeID)
	addEq("ticket_group_id", filter.GroupID)

	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(filter.SLAStatuses) > 0 {
		placeholders := make([]string, len(filter.SLAStatuses))
		for i, st := range filter.SLAStatuses {
			args = append(args, st)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("sla_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(subject) LIKE %[1]s OR LOWER(ticket_number) LIKE %[1]s OR LOWER(supplier_name) LIKE %[1]s OR LOWER(city) LIKE %[1]s)",
			placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM tickets WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListActivity(ctx context.Context, from, to time.Time) ([]domain.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE (created_at >= $1 AND created_at < $2)
           OR (resolved_at >= $1 AND resolved_at < $2)
           OR (closed_at >= $1 AND closed_at < $2)
           OR status NOT IN ('resolved', 'closed')
        ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) ListOpenWithDue(ctx context.Context, after *SLACursor, limit int) ([]domain.Ticket, error) {
	if limit <= 0 {
		limit = 500
	}
	var (
		afterDue *time.Time
		afterID  *string
	)
	if after != nil {
		afterDue, afterID = &after.DueAt, &after.ID
	}
	query := `SELECT ` + ticketColumns + ` FROM tickets
        WHERE sla_due_at IS NOT NULL AND status NOT IN ('resolved', 'closed')
          AND ($1::timestamptz IS NULL OR (sla_due_at, id) > ($1::timestamptz, $2::uuid))
        ORDER BY sla_due_at ASC, id ASC LIMIT $3`
	rows, err := r.pool.Query(ctx, query, afterDue, afterID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTickets(rows)
}

func (r *ticketRepository) UpdateSLAStatus(ctx context.Context, id string, status domain.SLAStatus) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET sla_status=$1, updated_at=NOW() WHERE id=$2`, status, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *ticketRepository) SetGroup(ctx context.Context, ticketID string, groupID *string) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE tickets SET ticket_group_id=$1, updated_at=NOW() WHERE id=$2`, groupID, ticketID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanTicket(row pgx.Row, ticket *domain.Ticket) error {
	return row.Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.Subject,
		&ticket.Description,
		&ticket.IssueTypeID,
		&ticket.SupplierID,
		&ticket.SupplierName,
		&ticket.City,
		&ticket.RegionID,
		&ticket.Priority,
		&ticket.Status,
		&ticket.AssignedTo,
		&ticket.TeamID,
		&ticket.Tier2TeamID,
		&ticket.SLADueAt,
		&ticket.SLAStatus,
		&ticket.CreatedBy,
		&ticket.TicketGroupID,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
		&ticket.ResolvedAt,
		&ticket.ClosedAt,
	)
}

func scanTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for rows.Next() {
		var ticket domain.Ticket
		if err := scanTicket(rows, &ticket); err != nil {
			return nil, err
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}
