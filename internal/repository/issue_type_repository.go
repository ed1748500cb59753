package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// IssueTypeRepository persists issue types and their routing defaults.
type IssueTypeRepository interface {
	Create(ctx context.Context, issueType *domain.IssueType) error
	Update(ctx context.Context, issueType *domain.IssueType) error
	GetByID(ctx context.Context, id string) (*domain.IssueType, error)
	List(ctx context.Context, includeInactive bool) ([]domain.IssueType, error)
}

type issueTypeRepository struct {
	pool *pgxpool.Pool
}

// NewIssueTypeRepository constructs repository.
func NewIssueTypeRepository(pool *pgxpool.Pool) IssueTypeRepository {
	return &issueTypeRepository{pool: pool}
}

const issueTypeColumns = `id, name, icon, default_sla_hours, default_team_id, default_assignee, is_active, created_at, updated_at`

func (r *issueTypeRepository) Create(ctx context.Context, it *domain.IssueType) error {
	const query = `
        INSERT INTO issue_types (name, icon, default_sla_hours, default_team_id, default_assignee, is_active)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		it.Name,
		it.Icon,
		it.DefaultSLAHours,
		it.DefaultTeamID,
		it.DefaultAssignee,
		it.IsActive,
	).Scan(&it.ID, &it.CreatedAt, &it.UpdatedAt)
}

func (r *issueTypeRepository) Update(ctx context.Context, it *domain.IssueType) error {
	const query = `
        UPDATE issue_types SET name=$1, icon=$2, default_sla_hours=$3, default_team_id=$4,
            default_assignee=$5, is_active=$6, updated_at=NOW()
        WHERE id=$7`
	cmd, err := r.pool.Exec(ctx, query,
		it.Name,
		it.Icon,
		it.DefaultSLAHours,
		it.DefaultTeamID,
		it.DefaultAssignee,
		it.IsActive,
		it.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *issueTypeRepository) GetByID(ctx context.Context, id string) (*domain.IssueType, error) {
	var it domain.IssueType
	if err := scanIssueType(r.pool.QueryRow(ctx, `SELECT `+issueTypeColumns+` FROM issue_types WHERE id=$1`, id), &it); err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *issueTypeRepository) List(ctx context.Context, includeInactive bool) ([]domain.IssueType, error) {
	query := `SELECT ` + issueTypeColumns + ` FROM issue_types`
	if !includeInactive {
		query += ` WHERE is_active=TRUE`
	}
	query += ` ORDER BY name ASC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.IssueType
	for rows.Next() {
		var it domain.IssueType
		if err := scanIssueType(rows, &it); err != nil {
			return nil, err
		}
		result = append(result, it)
	}
	return result, rows.Err()
}

func scanIssueType(row pgx.Row, it *domain.IssueType) error {
	return row.Scan(
		&it.ID,
		&it.Name,
		&it.Icon,
		&it.DefaultSLAHours,
		&it.DefaultTeamID,
		&it.DefaultAssignee,
		&it.IsActive,
		&it.CreatedAt,
		&it.UpdatedAt,
	)
}
