package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// ProfileRepository handles persistence for staff profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	List(ctx context.Context, filter ProfileFilter) ([]domain.Profile, error)
}

// ProfileFilter defines query params for profile listing.
type ProfileFilter struct {
	TeamID *string
	Role   *domain.Role
	Active *bool
	Limit  int
	Offset int
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository constructs repository.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

const profileColumns = `id, full_name, email, password_hash, role, team_id, is_active, created_at, updated_at`

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (full_name, email, password_hash, role, team_id, is_active)
        VALUES ($1,LOWER($2),$3,$4,$5,$6)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		profile.FullName,
		profile.Email,
		profile.PasswordHash,
		profile.Role,
		profile.TeamID,
		profile.IsActive,
	).Scan(&profile.ID, &profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET full_name=$1, role=$2, team_id=$3, is_active=$4, updated_at=NOW()
        WHERE id=$5`
	cmd, err := r.pool.Exec(ctx, query,
		profile.FullName,
		profile.Role,
		profile.TeamID,
		profile.IsActive,
		profile.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	return r.fetchSingle(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id=$1`, id)
}

func (r *profileRepository) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	return r.fetchSingle(ctx, `SELECT `+profileColumns+` FROM profiles WHERE email=LOWER($1)`, strings.TrimSpace(email))
}

func (r *profileRepository) fetchSingle(ctx context.Context, query string, arg any) (*domain.Profile, error) {
	var p domain.Profile
	if err := scanProfile(r.pool.QueryRow(ctx, query, arg), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepository) List(ctx context.Context, filter ProfileFilter) ([]domain.Profile, error) {
	query := `SELECT ` + profileColumns + ` FROM profiles`
	clauses := []string{}
	args := []any{}
	if filter.TeamID != nil {
		args = append(args, *filter.TeamID)
		clauses = append(clauses, fmt.Sprintf("team_id=$%d", len(args)))
	}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		clauses = append(clauses, fmt.Sprintf("role=$%d", len(args)))
	}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		clauses = append(clauses, fmt.Sprintf("is_active=$%d", len(args)))
	}
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY full_name ASC"

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Profile
	for rows.Next() {
		var p domain.Profile
		if err := scanProfile(rows, &p); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func scanProfile(row pgx.Row, p *domain.Profile) error {
	return row.Scan(
		&p.ID,
		&p.FullName,
		&p.Email,
		&p.PasswordHash,
		&p.Role,
		&p.TeamID,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
}
