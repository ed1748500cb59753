package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// TeamRepository stores functional, custom and city teams.
type TeamRepository interface {
	Create(ctx context.Context, team *domain.Team) error
	Update(ctx context.Context, team *domain.Team) error
	GetByID(ctx context.Context, id string) (*domain.Team, error)
	List(ctx context.Context) ([]domain.Team, error)
	// CityTeamForRegion returns the region's city_team, or pgx.ErrNoRows when it has none.
	CityTeamForRegion(ctx context.Context, regionID string) (*domain.Team, error)
}

type teamRepository struct {
	pool *pgxpool.Pool
}

func NewTeamRepository(pool *pgxpool.Pool) TeamRepository {
	return &teamRepository{pool: pool}
}

const selectTeams = `SELECT id, name, team_type, region_id, is_active, created_at, updated_at FROM teams`

func scanTeam(row pgx.Row) (domain.Team, error) {
	var t domain.Team
	err := row.Scan(&t.ID, &t.Name, &t.TeamType, &t.RegionID, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

// Create inserts the team. A second city_team for the same region violates
// teams_one_city_team_per_region.
func (r *teamRepository) Create(ctx context.Context, team *domain.Team) error {
	return r.pool.QueryRow(ctx, `
        INSERT INTO teams (name, team_type, region_id, is_active)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`,
		team.Name, team.TeamType, team.RegionID, team.IsActive,
	).Scan(&team.ID, &team.CreatedAt, &team.UpdatedAt)
}

func (r *teamRepository) Update(ctx context.Context, team *domain.Team) error {
	return r.pool.QueryRow(ctx, `
        UPDATE teams SET name=$2, team_type=$3, region_id=$4, is_active=$5, updated_at=NOW()
        WHERE id=$1
        RETURNING updated_at`,
		team.ID, team.Name, team.TeamType, team.RegionID, team.IsActive,
	).Scan(&team.UpdatedAt)
}

func (r *teamRepository) GetByID(ctx context.Context, id string) (*domain.Team, error) {
	team, err := scanTeam(r.pool.QueryRow(ctx, selectTeams+` WHERE id=$1`, id))
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) CityTeamForRegion(ctx context.Context, regionID string) (*domain.Team, error) {
	team, err := scanTeam(r.pool.QueryRow(ctx,
		selectTeams+` WHERE region_id=$1 AND team_type=$2`, regionID, domain.TeamTypeCityTeam))
	if err != nil {
		return nil, err
	}
	return &team, nil
}

func (r *teamRepository) List(ctx context.Context) ([]domain.Team, error) {
	rows, err := r.pool.Query(ctx, selectTeams+` ORDER BY team_type, name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Team, error) {
		return scanTeam(row)
	})
}
