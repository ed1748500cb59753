package repository

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cityflow/crm/internal/domain"
)

// RegionRepository persists regions and the city-to-region mapping.
type RegionRepository interface {
	Create(ctx context.Context, region *domain.Region) error
	Update(ctx context.Context, region *domain.Region) error
	GetByID(ctx context.Context, id string) (*domain.Region, error)
	List(ctx context.Context) ([]domain.Region, error)
	// GetCityMapping matches city trimmed and case-insensitively. A city without a mapping
	// returns pgx.ErrNoRows.
	GetCityMapping(ctx context.Context, city string) (*domain.CityMapping, error)
	ListCityMappings(ctx context.Context) ([]domain.CityMapping, error)
	CreateCityMapping(ctx context.Context, mapping *domain.CityMapping) error
	DeleteCityMapping(ctx context.Context, id string) (*domain.CityMapping, error)
}

type regionRepository struct {
	pool *pgxpool.Pool
}

// NewRegionRepository constructs repository.
func NewRegionRepository(pool *pgxpool.Pool) RegionRepository {
	return &regionRepository{pool: pool}
}

// NormalizeCity is the comparison key for city names.
func NormalizeCity(city string) string {
	return strings.ToLower(strings.TrimSpace(city))
}

func (r *regionRepository) Create(ctx context.Context, region *domain.Region) error {
	const query = `
        INSERT INTO regions (name, manager_id)
        VALUES ($1,$2)
        RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, query, region.Name, region.ManagerID).
		Scan(&region.ID, &region.CreatedAt, &region.UpdatedAt)
}

func (r *regionRepository) Update(ctx context.Context, region *domain.Region) error {
	const query = `
        UPDATE regions SET name=$1, manager_id=$2, updated_at=NOW()
        WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, region.Name, region.ManagerID, region.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *regionRepository) GetByID(ctx context.Context, id string) (*domain.Region, error) {
	const query = `SELECT id, name, manager_id, created_at, updated_at FROM regions WHERE id=$1`
	var region domain.Region
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&region.ID,
		&region.Name,
		&region.ManagerID,
		&region.CreatedAt,
		&region.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &region, nil
}

func (r *regionRepository) List(ctx context.Context) ([]domain.Region, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, manager_id, created_at, updated_at FROM regions ORDER BY name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Region
	for rows.Next() {
		var region domain.Region
		if err := rows.Scan(&region.ID, &region.Name, &region.ManagerID, &region.CreatedAt, &region.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, region)
	}
	return result, rows.Err()
}

func (r *regionRepository) GetCityMapping(ctx context.Context, city string) (*domain.CityMapping, error) {
	const query = `
        SELECT id, city_name, region_id, created_at
        FROM city_mappings WHERE LOWER(city_name)=$1`
	var mapping domain.CityMapping
	if err := r.pool.QueryRow(ctx, query, NormalizeCity(city)).Scan(
		&mapping.ID,
		&mapping.CityName,
		&mapping.RegionID,
		&mapping.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &mapping, nil
}

func (r *regionRepository) ListCityMappings(ctx context.Context) ([]domain.CityMapping, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, city_name, region_id, created_at FROM city_mappings ORDER BY city_name ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.CityMapping
	for rows.Next() {
		var mapping domain.CityMapping
		if err := rows.Scan(&mapping.ID, &mapping.CityName, &mapping.RegionID, &mapping.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, mapping)
	}
	return result, rows.Err()
}

func (r *regionRepository) CreateCityMapping(ctx context.Context, mapping *domain.CityMapping) error {
	const query = `
        INSERT INTO city_mappings (city_name, region_id)
        VALUES ($1,$2)
        RETURNING id, created_at`
	mapping.CityName = strings.TrimSpace(mapping.CityName)
	return r.pool.QueryRow(ctx, query, mapping.CityName, mapping.RegionID).
		Scan(&mapping.ID, &mapping.CreatedAt)
}

func (r *regionRepository) DeleteCityMapping(ctx context.Context, id string) (*domain.CityMapping, error) {
	const query = `DELETE FROM city_mappings WHERE id=$1 RETURNING id, city_name, region_id, created_at`
	var mapping domain.CityMapping
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&mapping.ID,
		&mapping.CityName,
		&mapping.RegionID,
		&mapping.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &mapping, nil
}
