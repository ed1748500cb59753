package repository

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cityflow/crm/internal/cache"
	"github.com/cityflow/crm/internal/domain"
)

// cachedRegionRepository serves region and city lookups from a cache. Writes go to the
// wrapped repository and invalidate the affected keys. Cache failures are logged and the
// lookup falls through to the database.
type cachedRegionRepository struct {
	RegionRepository
	store  cache.Store
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedRegionRepository decorates inner with lookup caching. A zero ttl disables caching.
func NewCachedRegionRepository(inner RegionRepository, store cache.Store, ttl time.Duration, logger *zap.Logger) RegionRepository {
	if store == nil || ttl <= 0 {
		return inner
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &cachedRegionRepository{RegionRepository: inner, store: store, ttl: ttl, logger: logger}
}

func regionKey(id string) string { return "region:" + id }
func cityKey(city string) string { return "city:" + NormalizeCity(city) }

func (r *cachedRegionRepository) GetByID(ctx context.Context, id string) (*domain.Region, error) {
	var cached domain.Region
	if hit, err := r.store.GetJSON(ctx, regionKey(id), &cached); err != nil {
		r.logger.Warn("region cache read failed", zap.String("region_id", id), zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	region, err := r.RegionRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetJSON(ctx, regionKey(id), region, r.ttl); err != nil {
		r.logger.Warn("region cache write failed", zap.String("region_id", id), zap.Error(err))
	}
	return region, nil
}

func (r *cachedRegionRepository) GetCityMapping(ctx context.Context, city string) (*domain.CityMapping, error) {
	var cached domain.CityMapping
	if hit, err := r.store.GetJSON(ctx, cityKey(city), &cached); err != nil {
		r.logger.Warn("city cache read failed", zap.String("city", city), zap.Error(err))
	} else if hit {
		return &cached, nil
	}

	mapping, err := r.RegionRepository.GetCityMapping(ctx, city)
	if err != nil {
		return nil, err
	}
	if err := r.store.SetJSON(ctx, cityKey(city), mapping, r.ttl); err != nil {
		r.logger.Warn("city cache write failed", zap.String("city", city), zap.Error(err))
	}
	return mapping, nil
}

func (r *cachedRegionRepository) Update(ctx context.Context, region *domain.Region) error {
	if err := r.RegionRepository.Update(ctx, region); err != nil {
		return err
	}
	r.invalidate(ctx, regionKey(region.ID))
	return nil
}

func (r *cachedRegionRepository) CreateCityMapping(ctx context.Context, mapping *domain.CityMapping) error {
	if err := r.RegionRepository.CreateCityMapping(ctx, mapping); err != nil {
		return err
	}
	r.invalidate(ctx, cityKey(mapping.CityName))
	return nil
}

func (r *cachedRegionRepository) DeleteCityMapping(ctx context.Context, id string) (*domain.CityMapping, error) {
	mapping, err := r.RegionRepository.DeleteCityMapping(ctx, id)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, cityKey(mapping.CityName))
	return mapping, nil
}

func (r *cachedRegionRepository) invalidate(ctx context.Context, keys ...string) {
	if err := r.store.Delete(ctx, keys...); err != nil {
		r.logger.Warn("cache invalidation failed", zap.Strings("keys", keys), zap.Error(err))
	}
}
