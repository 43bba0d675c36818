package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nitikorn/featured-slots/internal/domain"
	"github.com/nitikorn/featured-slots/pkg/logger"
	"github.com/redis/go-redis/v9"
)

const (
	catalogKeyPrefix  = "catalog:entry:"
	defaultCatalogTTL = 5 * time.Minute
)

// CachedCatalogRepository decorates a CatalogRepository with a Redis
// read-through cache. The catalog is read-mostly; cache errors fail open to
// the underlying store and updates invalidate the cached entry.
type CachedCatalogRepository struct {
	inner CatalogRepository
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedCatalogRepository creates a new CachedCatalogRepository
func NewCachedCatalogRepository(inner CatalogRepository, client *redis.Client, ttl time.Duration) *CachedCatalogRepository {
	if ttl <= 0 {
		ttl = defaultCatalogTTL
	}
	return &CachedCatalogRepository{
		inner: inner,
		redis: client,
		ttl:   ttl,
	}
}

// GetEntry returns the cached entry when present, falling back to the store
func (r *CachedCatalogRepository) GetEntry(ctx context.Context, category domain.SlotCategory) (*domain.PricingCatalogEntry, error) {
	key := catalogKeyPrefix + category.String()

	if raw, err := r.redis.Get(ctx, key).Result(); err == nil {
		entry := &domain.PricingCatalogEntry{}
		if err := json.Unmarshal([]byte(raw), entry); err == nil {
			return entry, nil
		}
		// Corrupt cache entry, drop it and re-read
		r.redis.Del(ctx, key)
	}

	entry, err := r.inner.GetEntry(ctx, category)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(entry); err == nil {
		if err := r.redis.Set(ctx, key, raw, r.ttl).Err(); err != nil {
			logger.Get().Warn(fmt.Sprintf("Failed to cache catalog entry %s: %v", category, err))
		}
	}

	return entry, nil
}

// ListEntries always reads through to the store
func (r *CachedCatalogRepository) ListEntries(ctx context.Context) ([]*domain.PricingCatalogEntry, error) {
	return r.inner.ListEntries(ctx)
}

// UpdateEntry writes through and invalidates the cached entry
func (r *CachedCatalogRepository) UpdateEntry(ctx context.Context, entry *domain.PricingCatalogEntry) error {
	if err := r.inner.UpdateEntry(ctx, entry); err != nil {
		return err
	}
	if err := r.redis.Del(ctx, catalogKeyPrefix+entry.SlotCategory.String()).Err(); err != nil {
		logger.Get().Warn(fmt.Sprintf("Failed to invalidate catalog cache for %s: %v", entry.SlotCategory, err))
	}
	return nil
}

// Ensure CachedCatalogRepository implements CatalogRepository
var _ CatalogRepository = (*CachedCatalogRepository)(nil)
