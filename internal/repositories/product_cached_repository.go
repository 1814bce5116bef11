package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"productapi/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CachedProductRepository caches single-product lookups in Redis and
// invalidates the entry on every write. Listings always hit the next repository.
type CachedProductRepository struct {
	next   ProductRepository
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedProductRepository wraps next with a Redis read-through cache.
func NewCachedProductRepository(next ProductRepository, client *redis.Client, ttl time.Duration, logger *zap.Logger) *CachedProductRepository {
	return &CachedProductRepository{
		next:   next,
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func productCacheKey(id uint) string {
	return fmt.Sprintf("product:%d", id)
}

func (r *CachedProductRepository) FindMany(ctx context.Context, filter models.ProductFilter) ([]models.Product, error) {
	return r.next.FindMany(ctx, filter)
}

// FindByID serves from the cache when possible. Cache errors fall through
// to the next repository.
func (r *CachedProductRepository) FindByID(ctx context.Context, id uint) (*models.Product, error) {
	key := productCacheKey(id)

	val, err := r.client.Get(ctx, key).Bytes()
	if err == nil {
		var product models.Product
		if err := json.Unmarshal(val, &product); err == nil {
			return &product, nil
		}
		r.logger.Warn("discarding undecodable cache entry", zap.String("key", key))
	} else if err != redis.Nil {
		r.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	product, err := r.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(product); err == nil {
		if err := r.client.Set(ctx, key, data, r.ttl).Err(); err != nil {
			r.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return product, nil
}

func (r *CachedProductRepository) Create(ctx context.Context, product *models.Product) error {
	return r.next.Create(ctx, product)
}

func (r *CachedProductRepository) Update(ctx context.Context, product *models.Product) error {
	if err := r.next.Update(ctx, product); err != nil {
		return err
	}
	r.invalidate(ctx, product.ID)
	return nil
}

func (r *CachedProductRepository) Delete(ctx context.Context, id uint) error {
	if err := r.next.Delete(ctx, id); err != nil {
		return err
	}
	r.invalidate(ctx, id)
	return nil
}

func (r *CachedProductRepository) invalidate(ctx context.Context, id uint) {
	if err := r.client.Del(ctx, productCacheKey(id)).Err(); err != nil {
		r.logger.Warn("cache invalidation failed", zap.Uint("product_id", id), zap.Error(err))
	}
}
