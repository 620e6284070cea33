package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/advanced-supermart/console-backend/services/console/models"
)

const (
	ProductListCachePrefix = "products:v:"
	CacheVersionKey        = "products:version"
	DefaultCacheTTL        = 10 * time.Minute
)

// ProductPage is one cached page of the catalog listing.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Total    int64            `json:"total"`
}

// PageKey addresses one cached page under the cache version current when it
// was looked up. A zero Version means the version was unknown.
type PageKey struct {
	Version       int64
	Page, PerPage int
}

// CacheManager caches catalog pages in Redis. Writes bump a version counter
// so every cached page becomes unreachable at once.
type CacheManager struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewCacheManager(client *redis.Client, ttl time.Duration) *CacheManager {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheManager{redis: client, ttl: ttl}
}

// GetProductPage returns a cached page, or false on a miss or any Redis
// error. The key is what a miss should be filled under, so a page read from
// the store before an Invalidate is never cached under the newer version.
func (cm *CacheManager) GetProductPage(ctx context.Context, page, perPage int) (*ProductPage, PageKey, bool) {
	key := PageKey{Page: page, PerPage: perPage}
	if cm == nil || cm.redis == nil {
		return nil, key, false
	}
	version, err := cm.getCacheVersion(ctx)
	if err != nil {
		return nil, key, false
	}
	key.Version = version

	cached, err := cm.redis.Get(ctx, cm.listKey(key)).Bytes()
	if err != nil {
		return nil, key, false
	}

	var result ProductPage
	if err := json.Unmarshal(cached, &result); err != nil {
		zap.L().Warn("Failed to unmarshal cached product page", zap.Error(err))
		return nil, key, false
	}
	return &result, key, true
}

// SetProductPageAsync caches a page off the request path.
func (cm *CacheManager) SetProductPageAsync(key PageKey, result *ProductPage) {
	if cm == nil || cm.redis == nil || key.Version == 0 {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		zap.L().Warn("Failed to marshal product page for cache", zap.Error(err))
		return
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := cm.redis.Set(bgCtx, cm.listKey(key), data, cm.ttl).Err(); err != nil {
			zap.L().Warn("Failed to cache product page", zap.Error(err))
		}
	}()
}

// Invalidate drops every cached page by bumping the version.
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	if cm == nil || cm.redis == nil {
		return nil
	}
	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	zap.L().Debug("Product cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}
		if errors.Is(err, redis.Nil) {
			// must not clobber a version bumped by Invalidate
			if err := cm.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err == nil {
				continue
			}
		}
		if i < maxRetries-1 {
			time.Sleep(50 * time.Millisecond)
		}
	}
	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func (cm *CacheManager) listKey(k PageKey) string {
	return fmt.Sprintf("%s%d:p:%d:l:%d", ProductListCachePrefix, k.Version, k.Page, k.PerPage)
}
