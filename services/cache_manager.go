package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/yashrajoria/grocery-backend/models"
	awspkg "github.com/yashrajoria/grocery-backend/pkg/aws"
	"github.com/yashrajoria/grocery-backend/repository"
)

const (
	ItemCachePrefix  = "items:v:"
	CacheVersionKey  = "items:version"
	DefaultCacheTTL  = 10 * time.Minute
	cacheWriteBudget = 5 * time.Second
)

// CacheManager caches catalog reads in Redis. Every key embeds the current
// version, so bumping the version invalidates everything at once.
//
// Readers take the version before reading the store and write back under
// that same version. A fill racing an Invalidate then lands under a retired
// key instead of the new one.
type CacheManager struct {
	redis   *redis.Client
	ttl     time.Duration
	metrics *awspkg.MetricsClient
	logger  *zap.Logger
}

func NewCacheManager(client *redis.Client, ttl time.Duration, log *zap.Logger) *CacheManager {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CacheManager{redis: client, ttl: ttl, logger: log}
}

// WithMetrics records cache hits and misses.
func (cm *CacheManager) WithMetrics(m *awspkg.MetricsClient) *CacheManager {
	cm.metrics = m
	return cm
}

// GetItemList returns the cached list for f. The returned version is the one
// to hand to SetItemListAsync on a miss; zero means the cache is unusable.
func (cm *CacheManager) GetItemList(ctx context.Context, f repository.ItemFilter) ([]models.Item, int64, bool) {
	var items []models.Item
	version, hit := cm.get(ctx, func(v int64) string { return listCacheKey(v, f) }, &items)
	if !hit {
		return nil, version, false
	}
	return items, version, true
}

func (cm *CacheManager) SetItemListAsync(version int64, f repository.ItemFilter, items []models.Item) {
	cm.setAsync(listCacheKey(version, f), version, items)
}

func (cm *CacheManager) GetItem(ctx context.Context, id string) (*models.Item, int64, bool) {
	var item models.Item
	version, hit := cm.get(ctx, func(v int64) string { return itemCacheKey(v, id) }, &item)
	if !hit {
		return nil, version, false
	}
	return &item, version, true
}

func (cm *CacheManager) SetItemAsync(version int64, id string, item *models.Item) {
	cm.setAsync(itemCacheKey(version, id), version, item)
}

// Invalidate drops every cached catalog entry by bumping the version.
func (cm *CacheManager) Invalidate(ctx context.Context) error {
	newVersion, err := cm.redis.Incr(ctx, CacheVersionKey).Result()
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	cm.logger.Debug("catalog cache invalidated", zap.Int64("new_version", newVersion))
	return nil
}

func (cm *CacheManager) get(ctx context.Context, key func(int64) string, dst interface{}) (int64, bool) {
	version, err := cm.getCacheVersion(ctx)
	if err != nil {
		return 0, false
	}

	cached, err := cm.redis.Get(ctx, key(version)).Bytes()
	if err != nil {
		recordCount(cm.metrics, awspkg.MetricCacheMisses)
		return version, false
	}

	if err := json.Unmarshal(cached, dst); err != nil {
		cm.logger.Warn("failed to unmarshal cached catalog entry", zap.Error(err))
		recordCount(cm.metrics, awspkg.MetricCacheMisses)
		return version, false
	}
	recordCount(cm.metrics, awspkg.MetricCacheHits)
	return version, true
}

func (cm *CacheManager) setAsync(key string, version int64, value interface{}) {
	if version <= 0 {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		cm.logger.Warn("failed to marshal catalog entry for cache", zap.Error(err))
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cacheWriteBudget)
		defer cancel()

		if err := cm.redis.Set(ctx, key, payload, cm.ttl).Err(); err != nil {
			cm.logger.Warn("failed to cache catalog entry", zap.Error(err))
		}
	}()
}

// getCacheVersion reads the version, initialising it to 1 on first use.
func (cm *CacheManager) getCacheVersion(ctx context.Context) (int64, error) {
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		ver, err := cm.redis.Get(ctx, CacheVersionKey).Int64()
		if err == nil && ver > 0 {
			return ver, nil
		}

		if errors.Is(err, redis.Nil) {
			// SetNX so a concurrent Invalidate is never overwritten.
			if err := cm.redis.SetNX(ctx, CacheVersionKey, 1, 0).Err(); err == nil {
				continue
			}
		}

		if i < maxRetries-1 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(50 * time.Millisecond):
			}
		}
	}

	return 0, fmt.Errorf("failed to get cache version after %d retries", maxRetries)
}

func listCacheKey(version int64, f repository.ItemFilter) string {
	return fmt.Sprintf("%s%d:list:c:%s:min:%s:max:%s:s:%s:%t",
		ItemCachePrefix,
		version,
		f.Category,
		formatFloatForCache(f.MinPrice),
		formatFloatForCache(f.MaxPrice),
		f.SortField,
		f.SortDesc,
	)
}

func itemCacheKey(version int64, id string) string {
	return fmt.Sprintf("%s%d:detail:%s", ItemCachePrefix, version, id)
}

func formatFloatForCache(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
