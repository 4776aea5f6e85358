// internal/artifact/cache.go
package artifact

import (
	"context"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"

	"rent-predictor/internal/common/logger"
	"rent-predictor/internal/common/metrics"
)

// CacheKey is the Redis key an artifact is stored under.
func CacheKey(bucket, key string) string {
	return fmt.Sprintf("artifact:%s/%s", bucket, key)
}

// CachedStore reads through an in-process LRU, then Redis, then the wrapped store.
// Cache failures fall through to the next layer; store failures are returned as-is.
type CachedStore struct {
	next   Store
	memory *lru.Cache[string, []byte]
	redis  redis.Cmdable
	ttl    time.Duration
	log    logger.Logger
}

type CacheOptions struct {
	MemoryEntries int
	Redis         redis.Cmdable // nil disables the shared layer
	TTL           time.Duration
}

func NewCachedStore(next Store, opts CacheOptions, log logger.Logger) (*CachedStore, error) {
	size := opts.MemoryEntries
	if size <= 0 {
		size = 8
	}
	memory, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("create artifact lru: %w", err)
	}

	return &CachedStore{
		next:   next,
		memory: memory,
		redis:  opts.Redis,
		ttl:    opts.TTL,
		log:    log.WithFields(map[string]interface{}{"component": "artifact-cache"}),
	}, nil
}

func (c *CachedStore) Fetch(ctx context.Context, bucket, key string) ([]byte, error) {
	cacheKey := CacheKey(bucket, key)

	if data, ok := c.memory.Get(cacheKey); ok {
		metrics.ArtifactFetches.WithLabelValues("memory", "hit").Inc()
		return data, nil
	}
	metrics.ArtifactFetches.WithLabelValues("memory", "miss").Inc()

	if c.redis != nil {
		data, err := c.redis.Get(ctx, cacheKey).Bytes()
		switch {
		case err == nil:
			metrics.ArtifactFetches.WithLabelValues("redis", "hit").Inc()
			c.memory.Add(cacheKey, data)
			return data, nil
		case errors.Is(err, redis.Nil):
			metrics.ArtifactFetches.WithLabelValues("redis", "miss").Inc()
		default:
			metrics.ArtifactFetches.WithLabelValues("redis", "error").Inc()
			c.log.Warn("redis artifact lookup failed", map[string]interface{}{
				"key":   cacheKey,
				"error": err.Error(),
			})
		}
	}

	data, err := c.next.Fetch(ctx, bucket, key)
	if err != nil {
		metrics.ArtifactFetches.WithLabelValues("store", "error").Inc()
		return nil, err
	}
	metrics.ArtifactFetches.WithLabelValues("store", "hit").Inc()

	c.memory.Add(cacheKey, data)
	if c.redis != nil {
		if err := c.redis.Set(ctx, cacheKey, data, c.ttl).Err(); err != nil {
			c.log.Warn("redis artifact write failed", map[string]interface{}{
				"key":   cacheKey,
				"error": err.Error(),
			})
		}
	}

	return data, nil
}
