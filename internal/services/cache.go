package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// CacheKeyPrefix is the Redis key prefix for cached data
	CacheKeyPrefix = "cache:"
	// MaxCacheTTL caps every entry; cached reads are convenience copies only
	MaxCacheTTL = time.Hour
)

// Cache stores JSON values in Redis. A nil client makes every call a miss or
// a no-op, so callers never need to check whether Redis is configured.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewCache(client *redis.Client, logger *slog.Logger) *Cache {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cache{client: client, logger: logger}
}

// Get decodes the cached value into dest and reports whether it was found.
// Redis errors count as misses.
func (c *Cache) Get(ctx context.Context, key string, dest interface{}) bool {
	if c == nil || c.client == nil {
		return false
	}
	val, err := c.client.Get(ctx, CacheKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("cache read failed", "key", key, "error", err)
		}
		return false
	}
	if err := json.Unmarshal(val, dest); err != nil {
		c.logger.Warn("cache entry could not be decoded", "key", key, "error", err)
		return false
	}
	return true
}

// Set stores value under key with ttl, capped at MaxCacheTTL.
func (c *Cache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c == nil || c.client == nil {
		return nil
	}
	if ttl <= 0 || ttl > MaxCacheTTL {
		ttl = MaxCacheTTL
	}
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, CacheKeyPrefix+key, data, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, CacheKeyPrefix+key).Err()
}

// Generation returns the current value of a version counter. Keys built from
// it are invalidated wholesale by Bump.
func (c *Cache) Generation(ctx context.Context, name string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	n, err := c.client.Get(ctx, CacheKeyPrefix+"gen:"+name).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (c *Cache) Bump(ctx context.Context, name string) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, CacheKeyPrefix+"gen:"+name).Err()
}

// CacheKey generates a cache key for a specific resource
func CacheKey(resource string, parts ...interface{}) string {
	key := resource
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}
