package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/model"
)

// RedisCache is the optional network-backed cache tier. It degrades to a
// no-op, all-misses cache whenever Redis is unreachable rather than
// returning errors up the stack (spec.md §4.D).
type RedisCache struct {
	client *redis.Client
	logger *zap.Logger

	hits   atomic.Int64
	misses atomic.Int64

	degraded atomic.Bool
}

// NewRedisCache constructs a RedisCache against addr. It pings once at
// construction to decide whether to start degraded; later outages are
// detected per-call and also flip the cache into degraded mode.
func NewRedisCache(addr string, logger *zap.Logger) *RedisCache {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  1 * time.Second,
		WriteTimeout: 1 * time.Second,
	})

	c := &RedisCache{client: client, logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis cache starting in degraded mode", zap.Error(err))
		c.degraded.Store(true)
	}
	return c
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if c.degraded.Load() {
		c.misses.Add(1)
		return nil, false
	}
	val, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.markDegraded(err)
		}
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return val, true
}

func (c *RedisCache) Set(ctx context.Context, key string, tag model.CacheTag, value []byte) error {
	if c.degraded.Load() {
		// While degraded the write is skipped and reported as success,
		// since the memory tier still has the value.
		return nil
	}
	if err := c.client.Set(ctx, key, value, tag.DefaultTTL()).Err(); err != nil {
		c.markDegraded(err)
		return nil
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	if c.degraded.Load() {
		return 0, nil
	}
	var cursor uint64
	removed := 0
	for {
		keys, next, err := c.client.Scan(ctx, cursor, "*"+pattern+"*", 100).Result()
		if err != nil {
			c.markDegraded(err)
			return removed, nil
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.markDegraded(err)
				return removed, nil
			}
			removed += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return removed, nil
}

func (c *RedisCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Degraded reports whether the cache is currently operating in
// all-misses, best-effort-write mode.
func (c *RedisCache) Degraded() bool {
	return c.degraded.Load()
}

func (c *RedisCache) markDegraded(err error) {
	if c.degraded.CompareAndSwap(false, true) {
		c.logger.Warn("redis cache degraded to no-op after connection failure", zap.Error(err))
	}
}

// Close releases the underlying Redis connection pool.
func (c *RedisCache) Close() error {
	return c.client.Close()
}
