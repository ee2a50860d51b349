package cache

import (
	"context"

	"github.com/sells-group/intel-engine/internal/model"
)

// TieredCache composes the required in-memory tier with the optional
// network-backed tier (spec.md §4.D: "a required in-memory tier and an
// optional Redis-backed tier"). Reads check memory first and fall
// through to the remote tier on a miss; a remote hit is returned as is
// and not copied into memory. Writes and invalidations go to both tiers
// so either one alone stays a valid cache.
type TieredCache struct {
	memory Cache
	remote Cache
}

// NewTieredCache composes memory with remote. remote may be nil, in
// which case TieredCache behaves exactly like memory alone.
func NewTieredCache(memory, remote Cache) *TieredCache {
	return &TieredCache{memory: memory, remote: remote}
}

func (c *TieredCache) Get(ctx context.Context, key string) ([]byte, bool) {
	if val, ok := c.memory.Get(ctx, key); ok {
		return val, true
	}
	if c.remote == nil {
		return nil, false
	}
	// A remote hit isn't promoted into memory here: Get's key alone
	// doesn't carry the tag Set needs to pick the right TTL, and
	// guessing one would risk caching the entry for the wrong duration.
	return c.remote.Get(ctx, key)
}

func (c *TieredCache) Set(ctx context.Context, key string, tag model.CacheTag, value []byte) error {
	if err := c.memory.Set(ctx, key, tag, value); err != nil {
		return err
	}
	if c.remote != nil {
		return c.remote.Set(ctx, key, tag, value)
	}
	return nil
}

func (c *TieredCache) Invalidate(ctx context.Context, pattern string) (int, error) {
	removed, err := c.memory.Invalidate(ctx, pattern)
	if err != nil {
		return removed, err
	}
	if c.remote == nil {
		return removed, nil
	}
	remoteRemoved, err := c.remote.Invalidate(ctx, pattern)
	return removed + remoteRemoved, err
}

// Stats sums hits/misses across both tiers.
func (c *TieredCache) Stats() Stats {
	s := c.memory.Stats()
	if c.remote == nil {
		return s
	}
	rs := c.remote.Stats()
	return Stats{Hits: s.Hits + rs.Hits, Misses: s.Misses + rs.Misses}
}

// Close releases the remote tier's connection, if any. The memory tier's
// sweep goroutine is owned and closed by its constructor's caller
// directly, since TieredCache doesn't know whether it was handed a
// fresh MemoryCache or a shared one.
func (c *TieredCache) Close() error {
	if closer, ok := c.remote.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
