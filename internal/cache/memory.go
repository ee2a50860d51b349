package cache

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sells-group/intel-engine/internal/model"
)

const shardCount = 16

// MemoryCache is the required in-memory cache tier: a sharded map with a
// background TTL sweep, keyed by the fingerprinted keys from Key(). It is
// always available and never degrades.
type MemoryCache struct {
	shards [shardCount]*shard
	ttls   map[model.CacheTag]time.Duration
	now    func() time.Time

	hits   atomic.Int64
	misses atomic.Int64

	stop chan struct{}
	once sync.Once
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]model.CacheEntry
}

// NewMemoryCache constructs a MemoryCache with a sweep goroutine that
// prunes expired entries every sweepInterval. Callers should call Close
// when done to stop the goroutine.
func NewMemoryCache(sweepInterval time.Duration) *MemoryCache {
	c := &MemoryCache{
		ttls: map[model.CacheTag]time.Duration{},
		now:  time.Now,
		stop: make(chan struct{}),
	}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]model.CacheEntry)}
	}
	if sweepInterval > 0 {
		go c.sweepLoop(sweepInterval)
	}
	return c
}

func (c *MemoryCache) shardFor(key string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return c.shards[h.Sum32()%shardCount]
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	s := c.shardFor(key)
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok || entry.Expired(c.now()) {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	out := make([]byte, len(entry.Value))
	copy(out, entry.Value)
	return out, true
}

func (c *MemoryCache) Set(_ context.Context, key string, tag model.CacheTag, value []byte) error {
	ttl := tag.DefaultTTL()
	if override, ok := c.ttls[tag]; ok {
		ttl = override
	}
	now := c.now()
	stored := make([]byte, len(value))
	copy(stored, value)

	s := c.shardFor(key)
	s.mu.Lock()
	s.entries[key] = model.CacheEntry{
		Key:       key,
		Tag:       tag,
		Value:     stored,
		StoredAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	s.mu.Unlock()
	return nil
}

// Invalidate deletes every key containing pattern as a substring, across
// all shards, and returns the count removed.
func (c *MemoryCache) Invalidate(_ context.Context, pattern string) (int, error) {
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k := range s.entries {
			if strings.Contains(k, pattern) {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}

func (c *MemoryCache) Stats() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// Close stops the background sweep goroutine. Safe to call multiple times.
func (c *MemoryCache) Close() {
	c.once.Do(func() { close(c.stop) })
}

// TrimExpired forces an immediate out-of-band sweep of expired entries,
// independent of the background sweepLoop interval. The resource
// governor calls this as its cache-trim mitigation under memory
// pressure.
func (c *MemoryCache) TrimExpired() {
	c.sweep()
}

func (c *MemoryCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *MemoryCache) sweep() {
	now := c.now()
	for _, s := range c.shards {
		s.mu.Lock()
		for k, entry := range s.entries {
			if entry.Expired(now) {
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
}
