package main

import (
	"github.com/sells-group/intel-engine/internal/cache"
	"github.com/sells-group/intel-engine/internal/runtime"
	"github.com/sells-group/intel-engine/internal/store"
)

// poolStatsProvider is satisfied by SQLiteStore without the Store
// interface needing to know about connection pools.
type poolStatsProvider interface {
	PoolStats() (open, maxOpen int)
}

// rebuildablePool is satisfied by SQLiteStore's pool-reset mitigation.
type rebuildablePool interface {
	RebuildPool() error
}

// runtimeProbe implements governor.Probe by reading the live runtime
// queue depth and the store's connection pool.
type runtimeProbe struct {
	rt *runtime.Runtime
	st store.Store
}

func newProbe(rt *runtime.Runtime, st store.Store) *runtimeProbe {
	return &runtimeProbe{rt: rt, st: st}
}

func (p *runtimeProbe) ActiveRequests() int {
	return p.rt.ActiveCount()
}

func (p *runtimeProbe) OpenConnections() int {
	if ps, ok := p.st.(poolStatsProvider); ok {
		open, _ := ps.PoolStats()
		return open
	}
	return 0
}

func (p *runtimeProbe) PoolSize() int {
	if ps, ok := p.st.(poolStatsProvider); ok {
		_, max := ps.PoolStats()
		return max
	}
	return 0
}

// storeMitigator implements governor.Mitigator against the in-memory
// cache tier and, when the store supports it, a connection pool reset.
type storeMitigator struct {
	cache *cache.MemoryCache
	st    store.Store
}

func newMitigator(c *cache.MemoryCache, st store.Store) *storeMitigator {
	return &storeMitigator{cache: c, st: st}
}

func (m *storeMitigator) TrimCache() {
	m.cache.TrimExpired()
}

func (m *storeMitigator) RebuildPool() error {
	if rp, ok := m.st.(rebuildablePool); ok {
		return rp.RebuildPool()
	}
	return nil
}
