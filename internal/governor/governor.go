// Package governor implements the resource governor (spec.md §4.L): a
// periodic sampler of process memory, CPU, connections, and active
// requests that emits threshold advisories and performs best-effort
// mitigation.
package governor

import (
	"context"
	goruntime "runtime"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Threshold fractions of configured cap (spec.md §4.L: "memory 80% warn
// / 90% crit ... CPU 70/85 ... connections 80/95").
const (
	memWarnFrac  = 0.80
	memCritFrac  = 0.90
	cpuWarnFrac  = 0.70
	cpuCritFrac  = 0.85
	connWarnFrac = 0.80
	connCritFrac = 0.95
)

const adviceHistory = 50

// Level is the severity of an Advisory.
type Level string

const (
	LevelWarn Level = "warn"
	LevelCrit Level = "crit"
)

// Advisory reports a threshold breach on one resource.
type Advisory struct {
	Level     Level
	Resource  string
	Value     float64
	Cap       float64
	SampledAt time.Time
}

// Caps are the configured resource ceilings (spec.md §6 configuration:
// governor.mem_cap, cpu_cap, conn_cap).
type Caps struct {
	MemCapMB      float64
	CPUCapPercent float64
	ConnCap       int
}

// Probe supplies the resource figures the governor can't read itself.
type Probe interface {
	ActiveRequests() int
	OpenConnections() int
	PoolSize() int
}

// Mitigator performs the best-effort mitigation spec.md §4.L names:
// "force a cache trim and close-then-rebuild the connection pool".
type Mitigator interface {
	TrimCache()
	RebuildPool() error
}

// PoolStats is the connection-pool slice of Health's view.
type PoolStats struct {
	OpenConnections int
	Size            int
}

// Health is the point-in-time view spec.md §4.L exposes:
// "{within_limits, warnings[], recent_advisories_count, pool_stats}".
type Health struct {
	WithinLimits         bool
	Warnings             []string
	RecentAdvisoriesCount int
	PoolStats            PoolStats
}

// ResourceSnapshot is the full set of figures one sample collects,
// including active-request count (spec.md §4.L names it among the
// sampled figures even though it carries no threshold of its own).
type ResourceSnapshot struct {
	MemMB           float64
	CPUPercent      float64
	OpenConnections int
	ActiveRequests  int
	PoolSize        int
	SampledAt       time.Time
}

// Governor periodically samples resource usage and emits advisories.
type Governor struct {
	mu         sync.Mutex
	caps       Caps
	interval   time.Duration
	probe      Probe
	mitigator  Mitigator
	logger     *zap.Logger
	observers  []func(Advisory)
	recent     []Advisory
	lastWarn   []string
	lastSample ResourceSnapshot
	cpu        *cpuSampler

	// critEpisode records that the previous sample saw a crit breach.
	critEpisode bool

	stop     chan struct{}
	stopOnce sync.Once
}

// New constructs a Governor that samples every interval (default 30 s
// when interval <= 0, per spec.md §4.L).
func New(caps Caps, interval time.Duration, probe Probe, mitigator Mitigator, logger *zap.Logger) *Governor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Governor{
		caps:      caps,
		interval:  interval,
		probe:     probe,
		mitigator: mitigator,
		logger:    logger,
		cpu:       newCPUSampler(),
		stop:      make(chan struct{}),
	}
}

// RegisterObserver attaches fn to receive every Advisory the governor
// emits.
func (g *Governor) RegisterObserver(fn func(Advisory)) {
	g.mu.Lock()
	g.observers = append(g.observers, fn)
	g.mu.Unlock()
}

// Start runs the sample loop until Shutdown is called or ctx is
// cancelled.
func (g *Governor) Start(ctx context.Context) {
	ticker := time.NewTicker(g.interval)
	defer ticker.Stop()
	for {
		g.sampleAndEvaluate()
		select {
		case <-ctx.Done():
			return
		case <-g.stop:
			return
		case <-ticker.C:
		}
	}
}

// Shutdown stops the sample loop.
func (g *Governor) Shutdown() {
	g.stopOnce.Do(func() { close(g.stop) })
}

func (g *Governor) sampleAndEvaluate() {
	var mem goruntime.MemStats
	goruntime.ReadMemStats(&mem)
	memMB := float64(mem.Alloc) / (1024 * 1024)
	cpuPercent := g.cpu.sample()

	var activeRequests, openConns, poolSize int
	if g.probe != nil {
		activeRequests = g.probe.ActiveRequests()
		openConns = g.probe.OpenConnections()
		poolSize = g.probe.PoolSize()
	}

	now := time.Now().UTC()
	var warnings []string
	// Mitigation runs once per breach episode: a crit breach on the
	// previous sample means this one continues the same episode.
	g.mu.Lock()
	mitigated := g.critEpisode
	g.mu.Unlock()
	var anyCrit bool

	if advisory, ok := evaluate("memory", memMB, g.caps.MemCapMB, now); ok {
		warnings = append(warnings, advisory.Resource)
		g.emit(advisory)
		if advisory.Level == LevelCrit {
			anyCrit = true
			g.mitigate(&mitigated)
		}
	}
	if advisory, ok := evaluate("cpu", cpuPercent, g.caps.CPUCapPercent, now); ok {
		warnings = append(warnings, advisory.Resource)
		g.emit(advisory)
		if advisory.Level == LevelCrit {
			anyCrit = true
			g.mitigate(&mitigated)
		}
	}
	if advisory, ok := evaluate("connections", float64(openConns), float64(g.caps.ConnCap), now); ok {
		warnings = append(warnings, advisory.Resource)
		g.emit(advisory)
		if advisory.Level == LevelCrit {
			anyCrit = true
			g.mitigate(&mitigated)
		}
	}

	g.mu.Lock()
	g.lastWarn = warnings
	g.critEpisode = anyCrit
	g.lastSample = ResourceSnapshot{
		MemMB: memMB, CPUPercent: cpuPercent, OpenConnections: openConns,
		ActiveRequests: activeRequests, PoolSize: poolSize, SampledAt: now,
	}
	g.mu.Unlock()
}

// Snapshot returns the most recently collected ResourceSnapshot.
func (g *Governor) Snapshot() ResourceSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastSample
}

// evaluate compares value against cap's warn/crit fractions for the
// named resource, returning the more severe Advisory that applies.
func evaluate(resource string, value, cap float64, at time.Time) (Advisory, bool) {
	if cap <= 0 {
		return Advisory{}, false
	}
	warnFrac, critFrac := fractionsFor(resource)
	ratio := value / cap
	switch {
	case ratio >= critFrac:
		return Advisory{Level: LevelCrit, Resource: resource, Value: value, Cap: cap, SampledAt: at}, true
	case ratio >= warnFrac:
		return Advisory{Level: LevelWarn, Resource: resource, Value: value, Cap: cap, SampledAt: at}, true
	default:
		return Advisory{}, false
	}
}

func fractionsFor(resource string) (warn, crit float64) {
	switch resource {
	case "cpu":
		return cpuWarnFrac, cpuCritFrac
	case "connections":
		return connWarnFrac, connCritFrac
	default:
		return memWarnFrac, memCritFrac
	}
}

func (g *Governor) emit(a Advisory) {
	g.mu.Lock()
	g.recent = append(g.recent, a)
	if len(g.recent) > adviceHistory {
		g.recent = g.recent[len(g.recent)-adviceHistory:]
	}
	observers := append([]func(Advisory){}, g.observers...)
	g.mu.Unlock()

	if g.logger != nil {
		g.logger.Warn("governor: threshold breach",
			zap.String("level", string(a.Level)), zap.String("resource", a.Resource),
			zap.Float64("value", a.Value), zap.Float64("cap", a.Cap))
	}
	for _, fn := range observers {
		fn(a)
	}
}

func (g *Governor) mitigate(done *bool) {
	if g.mitigator == nil || *done {
		return
	}
	*done = true
	g.mitigator.TrimCache()
	if err := g.mitigator.RebuildPool(); err != nil && g.logger != nil {
		g.logger.Warn("governor: pool rebuild failed", zap.Error(err))
	}
}

// Health returns the current health view.
func (g *Governor) Health() Health {
	g.mu.Lock()
	warnings := append([]string{}, g.lastWarn...)
	recentCount := len(g.recent)
	g.mu.Unlock()

	var pool PoolStats
	if g.probe != nil {
		pool = PoolStats{OpenConnections: g.probe.OpenConnections(), Size: g.probe.PoolSize()}
	}
	return Health{
		WithinLimits:          len(warnings) == 0,
		Warnings:              warnings,
		RecentAdvisoriesCount: recentCount,
		PoolStats:             pool,
	}
}
