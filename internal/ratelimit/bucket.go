// Package ratelimit implements the three independent token-bucket
// limiters the engine gates its search, crawl, and extraction calls
// through (spec.md §4.A).
package ratelimit

import (
	"context"
	"math"
	"sync"
	"time"
)

// Class names the three token classes the engine rate-limits separately.
type Class string

const (
	ClassSearch     Class = "search"
	ClassCrawl      Class = "crawl"
	ClassExtraction Class = "extraction"
)

// BucketConfig parameterizes a single token bucket.
type BucketConfig struct {
	Capacity       int64
	RefillRate     int64
	RefillInterval time.Duration
}

// Bucket is a thread-safe, lazily-refilling token bucket. Refill happens
// on every call rather than via a background goroutine: tokens available
// is always recomputed from elapsed time, per the formula in spec.md §4.A.
type Bucket struct {
	mu sync.Mutex

	capacity       int64
	refillRate     int64
	refillInterval time.Duration

	tokens     int64
	lastRefill time.Time
	now        func() time.Time
}

// NewBucket constructs a Bucket starting at full capacity.
func NewBucket(cfg BucketConfig) *Bucket {
	return newBucketWithClock(cfg, time.Now)
}

// newBucketWithClock is the test seam: it lets tests inject a controllable
// clock instead of depending on wall-clock sleeps.
func newBucketWithClock(cfg BucketConfig, now func() time.Time) *Bucket {
	return &Bucket{
		capacity:       cfg.Capacity,
		refillRate:     cfg.RefillRate,
		refillInterval: cfg.RefillInterval,
		tokens:         cfg.Capacity,
		lastRefill:     now(),
		now:            now,
	}
}

func (b *Bucket) refillLocked() {
	now := b.now()
	elapsed := now.Sub(b.lastRefill)
	if elapsed <= 0 || b.refillInterval <= 0 {
		return
	}
	intervals := int64(math.Floor(elapsed.Seconds() / b.refillInterval.Seconds()))
	if intervals <= 0 {
		return
	}
	b.tokens = minInt64(b.capacity, b.tokens+intervals*b.refillRate)
	b.lastRefill = b.lastRefill.Add(time.Duration(intervals) * b.refillInterval)
}

// Acquire attempts to take n tokens immediately, returning whether it
// succeeded. It never blocks.
func (b *Bucket) Acquire(n int64) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	if b.tokens < n {
		return false
	}
	b.tokens -= n
	return true
}

// Available returns the current token count without consuming any.
func (b *Bucket) Available() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refillLocked()
	return b.tokens
}

// WaitFor blocks, polling on a short interval, until n tokens are
// available and acquired, ctx is done, or maxWait elapses — whichever
// comes first. It returns an error if the wait timed out or ctx ended.
func (b *Bucket) WaitFor(ctx context.Context, n int64, maxWait time.Duration) error {
	// maxWait is measured on the wall clock, like the poll sleep below,
	// not on the bucket's refill clock.
	deadline := time.Now().Add(maxWait)
	const pollInterval = 25 * time.Millisecond

	for {
		if b.Acquire(n) {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
