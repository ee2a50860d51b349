package ratelimit

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
)

// ErrTimeout is returned by WaitFor when max_wait elapses before enough
// tokens become available.
var ErrTimeout = eris.New("ratelimit: wait timed out")

// Limiters owns the three independent token-bucket classes the engine
// gates its collaborator calls through.
type Limiters struct {
	buckets map[Class]*Bucket
}

// Config holds the per-class bucket configuration, keyed by class.
type Config map[Class]BucketConfig

// New constructs Limiters from cfg. Any class missing from cfg gets a
// generous default so callers don't need to specify all three.
func New(cfg Config) *Limiters {
	defaults := Config{
		ClassSearch:     {Capacity: 10, RefillRate: 10, RefillInterval: time.Minute},
		ClassCrawl:      {Capacity: 20, RefillRate: 20, RefillInterval: time.Minute},
		ClassExtraction: {Capacity: 5, RefillRate: 5, RefillInterval: time.Minute},
	}
	l := &Limiters{buckets: make(map[Class]*Bucket, len(defaults))}
	for class, def := range defaults {
		c := def
		if override, ok := cfg[class]; ok {
			c = override
		}
		l.buckets[class] = NewBucket(c)
	}
	return l
}

// Acquire attempts to take n tokens from class's bucket without blocking.
func (l *Limiters) Acquire(class Class, n int64) bool {
	return l.bucket(class).Acquire(n)
}

// WaitFor blocks until n tokens from class's bucket are available or
// maxWait/ctx expires.
func (l *Limiters) WaitFor(ctx context.Context, class Class, n int64, maxWait time.Duration) error {
	return l.bucket(class).WaitFor(ctx, n, maxWait)
}

// Available reports the current token count for class.
func (l *Limiters) Available(class Class) int64 {
	return l.bucket(class).Available()
}

func (l *Limiters) bucket(class Class) *Bucket {
	b, ok := l.buckets[class]
	if !ok {
		// Unregistered classes get an always-full bucket rather than a
		// nil-pointer panic; callers that pass a bad class see no limiting
		// rather than a crash.
		b = NewBucket(BucketConfig{Capacity: 1 << 30, RefillRate: 1 << 30, RefillInterval: time.Second})
		l.buckets[class] = b
	}
	return b
}
