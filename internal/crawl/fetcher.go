// Package crawl implements the bounded-concurrency page-fetch stage
// (spec.md §4.G): a semaphore-limited fan-out over PageFetcher, a
// per-host politeness delay, temporary host blocking on 429/503/401/403,
// and a robots-aware gate.
package crawl

import (
	"context"
	"time"
)

// FetchResult is the raw output of a single PageFetcher call.
type FetchResult struct {
	Success     bool
	Title       string
	CleanedText string
	Markdown    string
	StatusCode  int
	ElapsedMS   int64
	Error       string
	Tokens      int // reader tokens billed for this fetch, 0 if the collaborator doesn't report usage
}

// PageFetcher abstracts the external page-fetch collaborator (spec.md §6.2).
type PageFetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (FetchResult, error)
}

// RobotsChecker abstracts the politeness collaborator that decides
// whether a URL may be fetched under the site's robots policy.
type RobotsChecker interface {
	Allowed(ctx context.Context, url string) bool
}

// CrawlDelayer is an optional RobotsChecker capability: a checker that
// can report a site's declared Crawl-delay directive. Stage type-asserts
// for it so a plain AllowAllRobots keeps working with no delay override.
type CrawlDelayer interface {
	CrawlDelay(ctx context.Context, url string) time.Duration
}

// AllowAllRobots is a RobotsChecker that never rejects a URL, used when
// enable_robots is false in configuration.
type AllowAllRobots struct{}

func (AllowAllRobots) Allowed(context.Context, string) bool { return true }
