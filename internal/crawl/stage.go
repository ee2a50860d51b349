package crawl

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/ratelimit"
	"github.com/sells-group/intel-engine/internal/resilience"
)

// maxConcurrentFetches bounds in-flight fetches per request (spec.md §4.G:
// "a semaphore of size 3 (internal default)").
const maxConcurrentFetches = 3

// Counters tallies attempted vs succeeded fetches for a single crawl run.
type Counters struct {
	Attempted int
	Succeeded int
}

// Stage wraps a PageFetcher with the concurrency bound, rate limiter,
// circuit breaker, politeness layer, and host-blocking the crawl stage
// requires (spec.md §4.G). Grounded on the teacher's
// scrape.Chain.ScrapeAll, which uses the same errgroup.SetLimit fan-out
// pattern over a fixed concurrency bound.
type Stage struct {
	fetcher  PageFetcher
	robots   RobotsChecker
	limiters *ratelimit.Limiters
	breakers *resilience.ServiceBreakers
	retry    resilience.RetryConfig
	blocks   *HostBlocks
	logger   *zap.Logger
}

// NewStage constructs a crawl Stage. retry.OnRetry defaults to
// resilience.RetryLogger so every retried fetch is logged with its
// attempt number, unless the caller already set one.
func NewStage(fetcher PageFetcher, robots RobotsChecker, limiters *ratelimit.Limiters, breakers *resilience.ServiceBreakers, retry resilience.RetryConfig, logger *zap.Logger) *Stage {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("crawl", "fetch")
	}
	return &Stage{
		fetcher:  fetcher,
		robots:   robots,
		limiters: limiters,
		breakers: breakers,
		retry:    retry,
		blocks:   NewHostBlocks(),
		logger:   logger,
	}
}

// Run fetches every candidate URL under the concurrency bound, returning
// the fetched pages plus attempted/succeeded counters. Failures on
// individual URLs never fail the whole run.
func (s *Stage) Run(ctx context.Context, candidates []model.CandidateURL, timeout time.Duration) ([]model.FetchedPage, Counters) {
	var (
		mu       sync.Mutex
		pages    []model.FetchedPage
		counters Counters
	)

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentFetches)

	for _, candidate := range candidates {
		candidate := candidate
		g.Go(func() error {
			page := s.fetchOne(gCtx, candidate.URL, timeout)
			mu.Lock()
			counters.Attempted++
			if page.Succeeded {
				counters.Succeeded++
			}
			pages = append(pages, page)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return pages, counters
}

func (s *Stage) fetchOne(ctx context.Context, targetURL string, timeout time.Duration) model.FetchedPage {
	host := HostOf(targetURL)
	now := time.Now()

	if s.blocks.Blocked(host) {
		return model.FetchedPage{URL: targetURL, FetchedAt: now, Succeeded: false, Error: "host temporarily blocked"}
	}

	if !s.robots.Allowed(ctx, targetURL) {
		s.logger.Debug("crawl: url rejected by robots policy", zap.String("url", targetURL))
		return model.FetchedPage{URL: targetURL, FetchedAt: now, Succeeded: false, Error: "disallowed by robots policy"}
	}

	if err := s.limiters.WaitFor(ctx, ratelimit.ClassCrawl, 1, timeout); err != nil {
		return model.FetchedPage{URL: targetURL, FetchedAt: now, Succeeded: false, Error: err.Error()}
	}

	var robotsDelay time.Duration
	if delayer, ok := s.robots.(CrawlDelayer); ok {
		robotsDelay = delayer.CrawlDelay(ctx, targetURL)
	}
	s.blocks.WaitPoliteDelayAtLeast(host, robotsDelay)

	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	breaker := s.breakers.Get("crawl")
	result, err := resilience.DoVal(fetchCtx, s.retry, func(ctx context.Context) (FetchResult, error) {
		return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (FetchResult, error) {
			return s.fetcher.Fetch(ctx, targetURL, timeout)
		})
	})
	if err != nil {
		s.logger.Debug("crawl: fetch failed", zap.String("url", targetURL), zap.Error(err))
		return model.FetchedPage{URL: targetURL, FetchedAt: now, Succeeded: false, Error: err.Error()}
	}

	s.blocks.RecordStatus(host, result.StatusCode)

	if result.Tokens > 0 {
		s.logger.Debug("crawl: reader tokens billed", zap.String("url", targetURL), zap.Int("tokens", result.Tokens))
	}

	succeeded := model.ClassifySuccess(result.StatusCode, result.CleanedText)
	return model.FetchedPage{
		URL:         targetURL,
		FinalURL:    targetURL,
		StatusCode:  result.StatusCode,
		Content:     result.CleanedText,
		ContentType: "text/plain",
		FetchedAt:   now,
		Succeeded:   succeeded,
		TokensUsed:  result.Tokens,
	}
}
