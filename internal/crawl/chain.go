package crawl

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// ChainFetcher tries PageFetchers in priority order, returning the
// first successful result. Grounded on the teacher's scrape.Chain
// fallback idiom.
type ChainFetcher struct {
	fetchers []PageFetcher
	logger   *zap.Logger
}

// NewChainFetcher builds a ChainFetcher trying fetchers in order.
func NewChainFetcher(logger *zap.Logger, fetchers ...PageFetcher) *ChainFetcher {
	return &ChainFetcher{fetchers: fetchers, logger: logger}
}

func (c *ChainFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (FetchResult, error) {
	var lastResult FetchResult
	var lastErr error
	for i, f := range c.fetchers {
		result, err := f.Fetch(ctx, url, timeout)
		if err == nil && result.Success {
			return result, nil
		}
		c.logger.Debug("crawl: fetcher failed, trying next",
			zap.Int("fetcher_index", i),
			zap.String("url", url),
			zap.Error(err),
		)
		lastResult, lastErr = result, err
	}
	return lastResult, lastErr
}
