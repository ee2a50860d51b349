package discovery

import (
	"context"

	"go.uber.org/zap"
)

// ChainProvider tries SearchProviders in priority order, returning the
// first response that comes back without an error, even an empty one.
// Grounded on the teacher's
// scrape.Chain fallback idiom: primary collaborator first, fall through
// to the next on error.
type ChainProvider struct {
	providers []SearchProvider
	logger    *zap.Logger
}

// NewChainProvider builds a ChainProvider trying providers in order.
func NewChainProvider(logger *zap.Logger, providers ...SearchProvider) *ChainProvider {
	return &ChainProvider{providers: providers, logger: logger}
}

func (c *ChainProvider) Search(ctx context.Context, query, country, language string, page int) (SearchResponse, error) {
	var lastErr error
	for i, p := range c.providers {
		resp, err := p.Search(ctx, query, country, language, page)
		if err == nil {
			return resp, nil
		}
		c.logger.Debug("discovery: provider failed, trying next",
			zap.Int("provider_index", i),
			zap.Error(err),
		)
		lastErr = err
	}
	return SearchResponse{}, lastErr
}
