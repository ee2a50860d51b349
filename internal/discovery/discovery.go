package discovery

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/ratelimit"
	"github.com/sells-group/intel-engine/internal/resilience"
)

// interQueryPause enforces ordering between consecutive query calls
// without bursting the provider (spec.md §4.F step 2).
const interQueryPause = 500 * time.Millisecond

// Result is the output of a Run: the ranked candidates plus the queries
// actually issued, for diagnostics and ExtractionMetadata.
type Result struct {
	Candidates []model.CandidateURL
	Queries    []string
}

// Stage wraps a SearchProvider with the rate limiter, circuit breaker,
// and retry collaborators the discovery stage runs under (spec.md §4.F
// step 2).
type Stage struct {
	provider SearchProvider
	limiters *ratelimit.Limiters
	breakers *resilience.ServiceBreakers
	retry    resilience.RetryConfig
	logger   *zap.Logger
}

// NewStage constructs a discovery Stage. retry.OnRetry defaults to
// resilience.RetryLogger so every retried query is logged with its
// attempt number, unless the caller already set one.
func NewStage(provider SearchProvider, limiters *ratelimit.Limiters, breakers *resilience.ServiceBreakers, retry resilience.RetryConfig, logger *zap.Logger) *Stage {
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("search", "query")
	}
	return &Stage{provider: provider, limiters: limiters, breakers: breakers, retry: retry, logger: logger}
}

// Run generates the query set for req, issues each query under the
// resilience wrapper with an inter-query pause, and returns the ranked
// candidate list. A query that exhausts retries is logged and skipped;
// discovery only fails outright if every query fails.
func (s *Stage) Run(ctx context.Context, req model.Request) (Result, error) {
	queries := BuildQueries(req)
	responses := make(map[string]SearchResponse, len(queries))

	for i, query := range queries {
		if err := s.limiters.WaitFor(ctx, ratelimit.ClassSearch, 1, 10*time.Second); err != nil {
			s.logger.Warn("discovery: rate limit wait failed", zap.String("query", query), zap.Error(err))
			continue
		}

		breaker := s.breakers.Get("search")

		resp, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) (SearchResponse, error) {
			return resilience.ExecuteVal(ctx, breaker, func(ctx context.Context) (SearchResponse, error) {
				return s.provider.Search(ctx, query, req.Country, req.Language, 0)
			})
		})
		if err != nil {
			s.logger.Warn("discovery: query failed", zap.String("query", query), zap.Error(err))
			continue
		}
		responses[query] = resp

		if i < len(queries)-1 {
			select {
			case <-ctx.Done():
				return Result{Queries: queries}, ctx.Err()
			case <-time.After(interQueryPause):
			}
		}
	}

	candidates := RankCandidates(responses, req)
	return Result{Candidates: candidates, Queries: queries}, nil
}
