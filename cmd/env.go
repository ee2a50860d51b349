package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/aggregate"
	"github.com/sells-group/intel-engine/internal/batch"
	"github.com/sells-group/intel-engine/internal/cache"
	"github.com/sells-group/intel-engine/internal/clock"
	"github.com/sells-group/intel-engine/internal/crawl"
	"github.com/sells-group/intel-engine/internal/discovery"
	"github.com/sells-group/intel-engine/internal/export"
	"github.com/sells-group/intel-engine/internal/governor"
	"github.com/sells-group/intel-engine/internal/pipeline"
	"github.com/sells-group/intel-engine/internal/ratelimit"
	"github.com/sells-group/intel-engine/internal/resilience"
	"github.com/sells-group/intel-engine/internal/runtime"
	"github.com/sells-group/intel-engine/internal/store"
	"github.com/sells-group/intel-engine/pkg/anthropic"
	"github.com/sells-group/intel-engine/pkg/firecrawl"
	"github.com/sells-group/intel-engine/pkg/google"
	"github.com/sells-group/intel-engine/pkg/jina"
	"github.com/sells-group/intel-engine/pkg/notion"
	"github.com/sells-group/intel-engine/pkg/perplexity"
)

// env holds every initialized collaborator, stage, and orchestrator the
// run/batch/stats commands need. Grounded on the teacher's pipelineEnv
// (cmd/pipeline_init.go): one struct assembled in one place, with a
// single Close tearing everything back down.
type env struct {
	Store     store.Store
	Runtime   *runtime.Runtime
	Batch     *batch.Orchestrator
	Governor  *governor.Governor
	Breakers  *resilience.ServiceBreakers
	Notion    notion.Client
	NotionDB  string
	Firecrawl firecrawl.Client
	cacheDone func() error
}

// Close releases every resource env owns. Callers should defer it
// immediately after initEnv succeeds.
func (e *env) Close() {
	if e.cacheDone != nil {
		_ = e.cacheDone()
	}
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv wires every collaborator client, the three pipeline stages,
// the concurrent runtime, the batch orchestrator, and the resource
// governor from cfg. Callers should defer env.Close().
func initEnv(ctx context.Context) (*env, error) {
	logger := zap.L()

	st, err := store.NewSQLite(cfg.Store.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	limiters := ratelimit.New(ratelimit.Config{
		ratelimit.ClassSearch: {
			Capacity:       int64(cfg.RateLimit.Search.Capacity),
			RefillRate:     int64(cfg.RateLimit.Search.RefillRate),
			RefillInterval: time.Duration(cfg.RateLimit.Search.RefillInterval) * time.Second,
		},
		ratelimit.ClassCrawl: {
			Capacity:       int64(cfg.RateLimit.Crawl.Capacity),
			RefillRate:     int64(cfg.RateLimit.Crawl.RefillRate),
			RefillInterval: time.Duration(cfg.RateLimit.Crawl.RefillInterval) * time.Second,
		},
		ratelimit.ClassExtraction: {
			Capacity:       int64(cfg.RateLimit.Extraction.Capacity),
			RefillRate:     int64(cfg.RateLimit.Extraction.RefillRate),
			RefillInterval: time.Duration(cfg.RateLimit.Extraction.RefillInterval) * time.Second,
		},
	})

	breakerCfg := resilience.FromCircuitConfig(cfg.Breaker.FailureThreshold, cfg.Breaker.RecoveryTimeoutS)
	breakerCfg.HalfOpenMaxProbes = cfg.Breaker.SuccessThreshold
	breakers := resilience.NewServiceBreakers(breakerCfg)

	jitter := 0.0
	if cfg.Retry.Jitter {
		jitter = 0.25
	}
	retryCfg := resilience.FromRetryConfig(cfg.Retry.MaxAttempts, cfg.Retry.BaseDelayMS, cfg.Retry.MaxDelayMS, cfg.Retry.Multiplier, jitter)
	logger.Info("resilience: retry budget configured",
		zap.Int("max_attempts", retryCfg.MaxAttempts),
		zap.Duration("worst_case_delay", retryCfg.WorstCaseDelay()))

	googleClient := google.NewClient(cfg.Google.APIKey, cfg.Google.CX)
	perplexityClient := perplexity.NewClient(cfg.Perplexity.Key,
		perplexity.WithBaseURL(cfg.Perplexity.BaseURL), perplexity.WithModel(cfg.Perplexity.Model))
	jinaOpts := []jina.Option{jina.WithBaseURL(cfg.Jina.BaseURL)}
	if cfg.Jina.SearchBaseURL != "" {
		jinaOpts = append(jinaOpts, jina.WithSearchBaseURL(cfg.Jina.SearchBaseURL))
	}
	jinaClient := jina.NewClient(cfg.Jina.Key, jinaOpts...)
	firecrawlClient := firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL))

	searchChain := discovery.NewChainProvider(logger,
		discovery.NewGoogleProvider(googleClient),
		discovery.NewJinaProvider(jinaClient),
		discovery.NewPerplexityProvider(perplexityClient),
	)
	discoveryStage := discovery.NewStage(searchChain, limiters, breakers, retryCfg, logger)

	fetchChain := crawl.NewChainFetcher(logger,
		crawl.NewJinaFetcher(jinaClient),
		crawl.NewFirecrawlFetcher(firecrawlClient),
	)
	var robots crawl.RobotsChecker = crawl.AllowAllRobots{}
	if cfg.Politeness.EnableRobots {
		robots = crawl.NewHTTPRobotsChecker(nil)
	}
	crawlStage := crawl.NewStage(fetchChain, robots, limiters, breakers, retryCfg, logger)

	var parser aggregate.CompanyParser = aggregate.NewHeuristicParser()
	if cfg.Anthropic.Key != "" {
		anthropicClient := anthropic.NewClient(cfg.Anthropic.Key)
		parser = aggregate.NewLLMParser(anthropicClient, cfg.Anthropic.Model)
		logger.Info("llm-backed company parser enabled", zap.String("model", cfg.Anthropic.Model))
	}
	aggregateStage := aggregate.NewStage(parser)

	memCache := cache.NewMemoryCache(5 * time.Minute)
	var resultCache cache.Cache = memCache
	cacheDone := func() error { memCache.Close(); return nil }
	if cfg.Redis.Enable {
		redisCache := cache.NewRedisCache(cfg.Redis.Addr, logger)
		resultCache = cache.NewTieredCache(memCache, redisCache)
		cacheDone = func() error {
			memCache.Close()
			return redisCache.Close()
		}
	}

	pipe := pipeline.New(discoveryStage, crawlStage, aggregateStage, resultCache, clock.System{}, logger)
	rt := runtime.New(cfg.Runtime.MaxConcurrentExtractions, limiters, pipe, logger)
	orch := batch.New(cfg.Runtime.MaxConcurrentBatches, rt, st, 5, logger)

	gov := governor.New(
		governor.Caps{
			MemCapMB:      float64(cfg.Governor.MemCapMB),
			CPUCapPercent: float64(cfg.Governor.CPUCapPercent),
			ConnCap:       cfg.Governor.ConnCap,
		},
		time.Duration(cfg.Governor.SampleIntervalS)*time.Second,
		newProbe(rt, st),
		newMitigator(memCache, st),
		logger,
	)

	var notionClient notion.Client
	if cfg.Notion.Token != "" {
		notionClient = notion.NewClient(cfg.Notion.Token)
		orch.SetNotionSink(export.NotionSink{Client: notionClient, DBID: cfg.Notion.DB})
	}

	return &env{
		Store:     st,
		Runtime:   rt,
		Batch:     orch,
		Governor:  gov,
		Breakers:  breakers,
		Notion:    notionClient,
		NotionDB:  cfg.Notion.DB,
		Firecrawl: firecrawlClient,
		cacheDone: cacheDone,
	}, nil
}
