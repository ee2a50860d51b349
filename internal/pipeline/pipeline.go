// Package pipeline implements the single-request extraction pipeline
// (spec.md §4.I): validate, look up the cache, run discovery and crawl
// under their resilience wrappers, aggregate, cache the result, and —
// on a recoverable failure — apply one recovery pass and retry once.
// Grounded on the teacher's Pipeline.Run phase-tracking idiom
// (executePhase/trackPhase/trackPhaseWithRetry), trimmed to the phases
// this spec names and generalized from the teacher's company-enrichment
// domain to company-intelligence extraction.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/aggregate"
	"github.com/sells-group/intel-engine/internal/apperr"
	"github.com/sells-group/intel-engine/internal/cache"
	"github.com/sells-group/intel-engine/internal/clock"
	"github.com/sells-group/intel-engine/internal/crawl"
	"github.com/sells-group/intel-engine/internal/discovery"
	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/recovery"
	"github.com/sells-group/intel-engine/internal/resilience"
)

// ExtractionMetadata carries the diagnostic counters a Response always
// reports alongside success/failure (spec.md §7 "User-visible behavior").
type ExtractionMetadata struct {
	PagesAttempted   int
	PagesCrawled     int
	SourcesFound     int
	QueriesUsed      []string
	Mode             model.ExtractionMode
	CostUSD          float64
	ReaderTokensUsed int
}

// Response is the result of a single extract call.
type Response struct {
	Success        bool
	Record         *model.CompanyRecord
	Metadata       ExtractionMetadata
	Errors         []*apperr.Error
	Warnings       []string
	ProcessingTime time.Duration
}

// Pipeline wires the discovery, crawl, and aggregation stages behind the
// cache and recovery layers (spec.md §4.I).
type Pipeline struct {
	discovery *discovery.Stage
	crawl     *crawl.Stage
	aggregate *aggregate.Stage
	cache     cache.Cache
	clock     clock.Clock
	logger    *zap.Logger
}

// New constructs a Pipeline from its already-wired stages.
func New(discoveryStage *discovery.Stage, crawlStage *crawl.Stage, aggregateStage *aggregate.Stage, c cache.Cache, clk clock.Clock, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		discovery: discoveryStage,
		crawl:     crawlStage,
		aggregate: aggregateStage,
		cache:     c,
		clock:     clk,
		logger:    logger,
	}
}

// Extract validates params, constructs a Request, and runs the pipeline.
// Validation failures abort before any external call and are surfaced
// directly rather than wrapped in a Response (spec.md §7 "Propagation").
func (p *Pipeline) Extract(ctx context.Context, params model.RequestParams) (*Response, error) {
	req, err := model.NewRequest(params)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.KindValidation, "invalid extraction request")
	}
	return p.ExtractRequest(ctx, req), nil
}

// ExtractRequest runs the pipeline for an already-validated Request.
func (p *Pipeline) ExtractRequest(ctx context.Context, req model.Request) *Response {
	start := p.clock.Now()
	log := p.logger.With(zap.String("company", req.CompanyName), zap.String("request_id", req.RequestID))

	if resp := p.lookupCache(ctx, req, log); resp != nil {
		resp.ProcessingTime = p.clock.Since(start)
		return resp
	}

	resp := p.runAttempt(ctx, req, log)

	if !resp.Success && recoveryApplies(resp.Errors) {
		class := dominantClass(resp.Errors)
		if modified, ok := recovery.Apply(req, class); ok {
			log.Info("pipeline: recovery pass", zap.String("class", string(class)))
			second := p.runAttempt(ctx, modified, log)
			second.Errors = append(resp.Errors, second.Errors...)
			second.Warnings = append(resp.Warnings, second.Warnings...)
			resp = second
		}
	}

	if resp.Success {
		p.store(ctx, req, resp.Record, log)
	}

	resp.ProcessingTime = p.clock.Since(start)
	return resp
}

// lookupCache returns a cache-hit Response, or nil on a miss (spec.md
// §4.I step 2). A cache-read failure is downgraded to a miss per §7
// "CacheError never fails a request".
func (p *Pipeline) lookupCache(ctx context.Context, req model.Request, log *zap.Logger) *Response {
	key := cache.CompanyKey(req.CompanyName, req.Domain, req.Mode)
	raw, ok := p.cache.Get(ctx, key)
	if !ok {
		return nil
	}
	var record model.CompanyRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		log.Warn("pipeline: cache hit unmarshal failed, treating as miss", zap.Error(err))
		return nil
	}
	return &Response{
		Success: true,
		Record:  &record,
		Metadata: ExtractionMetadata{
			Mode: req.Mode,
		},
		Warnings: []string{"Result served from cache"},
	}
}

// runAttempt runs discovery, crawl, and aggregation once for req (spec.md
// §4.I steps 3-5).
func (p *Pipeline) runAttempt(ctx context.Context, req model.Request, log *zap.Logger) *Response {
	var errs []*apperr.Error
	var warnings []string

	discoveryResult, err := p.discovery.Run(ctx, req)
	if err != nil {
		// Context cancellation; stop immediately rather than fall through
		// to a crawl that will only fail the same way.
		errs = append(errs, apperr.Wrap(err, apperr.KindUnexpected, "discovery aborted"))
		return &Response{
			Success:  false,
			Errors:   errs,
			Warnings: warnings,
			Metadata: ExtractionMetadata{Mode: req.Mode, QueriesUsed: discoveryResult.Queries},
		}
	}
	if len(discoveryResult.Candidates) == 0 {
		errs = append(errs, apperr.New(apperr.KindSearchError, "no candidates discovered").WithQuery(req.CompanyName))
	}

	pages, counters := p.crawl.Run(ctx, discoveryResult.Candidates, req.Timeout())
	var readerTokens int
	for _, page := range pages {
		readerTokens += page.TokensUsed
		if page.Succeeded {
			continue
		}
		errs = append(errs, classifyPageFailure(page).WithURL(page.URL))
	}

	record, ok, costUSD := p.aggregate.Run(pages, req.CompanyName)
	metadata := ExtractionMetadata{
		PagesAttempted:   counters.Attempted,
		PagesCrawled:     counters.Succeeded,
		QueriesUsed:      discoveryResult.Queries,
		Mode:             req.Mode,
		CostUSD:          costUSD,
		ReaderTokensUsed: readerTokens,
	}
	if !ok {
		errs = append(errs, apperr.New(apperr.KindCompanyNotFound, "no source produced a usable company record"))
		log.Info("pipeline: company not found", zap.Int("pages_attempted", counters.Attempted), zap.Int("pages_crawled", counters.Succeeded))
		return &Response{Success: false, Metadata: metadata, Errors: errs, Warnings: warnings}
	}

	if err := record.Validate(); err != nil {
		errs = append(errs, apperr.Wrap(err, apperr.KindAggregationError, "aggregated record failed validation"))
		return &Response{Success: false, Metadata: metadata, Errors: errs, Warnings: warnings}
	}

	metadata.SourcesFound = record.SourceCount
	return &Response{Success: true, Record: record, Metadata: metadata, Errors: errs, Warnings: warnings}
}

// store caches a successfully aggregated record. A cache write failure is
// logged, never surfaced as a request failure (spec.md §7).
func (p *Pipeline) store(ctx context.Context, req model.Request, record *model.CompanyRecord, log *zap.Logger) {
	raw, err := json.Marshal(record)
	if err != nil {
		log.Warn("pipeline: cache encode failed", zap.Error(err))
		return
	}
	key := cache.CompanyKey(req.CompanyName, req.Domain, req.Mode)
	if err := p.cache.Set(ctx, key, model.CacheTagCompany, raw); err != nil {
		log.Warn("pipeline: cache write failed", zap.Error(err))
	}
}

// classifyPageFailure maps a failed FetchedPage to the taxonomy kind a
// Response's error list reports (spec.md §7).
func classifyPageFailure(page model.FetchedPage) *apperr.Error {
	class := resilience.Classify(errors.New(page.Error), page.StatusCode)
	switch class {
	case resilience.ClassTimeout:
		return apperr.New(apperr.KindTimeout, page.Error)
	case resilience.ClassRateLimit:
		return apperr.New(apperr.KindRateLimited, page.Error)
	case resilience.ClassDataQuality:
		return apperr.New(apperr.KindInsufficientContent, page.Error)
	default:
		return apperr.New(apperr.KindCrawlError, page.Error)
	}
}

// recoveryApplies reports whether any collected error belongs to a class
// recovery.Apply knows how to act on (spec.md §4.I step 7).
func recoveryApplies(errs []*apperr.Error) bool {
	for _, e := range errs {
		switch e.Kind {
		case apperr.KindTimeout, apperr.KindRateLimited, apperr.KindInsufficientContent, apperr.KindCompanyNotFound:
			return true
		}
	}
	return false
}

// dominantClass maps the most frequent recoverable error kind to the
// resilience.FailureClass recovery.Apply expects.
func dominantClass(errs []*apperr.Error) resilience.FailureClass {
	counts := map[resilience.FailureClass]int{}
	for _, e := range errs {
		switch e.Kind {
		case apperr.KindTimeout:
			counts[resilience.ClassTimeout]++
		case apperr.KindRateLimited:
			counts[resilience.ClassRateLimit]++
		case apperr.KindInsufficientContent:
			counts[resilience.ClassDataQuality]++
		case apperr.KindCompanyNotFound:
			counts[resilience.ClassNotFound]++
		}
	}
	best := resilience.ClassNotFound
	bestCount := -1
	for class, count := range counts {
		if count > bestCount {
			best, bestCount = class, count
		}
	}
	return best
}
