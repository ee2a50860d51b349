// Package batch implements the batch orchestrator (spec.md §4.K): a
// scheduler over a bounded set of active batches, each running its
// companies through internal/runtime and, once every task settles,
// writing the result through internal/export.
package batch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/export"
	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/runtime"
	"github.com/sells-group/intel-engine/internal/store"
)

// pollInterval is how often a running batch recomputes its progress
// snapshot (spec.md §4.K step 2: "polls task statuses every 2 s").
const pollInterval = 2 * time.Second

// Request is the caller-facing input to Submit (spec.md §4.K: "Accepts
// {company_names (1..100, deduped case-insensitively), mode,
// priority_bucket, per-company overrides, export_format}").
type Request struct {
	CompanyNames  []string
	Mode          model.ExtractionMode
	Priority      model.PriorityBucket
	Overrides     map[string]model.RequestParams
	ExportFormat  model.ExportFormat
	ExportPath    string
}

// Orchestrator schedules Requests onto a bounded number of concurrently
// active batches; excess submissions queue (spec.md §5: "at most
// max_concurrent_batches are active simultaneously; excess batches
// queue").
type Orchestrator struct {
	mu       sync.Mutex
	batches  map[string]*batchState
	queue    []string
	notEmpty *sync.Cond

	sem   chan struct{}
	rt    *runtime.Runtime
	store store.Store

	notionSink export.NotionSink
	hasNotion  bool

	dlqMaxRetries int
	logger        *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	stopped  bool
	wg       sync.WaitGroup
}

// New constructs an Orchestrator that activates at most maxActive batches
// concurrently.
func New(maxActive int, rt *runtime.Runtime, st store.Store, dlqMaxRetries int, logger *zap.Logger) *Orchestrator {
	if maxActive < 1 {
		maxActive = 1
	}
	o := &Orchestrator{
		batches:       make(map[string]*batchState),
		sem:           make(chan struct{}, maxActive),
		rt:            rt,
		store:         st,
		dlqMaxRetries: dlqMaxRetries,
		logger:        logger,
		stop:          make(chan struct{}),
	}
	o.notEmpty = sync.NewCond(&o.mu)
	return o
}

// SetNotionSink enables mirroring every finished batch onto sink's
// configured Notion database, alongside whatever filesystem export the
// request asked for. Disabled by default (spec.md §6: "pkg/notion page
// sink (optional)").
func (o *Orchestrator) SetNotionSink(sink export.NotionSink) {
	o.notionSink = sink
	o.hasNotion = true
}

// Start runs the dispatch loop that activates queued batches as slots
// free up. It returns once Shutdown is called and every active batch has
// drained (spec.md §5: "the batch orchestrator drains its active batches
// before stopping").
func (o *Orchestrator) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
		case <-o.stop:
		}
		o.mu.Lock()
		o.stopped = true
		o.notEmpty.Broadcast()
		o.mu.Unlock()
	}()

	for {
		id := o.dequeue()
		if id == "" {
			break
		}
		select {
		case o.sem <- struct{}{}:
		case <-ctx.Done():
			return
		}
		o.wg.Add(1)
		go func(batchID string) {
			defer o.wg.Done()
			defer func() { <-o.sem }()
			o.runBatch(ctx, batchID)
		}(id)
	}
	o.wg.Wait()
}

// Shutdown stops the dispatch loop from activating further queued
// batches. Batches already active continue running.
func (o *Orchestrator) Shutdown() {
	o.stopOnce.Do(func() { close(o.stop) })
}

func (o *Orchestrator) dequeue() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	for len(o.queue) == 0 {
		if o.stopped {
			return ""
		}
		o.notEmpty.Wait()
	}
	id := o.queue[0]
	o.queue = o.queue[1:]
	return id
}

// Submit validates and deduplicates req, persists the batch in the
// Queued state, and enqueues it for activation. It returns the batch id.
func (o *Orchestrator) Submit(ctx context.Context, req Request) (string, error) {
	requests, err := buildRequests(req)
	if err != nil {
		return "", err
	}
	requests = model.DedupeRequests(requests)

	id := uuid.NewString()
	b := model.Batch{
		ID:          id,
		Priority:    req.Priority,
		State:       model.BatchQueued,
		SubmittedAt: time.Now().UTC(),
	}

	st := &batchState{
		batch:        b,
		requests:     requests,
		results:      make(map[string]companyOutcome, len(requests)),
		exportFormat: req.ExportFormat,
		exportPath:   req.ExportPath,
		done:         make(chan struct{}),
	}

	o.mu.Lock()
	o.batches[id] = st
	o.queue = append(o.queue, id)
	o.mu.Unlock()
	o.notEmpty.Signal()

	if o.store != nil {
		if err := o.store.SaveBatch(ctx, b); err != nil {
			o.logger.Warn("batch: save initial state failed", zap.String("batch_id", id), zap.Error(err))
		}
	}
	return id, nil
}

func buildRequests(req Request) ([]model.Request, error) {
	out := make([]model.Request, 0, len(req.CompanyNames))
	for _, name := range req.CompanyNames {
		params := model.RequestParams{CompanyName: name, Mode: req.Mode}
		if o, ok := req.Overrides[name]; ok {
			o.CompanyName = name
			if o.Mode == "" {
				o.Mode = req.Mode
			}
			params = o
		}
		r, err := model.NewRequest(params)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Status returns a copy of the batch's current lifecycle state.
func (o *Orchestrator) Status(batchID string) (model.Batch, bool) {
	o.mu.Lock()
	st, ok := o.batches[batchID]
	o.mu.Unlock()
	if !ok {
		return model.Batch{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.batch, true
}

// Progress computes a BatchProgress snapshot over the batch's
// latest-known task outcomes.
func (o *Orchestrator) Progress(batchID string) (model.BatchProgress, bool) {
	o.mu.Lock()
	st, ok := o.batches[batchID]
	o.mu.Unlock()
	if !ok {
		return model.BatchProgress{}, false
	}
	return st.progress(), true
}

// RegisterObserver attaches fn to receive every BatchProgress snapshot
// computed for batchID. Returns false if batchID is unknown.
func (o *Orchestrator) RegisterObserver(batchID string, fn func(model.BatchProgress)) bool {
	o.mu.Lock()
	st, ok := o.batches[batchID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	st.mu.Lock()
	st.observers = append(st.observers, fn)
	st.mu.Unlock()
	return true
}

// Cancel stops a batch's remaining tasks from being waited on further;
// tasks already submitted to the runtime still run to completion there,
// but the batch stops polling and finalizes with whatever settled so far.
func (o *Orchestrator) Cancel(batchID string) bool {
	o.mu.Lock()
	st, ok := o.batches[batchID]
	o.mu.Unlock()
	if !ok {
		return false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.cancel != nil {
		st.cancel()
		return true
	}
	return false
}

// Wait blocks until batchID reaches a terminal state or ctx is
// cancelled.
func (o *Orchestrator) Wait(ctx context.Context, batchID string) {
	o.mu.Lock()
	st, ok := o.batches[batchID]
	o.mu.Unlock()
	if !ok {
		return
	}
	select {
	case <-st.done:
	case <-ctx.Done():
	}
}
