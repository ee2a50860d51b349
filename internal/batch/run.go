package batch

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/export"
	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/resilience"
)

// dlqMaxWait bounds how long a detached dead-letter-queue write may take,
// so it can outlive a cancelled batch context without blocking shutdown
// indefinitely (grounded on the teacher's 5 s detached-context timeout in
// cmd/batch.go's processBatch).
const dlqMaxWait = 5 * time.Second

// dlqBackoff computes the next retry delay for a dead-lettered task:
// retry 0 → 1m, retry 1 → 5m, retry 2 → 25m, capped at 2h (grounded on
// the teacher's cmd/batch.go:dlqBackoff).
func dlqBackoff(retryCount int) time.Duration {
	d := time.Duration(float64(time.Minute) * math.Pow(5, float64(retryCount)))
	if d > 2*time.Hour {
		d = 2 * time.Hour
	}
	return d
}

func (o *Orchestrator) runBatch(ctx context.Context, batchID string) {
	o.mu.Lock()
	st := o.batches[batchID]
	o.mu.Unlock()
	if st == nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	st.mu.Lock()
	st.cancel = cancel
	st.batch.State = model.BatchProcessing
	st.batch.StartedAt = time.Now().UTC()
	requests := append([]model.Request{}, st.requests...)
	st.mu.Unlock()
	defer cancel()
	o.persist(runCtx, st)

	byCompany := make(map[string]model.Request, len(requests))
	taskIDs := make([]string, len(requests))
	order := make([]string, len(requests))
	for i, req := range requests {
		taskID := o.rt.Submit(req, st.batch.Priority)
		taskIDs[i] = taskID
		order[i] = req.CompanyName
		byCompany[req.CompanyName] = req
	}

	st.mu.Lock()
	st.batch.TaskIDs = taskIDs
	st.batch.ResultOrder = order
	st.mu.Unlock()
	o.persist(runCtx, st)

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		o.poll(runCtx, st, order, taskIDs, byCompany)
		if st.allSettled() {
			break
		}
		select {
		case <-runCtx.Done():
			o.poll(runCtx, st, order, taskIDs, byCompany)
			o.finish(runCtx, st, order)
			return
		case <-ticker.C:
		}
	}

	o.finish(runCtx, st, order)
}

func (o *Orchestrator) poll(ctx context.Context, st *batchState, order, taskIDs []string, byCompany map[string]model.Request) {
	for i, name := range order {
		task, ok := o.rt.Status(taskIDs[i])
		if !ok {
			continue
		}
		outcome := companyOutcome{taskID: taskIDs[i], state: task.State, record: task.Result}
		if !task.StartedAt.IsZero() && !task.FinishedAt.IsZero() {
			outcome.processingTimeS = task.FinishedAt.Sub(task.StartedAt).Seconds()
		}
		if task.Err != nil {
			outcome.errText = task.Err.Error()
		}

		st.mu.Lock()
		prev, existed := st.results[name]
		if existed && prev.dlqEnqueued {
			outcome.dlqEnqueued = true
		}
		st.results[name] = outcome
		st.mu.Unlock()

		if task.State == model.TaskFailed && task.Err != nil && !outcome.dlqEnqueued {
			o.maybeEnqueueDLQ(st, name, byCompany[name], task.Err)
		}
	}

	o.notifyProgress(st)
}

func (o *Orchestrator) maybeEnqueueDLQ(st *batchState, name string, req model.Request, taskErr error) {
	if o.store == nil {
		return
	}
	class := resilience.Classify(errors.New(taskErr.Error()), 0)
	if !class.Retryable() {
		return
	}

	entry := resilience.DLQEntry{
		ID:           st.batch.ID + ":" + name,
		Request:      req,
		Error:        taskErr.Error(),
		ErrorClass:   class,
		RetryCount:   0,
		MaxRetries:   o.dlqMaxRetries,
		NextRetryAt:  time.Now().Add(dlqBackoff(0)),
		CreatedAt:    time.Now().UTC(),
		LastFailedAt: time.Now().UTC(),
	}

	dlqCtx, dlqCancel := context.WithTimeout(context.Background(), dlqMaxWait)
	defer dlqCancel()
	if err := o.store.EnqueueDLQ(dlqCtx, entry); err != nil {
		o.logger.Warn("batch: enqueue DLQ failed", zap.String("batch_id", st.batch.ID), zap.String("company", name), zap.Error(err))
		return
	}

	st.mu.Lock()
	if outcome, ok := st.results[name]; ok {
		outcome.dlqEnqueued = true
		st.results[name] = outcome
	}
	st.mu.Unlock()
}

func (o *Orchestrator) notifyProgress(st *batchState) {
	st.notifyObservers(st.progress())
}

// finish ignores the caller-supplied context: it runs after runBatch's ctx
// may already be cancelled (batch timeout or shutdown), and its own
// persistence/export writes must still complete (grounded on the
// teacher's detached-context treatment of side effects that must survive
// request cancellation).
func (o *Orchestrator) finish(_ context.Context, st *batchState, order []string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	st.mu.Lock()
	results := make([]export.CompanyResult, 0, len(order))
	var completed, failed int
	for _, name := range order {
		outcome := st.results[name]
		success := outcome.state == model.TaskCompleted
		if success {
			completed++
		} else {
			failed++
		}
		var errs []string
		if outcome.errText != "" {
			errs = []string{outcome.errText}
		}
		results = append(results, export.CompanyResult{
			CompanyName:     name,
			Success:         success,
			ProcessingTimeS: outcome.processingTimeS,
			Record:          outcome.record,
			Errors:          errs,
		})
	}
	st.batch.State = model.Finalize(len(order), completed, failed)
	st.batch.FinishedAt = time.Now().UTC()
	exportFormat, exportPath := st.exportFormat, st.exportPath
	finalBatch := st.batch
	st.mu.Unlock()

	o.persist(ctx, st)

	if (exportPath != "" && exportFormat != "") || o.hasNotion {
		doc := export.Document{
			BatchInfo: export.BatchInfo{
				BatchID:     finalBatch.ID,
				SubmittedAt: finalBatch.SubmittedAt,
				FinishedAt:  finalBatch.FinishedAt,
				State:       finalBatch.State,
				Total:       len(order),
			},
			Summary:   export.Summarize(results),
			Companies: results,
		}

		if exportPath != "" && exportFormat != "" {
			writer, err := export.WriterFor(exportFormat)
			if err != nil {
				o.logger.Warn("batch: export format unsupported", zap.String("batch_id", finalBatch.ID), zap.Error(err))
			} else if err := writer.Write(doc, exportPath); err != nil {
				o.logger.Warn("batch: export write failed", zap.String("batch_id", finalBatch.ID), zap.Error(err))
			}
		}

		if o.hasNotion {
			if err := o.notionSink.Write(ctx, doc); err != nil {
				o.logger.Warn("batch: notion sink write failed", zap.String("batch_id", finalBatch.ID), zap.Error(err))
			}
		}
	}

	close(st.done)
}

func (o *Orchestrator) persist(ctx context.Context, st *batchState) {
	if o.store == nil {
		return
	}
	st.mu.Lock()
	b := st.batch
	st.mu.Unlock()
	if err := o.store.SaveBatch(ctx, b); err != nil {
		o.logger.Warn("batch: save state failed", zap.String("batch_id", b.ID), zap.Error(err))
	}
}
