package batch

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/intel-engine/internal/model"
)

// companyOutcome is the latest-known outcome for one company within a
// batch, refreshed on every poll (spec.md §4.K step 3: "accumulates
// results in an insertion-ordered map keyed by company name").
type companyOutcome struct {
	taskID          string
	state           model.TaskState
	processingTimeS float64
	record          *model.CompanyRecord
	errText         string
	dlqEnqueued     bool
}

func (o companyOutcome) settled() bool {
	return o.state == model.TaskCompleted || o.state == model.TaskFailed
}

// batchState is the orchestrator's mutable record for one batch: the
// deduplicated requests it covers, the latest outcome per company, and
// the observers watching its progress.
type batchState struct {
	mu sync.Mutex

	batch        model.Batch
	requests     []model.Request
	results      map[string]companyOutcome
	observers    []func(model.BatchProgress)
	exportFormat model.ExportFormat
	exportPath   string

	cancel context.CancelFunc
	done   chan struct{}
}

func (st *batchState) progress() model.BatchProgress {
	st.mu.Lock()
	defer st.mu.Unlock()

	total := len(st.requests)
	var completed, failed int
	for _, o := range st.results {
		switch o.state {
		case model.TaskCompleted:
			completed++
		case model.TaskFailed:
			failed++
		}
	}
	return model.BatchProgress{
		BatchID:   st.batch.ID,
		Total:     total,
		Completed: completed,
		Failed:    failed,
		Pending:   total - completed - failed,
		SampledAt: time.Now().UTC(),
	}
}

func (st *batchState) allSettled() bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if len(st.results) < len(st.requests) {
		return false
	}
	for _, o := range st.results {
		if !o.settled() {
			return false
		}
	}
	return true
}

func (st *batchState) notifyObservers(p model.BatchProgress) {
	st.mu.Lock()
	observers := append([]func(model.BatchProgress){}, st.observers...)
	st.mu.Unlock()
	for _, fn := range observers {
		fn(p)
	}
}
