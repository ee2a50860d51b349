// Package runtime implements the concurrent task runtime (spec.md §4.J):
// a priority task queue (container/heap — no priority-queue library
// appears anywhere in the example pack, see DESIGN.md) feeding a fixed
// worker pool that runs the single-request pipeline under the
// extraction rate limiter.
package runtime

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/apperr"
	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/pipeline"
	"github.com/sells-group/intel-engine/internal/ratelimit"
)

// extractionWait is how long a worker waits for an extraction rate-limit
// token before failing the task outright (spec.md §4.J step 1).
const extractionWait = 10 * time.Second

// pollInterval is how often wait_for re-checks task status (spec.md
// §4.J: "wait_for polls statuses every 500 ms").
const pollInterval = 500 * time.Millisecond

// Runtime schedules Requests onto a fixed worker pool, in priority
// order, and tracks each as a model.Task through its lifecycle.
type Runtime struct {
	mu       sync.Mutex
	queue    priorityQueue
	tasks    map[string]*model.Task
	notEmpty *sync.Cond
	seq      int64

	workers  int
	limiters *ratelimit.Limiters
	pipe     *pipeline.Pipeline
	logger   *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	stopped  bool
	wg       sync.WaitGroup
}

// New constructs a Runtime with the given fixed worker count.
func New(workers int, limiters *ratelimit.Limiters, pipe *pipeline.Pipeline, logger *zap.Logger) *Runtime {
	if workers < 1 {
		workers = 1
	}
	rt := &Runtime{
		tasks:    make(map[string]*model.Task),
		workers:  workers,
		limiters: limiters,
		pipe:     pipe,
		logger:   logger,
		stop:     make(chan struct{}),
	}
	rt.notEmpty = sync.NewCond(&rt.mu)
	heap.Init(&rt.queue)
	return rt
}

// Start launches the fixed worker pool. It returns once all workers have
// exited, which happens after Shutdown is called (cooperative shutdown:
// each worker finishes its current task, then exits — spec.md §5).
func (rt *Runtime) Start(ctx context.Context) {
	go func() {
		select {
		case <-ctx.Done():
		case <-rt.stop:
		}
		rt.mu.Lock()
		rt.stopped = true
		rt.notEmpty.Broadcast()
		rt.mu.Unlock()
	}()

	for i := 0; i < rt.workers; i++ {
		rt.wg.Add(1)
		go rt.workerLoop(ctx)
	}
	rt.wg.Wait()
}

// Shutdown signals all workers to stop after their current task.
func (rt *Runtime) Shutdown() {
	rt.stopOnce.Do(func() { close(rt.stop) })
}

// Submit enqueues req at the given priority and returns its task id.
func (rt *Runtime) Submit(req model.Request, priority model.PriorityBucket) string {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	id := uuid.NewString()
	task := &model.Task{
		ID:          id,
		Request:     req,
		Priority:    priority,
		State:       model.TaskQueued,
		SubmittedAt: time.Now().UTC(),
	}
	rt.tasks[id] = task
	rt.seq++
	heap.Push(&rt.queue, &queueItem{taskID: id, rank: priority.Rank(), seq: rt.seq})
	rt.notEmpty.Signal()
	return id
}

// Status returns a copy of the task's current state, or false if the id
// is unknown. Callers never receive a live mutable reference (spec.md
// §4.K: "never hands out live mutable references").
func (rt *Runtime) Status(taskID string) (model.Task, bool) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	task, ok := rt.tasks[taskID]
	if !ok {
		return model.Task{}, false
	}
	return *task, true
}

// ActiveCount returns how many tasks are currently queued or processing.
// The governor's Probe uses this as its ActiveRequests figure.
func (rt *Runtime) ActiveCount() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	n := 0
	for _, task := range rt.tasks {
		if task.State == model.TaskQueued || task.State == model.TaskProcessing {
			n++
		}
	}
	return n
}

// WaitFor polls every 500 ms until every task id in ids resolves to a
// terminal state or timeout elapses, then returns the final snapshot map
// (spec.md §4.J).
func (rt *Runtime) WaitFor(ctx context.Context, ids []string, timeout time.Duration) map[string]model.Task {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	snapshot := func() map[string]model.Task {
		out := make(map[string]model.Task, len(ids))
		rt.mu.Lock()
		for _, id := range ids {
			if task, ok := rt.tasks[id]; ok {
				out[id] = *task
			}
		}
		rt.mu.Unlock()
		return out
	}

	for {
		out := snapshot()
		if allDone(out, ids) {
			return out
		}
		if !time.Now().Before(deadline) {
			return out
		}
		select {
		case <-ctx.Done():
			return out
		case <-ticker.C:
		}
	}
}

func allDone(tasks map[string]model.Task, ids []string) bool {
	for _, id := range ids {
		task, ok := tasks[id]
		if !ok || !task.Done() {
			return false
		}
	}
	return true
}

func (rt *Runtime) workerLoop(ctx context.Context) {
	defer rt.wg.Done()
	for {
		item := rt.dequeue()
		if item == nil {
			return
		}
		rt.runTask(ctx, item.taskID)
	}
}

// dequeue blocks until a task is available or the runtime is stopping.
func (rt *Runtime) dequeue() *queueItem {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	for {
		// Checked before the queue so a stopping worker exits after its
		// current task instead of draining what is still queued.
		if rt.stopped {
			return nil
		}
		if rt.queue.Len() > 0 {
			break
		}
		rt.notEmpty.Wait()
	}
	item, _ := heap.Pop(&rt.queue).(*queueItem)
	return item
}

func (rt *Runtime) runTask(ctx context.Context, taskID string) {
	rt.transition(taskID, func(t *model.Task) {
		t.State = model.TaskProcessing
		t.StartedAt = time.Now().UTC()
		t.Attempts++
	})

	req := rt.requestFor(taskID)
	log := rt.logger.With(zap.String("task_id", taskID), zap.String("company", req.CompanyName))

	if err := rt.limiters.WaitFor(ctx, ratelimit.ClassExtraction, 1, extractionWait); err != nil {
		log.Warn("runtime: extraction rate limit wait timed out", zap.Error(err))
		rt.transition(taskID, func(t *model.Task) {
			t.State = model.TaskFailed
			t.Err = apperr.Wrap(err, apperr.KindRateLimited, "extraction rate limit timeout")
			t.FinishedAt = time.Now().UTC()
		})
		return
	}

	resp := rt.pipe.ExtractRequest(ctx, req)
	rt.transition(taskID, func(t *model.Task) {
		t.FinishedAt = time.Now().UTC()
		if resp.Success {
			t.State = model.TaskCompleted
			t.Result = resp.Record
			return
		}
		t.State = model.TaskFailed
		if len(resp.Errors) > 0 {
			t.Err = resp.Errors[len(resp.Errors)-1]
		} else {
			t.Err = apperr.New(apperr.KindUnexpected, "extraction failed with no recorded error")
		}
	})
}

func (rt *Runtime) requestFor(taskID string) model.Request {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.tasks[taskID].Request
}

func (rt *Runtime) transition(taskID string, mutate func(*model.Task)) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	if task, ok := rt.tasks[taskID]; ok {
		mutate(task)
	}
}
