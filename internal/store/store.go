// Package store persists task and batch state so the runtime and batch
// orchestrator survive process restarts, grounded on the teacher's
// store.SQLiteStore idiom.
package store

import (
	"context"
	"time"

	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/resilience"
)

// TaskFilter narrows ListTasks.
type TaskFilter struct {
	State model.TaskState
	Limit int
}

// Store is the persistence contract for tasks, batches, and the dead
// letter queue.
type Store interface {
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error

	SaveTask(ctx context.Context, task model.Task) error
	GetTask(ctx context.Context, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)

	SaveBatch(ctx context.Context, batch model.Batch) error
	GetBatch(ctx context.Context, id string) (*model.Batch, error)

	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)
}
