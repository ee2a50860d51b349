package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/resilience"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testRequest(t *testing.T) model.Request {
	t.Helper()
	req, err := model.NewRequest(model.RequestParams{CompanyName: "Acme Corp"})
	require.NoError(t, err)
	return req
}

// --- Tasks ---

func TestSQLite_Task_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	task := model.Task{
		ID:          "task-1",
		Request:     testRequest(t),
		Priority:    model.PriorityNormal,
		State:       model.TaskQueued,
		SubmittedAt: time.Now().UTC(),
	}
	require.NoError(t, st.SaveTask(ctx, task))

	got, err := st.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, "Acme Corp", got.Request.CompanyName)
	assert.Equal(t, model.TaskQueued, got.State)
}

func TestSQLite_Task_SaveUpdatesExisting(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	task := model.Task{ID: "task-1", Request: testRequest(t), Priority: model.PriorityNormal, State: model.TaskQueued, SubmittedAt: time.Now().UTC()}
	require.NoError(t, st.SaveTask(ctx, task))

	task.State = model.TaskCompleted
	task.Result = &model.CompanyRecord{Basic: model.Basic{Name: "Acme Corp"}}
	task.FinishedAt = time.Now().UTC()
	require.NoError(t, st.SaveTask(ctx, task))

	got, err := st.GetTask(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, model.TaskCompleted, got.State)
	require.NotNil(t, got.Result)
	assert.Equal(t, "Acme Corp", got.Result.Basic.Name)
	assert.False(t, got.FinishedAt.IsZero())
}

func TestSQLite_Task_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	_, err := st.GetTask(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestSQLite_Task_ListFiltersByState(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveTask(ctx, model.Task{ID: "a", Request: testRequest(t), State: model.TaskQueued, SubmittedAt: time.Now().UTC()}))
	require.NoError(t, st.SaveTask(ctx, model.Task{ID: "b", Request: testRequest(t), State: model.TaskCompleted, SubmittedAt: time.Now().UTC()}))

	got, err := st.ListTasks(ctx, TaskFilter{State: model.TaskCompleted})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "b", got[0].ID)
}

// --- Batches ---

func TestSQLite_Batch_SaveAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	batch := model.Batch{
		ID:          "batch-1",
		TaskIDs:     []string{"a", "b"},
		Priority:    model.PriorityHigh,
		State:       model.BatchProcessing,
		SubmittedAt: time.Now().UTC(),
		ResultOrder: []string{"Acme", "Globex"},
	}
	require.NoError(t, st.SaveBatch(ctx, batch))

	got, err := st.GetBatch(ctx, "batch-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, got.TaskIDs)
	assert.Equal(t, []string{"Acme", "Globex"}, got.ResultOrder)
	assert.Equal(t, model.BatchProcessing, got.State)
}

// --- Dead Letter Queue ---

func TestSQLite_DLQ_EnqueueAndDequeue(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := resilience.DLQEntry{
		Request:     testRequest(t),
		Error:       "timeout",
		ErrorClass:  resilience.ClassTimeout,
		MaxRetries:  3,
		NextRetryAt: time.Now().Add(-time.Minute).UTC(),
		CreatedAt:   time.Now().UTC(),
		LastFailedAt: time.Now().UTC(),
	}
	require.NoError(t, st.EnqueueDLQ(ctx, entry))

	entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Acme Corp", entries[0].Request.CompanyName)
	assert.Equal(t, resilience.ClassTimeout, entries[0].ErrorClass)
}

func TestSQLite_DLQ_DequeueExcludesExhaustedRetries(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := resilience.DLQEntry{
		Request:      testRequest(t),
		Error:        "timeout",
		ErrorClass:   resilience.ClassTimeout,
		RetryCount:   3,
		MaxRetries:   3,
		NextRetryAt:  time.Now().Add(-time.Minute).UTC(),
		CreatedAt:    time.Now().UTC(),
		LastFailedAt: time.Now().UTC(),
	}
	require.NoError(t, st.EnqueueDLQ(ctx, entry))

	entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLite_DLQ_IncrementRetry(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := resilience.DLQEntry{
		ID:           "dlq-1",
		Request:      testRequest(t),
		Error:        "timeout",
		ErrorClass:   resilience.ClassTimeout,
		MaxRetries:   3,
		NextRetryAt:  time.Now().Add(-time.Minute).UTC(),
		CreatedAt:    time.Now().UTC(),
		LastFailedAt: time.Now().UTC(),
	}
	require.NoError(t, st.EnqueueDLQ(ctx, entry))

	require.NoError(t, st.IncrementDLQRetry(ctx, "dlq-1", time.Now().Add(time.Hour), "still failing"))

	count, err := st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Not yet due for retry.
	entries, err := st.DequeueDLQ(ctx, resilience.DLQFilter{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSQLite_DLQ_Remove(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := resilience.DLQEntry{
		ID: "dlq-1", Request: testRequest(t), Error: "x", ErrorClass: resilience.ClassTimeout,
		MaxRetries: 3, NextRetryAt: time.Now().Add(-time.Minute), CreatedAt: time.Now(), LastFailedAt: time.Now(),
	}
	require.NoError(t, st.EnqueueDLQ(ctx, entry))
	require.NoError(t, st.RemoveDLQ(ctx, "dlq-1"))

	count, err := st.CountDLQ(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
