package store

import (
	"database/sql"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite" // Register the pure-Go SQLite driver.

	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/resilience"
)

// SQLiteStore implements Store using modernc.org/sqlite, grounded on the
// teacher's store.SQLiteStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	if !strings.Contains(dsn, "?") {
		dsn += "?"
	} else {
		dsn += "&"
	}
	dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	db.SetMaxOpenConns(10)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, eris.Wrap(err, "sqlite: ping")
	}

	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS tasks (
	id          TEXT PRIMARY KEY,
	request     TEXT NOT NULL,
	priority    TEXT NOT NULL,
	state       TEXT NOT NULL DEFAULT 'queued',
	result      TEXT,
	error       TEXT,
	attempts    INTEGER NOT NULL DEFAULT 0,
	submitted_at DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at   DATETIME,
	finished_at  DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tasks_state ON tasks(state);

CREATE TABLE IF NOT EXISTS batches (
	id           TEXT PRIMARY KEY,
	task_ids     TEXT NOT NULL,
	priority     TEXT NOT NULL,
	state        TEXT NOT NULL DEFAULT 'queued',
	result_order TEXT NOT NULL,
	submitted_at DATETIME NOT NULL DEFAULT (datetime('now')),
	started_at   DATETIME,
	finished_at  DATETIME
);

CREATE TABLE IF NOT EXISTS dead_letter_queue (
	id             TEXT PRIMARY KEY,
	request        TEXT NOT NULL,
	error          TEXT NOT NULL,
	error_class    TEXT NOT NULL DEFAULT 'transient',
	failed_phase   TEXT,
	retry_count    INTEGER NOT NULL DEFAULT 0,
	max_retries    INTEGER NOT NULL DEFAULT 3,
	next_retry_at  DATETIME NOT NULL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	last_failed_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_dlq_error_class ON dead_letter_queue(error_class);
CREATE INDEX IF NOT EXISTS idx_dlq_next_retry ON dead_letter_queue(next_retry_at);
`

// Ping implements Store.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate implements Store.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// PoolStats reports the underlying connection pool's current size so the
// resource governor's Probe can read it without depending on database/sql
// directly.
func (s *SQLiteStore) PoolStats() (open, maxOpen int) {
	stats := s.db.Stats()
	return stats.OpenConnections, stats.MaxOpenConnections
}

// RebuildPool closes all idle connections, forcing the pool to
// re-establish them on next use. It backs the governor's Mitigator
// when memory or connection pressure calls for a reset.
func (s *SQLiteStore) RebuildPool() error {
	s.db.SetMaxIdleConns(0)
	s.db.SetMaxIdleConns(2)
	return nil
}

// SaveTask implements Store, upserting by task ID.
func (s *SQLiteStore) SaveTask(ctx context.Context, task model.Task) error {
	requestJSON, err := json.Marshal(task.Request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal task request")
	}

	var resultJSON []byte
	if task.Result != nil {
		resultJSON, err = json.Marshal(task.Result)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal task result")
		}
	}

	var errMsg string
	if task.Err != nil {
		errMsg = task.Err.Error()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO tasks (id, request, priority, state, result, error, attempts, submitted_at, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			state = excluded.state, result = excluded.result, error = excluded.error,
			attempts = excluded.attempts, started_at = excluded.started_at, finished_at = excluded.finished_at`,
		task.ID, string(requestJSON), string(task.Priority), string(task.State),
		nullableJSON(resultJSON), nullableString(errMsg), task.Attempts,
		task.SubmittedAt.UTC(), nullableTime(task.StartedAt), nullableTime(task.FinishedAt),
	)
	return eris.Wrap(err, "sqlite: save task")
}

// GetTask implements Store.
func (s *SQLiteStore) GetTask(ctx context.Context, id string) (*model.Task, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, request, priority, state, result, error, attempts, submitted_at, started_at, finished_at
		 FROM tasks WHERE id = ?`, id,
	)
	return scanTask(row)
}

// ListTasks implements Store.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	query := `SELECT id, request, priority, state, result, error, attempts, submitted_at, started_at, finished_at FROM tasks WHERE 1=1`
	var args []any

	if filter.State != "" {
		query += ` AND state = ?`
		args = append(args, string(filter.State))
	}
	query += ` ORDER BY submitted_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list tasks")
	}
	defer rows.Close() //nolint:errcheck

	var tasks []model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, eris.Wrap(rows.Err(), "sqlite: list tasks iterate")
}

// SaveBatch implements Store, upserting by batch ID.
func (s *SQLiteStore) SaveBatch(ctx context.Context, batch model.Batch) error {
	taskIDsJSON, err := json.Marshal(batch.TaskIDs)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal batch task ids")
	}
	resultOrderJSON, err := json.Marshal(batch.ResultOrder)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal batch result order")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batches (id, task_ids, priority, state, result_order, submitted_at, started_at, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			task_ids = excluded.task_ids, state = excluded.state, result_order = excluded.result_order,
			started_at = excluded.started_at, finished_at = excluded.finished_at`,
		batch.ID, string(taskIDsJSON), string(batch.Priority), string(batch.State),
		string(resultOrderJSON), batch.SubmittedAt.UTC(), nullableTime(batch.StartedAt), nullableTime(batch.FinishedAt),
	)
	return eris.Wrap(err, "sqlite: save batch")
}

// GetBatch implements Store.
func (s *SQLiteStore) GetBatch(ctx context.Context, id string) (*model.Batch, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, task_ids, priority, state, result_order, submitted_at, started_at, finished_at
		 FROM batches WHERE id = ?`, id,
	)

	var b model.Batch
	var taskIDsJSON, resultOrderJSON string
	var startedAt, finishedAt sql.NullTime
	err := row.Scan(&b.ID, &taskIDsJSON, &b.Priority, &b.State, &resultOrderJSON, &b.SubmittedAt, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("batch not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan batch")
	}
	if err := json.Unmarshal([]byte(taskIDsJSON), &b.TaskIDs); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal batch task ids")
	}
	if err := json.Unmarshal([]byte(resultOrderJSON), &b.ResultOrder); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal batch result order")
	}
	b.StartedAt = startedAt.Time
	b.FinishedAt = finishedAt.Time
	return &b, nil
}

// EnqueueDLQ implements Store.
func (s *SQLiteStore) EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error {
	requestJSON, err := json.Marshal(entry.Request)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal dlq request")
	}

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO dead_letter_queue
		 (id, request, error, error_class, failed_phase, retry_count, max_retries, next_retry_at, created_at, last_failed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, string(requestJSON), entry.Error, string(entry.ErrorClass),
		entry.FailedPhase, entry.RetryCount, entry.MaxRetries,
		entry.NextRetryAt.UTC(), entry.CreatedAt.UTC(), entry.LastFailedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: enqueue dlq")
}

// DequeueDLQ implements Store.
func (s *SQLiteStore) DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error) {
	now := time.Now().UTC()
	query := `SELECT id, request, error, error_class, failed_phase, retry_count, max_retries, next_retry_at, created_at, last_failed_at
	          FROM dead_letter_queue
	          WHERE next_retry_at <= ? AND retry_count < max_retries`
	args := []any{now}

	if filter.ErrorClass != "" {
		query += ` AND error_class = ?`
		args = append(args, string(filter.ErrorClass))
	}

	query += ` ORDER BY next_retry_at ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: dequeue dlq")
	}
	defer rows.Close() //nolint:errcheck

	var entries []resilience.DLQEntry
	for rows.Next() {
		var e resilience.DLQEntry
		var requestJSON string
		var failedPhase sql.NullString
		var errorClass string
		if err := rows.Scan(&e.ID, &requestJSON, &e.Error, &errorClass,
			&failedPhase, &e.RetryCount, &e.MaxRetries,
			&e.NextRetryAt, &e.CreatedAt, &e.LastFailedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan dlq entry")
		}
		e.ErrorClass = resilience.FailureClass(errorClass)
		if failedPhase.Valid {
			e.FailedPhase = failedPhase.String
		}
		if err := json.Unmarshal([]byte(requestJSON), &e.Request); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal dlq request")
		}
		entries = append(entries, e)
	}
	return entries, eris.Wrap(rows.Err(), "sqlite: dequeue dlq iterate")
}

// IncrementDLQRetry implements Store.
func (s *SQLiteStore) IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE dead_letter_queue
		 SET retry_count = retry_count + 1, next_retry_at = ?, error = ?, last_failed_at = ?
		 WHERE id = ?`,
		nextRetryAt.UTC(), lastErr, time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: increment dlq retry %s", id)
	}
	return checkRowsAffected(res, "dlq_entry", id)
}

// RemoveDLQ implements Store.
func (s *SQLiteStore) RemoveDLQ(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM dead_letter_queue WHERE id = ?`, id)
	return eris.Wrap(err, "sqlite: remove dlq")
}

// CountDLQ implements Store.
func (s *SQLiteStore) CountDLQ(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letter_queue`).Scan(&count)
	return count, eris.Wrap(err, "sqlite: count dlq")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTask(row scannable) (*model.Task, error) {
	var t model.Task
	var requestJSON string
	var resultJSON, errMsg sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := row.Scan(&t.ID, &requestJSON, &t.Priority, &t.State, &resultJSON, &errMsg,
		&t.Attempts, &t.SubmittedAt, &startedAt, &finishedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("task not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan task")
	}

	if err := json.Unmarshal([]byte(requestJSON), &t.Request); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal task request")
	}
	if resultJSON.Valid {
		t.Result = &model.CompanyRecord{}
		if err := json.Unmarshal([]byte(resultJSON.String), t.Result); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal task result")
		}
	}
	if errMsg.Valid {
		t.Err = eris.New(errMsg.String)
	}
	t.StartedAt = startedAt.Time
	t.FinishedAt = finishedAt.Time
	return &t, nil
}
