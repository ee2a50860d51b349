package model

import "time"

// TaskState is the lifecycle of a single request inside the concurrent
// runtime (spec.md §4.J).
type TaskState string

const (
	TaskQueued     TaskState = "queued"
	TaskProcessing TaskState = "processing"
	TaskCompleted  TaskState = "completed"
	TaskFailed     TaskState = "failed"
)

// PriorityBucket is the caller-facing priority label; the runtime maps it
// to an integer rank for the scheduling heap (spec.md §4.J).
type PriorityBucket string

const (
	PriorityUrgent PriorityBucket = "urgent"
	PriorityHigh   PriorityBucket = "high"
	PriorityNormal PriorityBucket = "normal"
	PriorityLow    PriorityBucket = "low"
)

// Rank returns the integer scheduling rank for b, lower sorting first
// (urgent=1 ... low=4). Unrecognized buckets rank as normal.
func (b PriorityBucket) Rank() int {
	switch b {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityLow:
		return 4
	default:
		return 3
	}
}

// Task is a single scheduled extraction request tracked by the runtime.
type Task struct {
	ID          string
	Request     Request
	Priority    PriorityBucket
	State       TaskState
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	Result      *CompanyRecord
	Err         error
	Attempts    int
}

// Done reports whether the task has reached a terminal state.
func (t Task) Done() bool {
	return t.State == TaskCompleted || t.State == TaskFailed
}
