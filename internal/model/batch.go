package model

import (
	"strings"
	"time"
)

// BatchState is the overall lifecycle of a batch job (spec.md §4.K).
type BatchState string

const (
	BatchQueued            BatchState = "queued"
	BatchProcessing        BatchState = "processing"
	BatchCompleted         BatchState = "completed"
	BatchPartiallyCompleted BatchState = "partially_completed"
	BatchFailed            BatchState = "failed"
)

// ExportFormat enumerates the supported result-export encodings.
type ExportFormat string

const (
	ExportJSON  ExportFormat = "json"
	ExportCSV   ExportFormat = "csv"
	ExportTable ExportFormat = "table"
)

// Batch groups many extraction requests under one job id, deduplicating
// company names case-insensitively at construction (spec.md §4.K
// invariant).
type Batch struct {
	ID          string
	TaskIDs     []string
	Priority    PriorityBucket
	State       BatchState
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
	// ResultOrder preserves first-insertion order of company names so
	// results surface in submission order regardless of completion order.
	ResultOrder []string
}

// DedupeRequests drops later requests whose CompanyName matches an earlier
// one case-insensitively, preserving the first occurrence's order.
func DedupeRequests(requests []Request) []Request {
	seen := make(map[string]struct{}, len(requests))
	out := make([]Request, 0, len(requests))
	for _, r := range requests {
		key := strings.ToLower(strings.TrimSpace(r.CompanyName))
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out
}

// BatchProgress is a point-in-time snapshot delivered to batch observers
// (spec.md §4.K).
type BatchProgress struct {
	BatchID   string
	Total     int
	Completed int
	Failed    int
	Pending   int
	SampledAt time.Time
}

// Finalize computes the terminal BatchState from completed/failed/total
// counts: all succeeded is BatchCompleted, all failed is BatchFailed,
// anything in between is BatchPartiallyCompleted.
func Finalize(total, completed, failed int) BatchState {
	switch {
	case total == 0:
		return BatchCompleted
	case failed == 0:
		return BatchCompleted
	case completed == 0:
		return BatchFailed
	default:
		return BatchPartiallyCompleted
	}
}
