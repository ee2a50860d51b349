package resilience

import (
	"time"

	"github.com/sells-group/intel-engine/internal/model"
)

// DLQEntry represents a task that exhausted its retry and recovery budget
// and is held for manual or scheduled re-submission (spec.md §4.E).
type DLQEntry struct {
	ID           string            `json:"id"`
	Request      model.Request     `json:"request"`
	Error        string            `json:"error"`
	ErrorClass   FailureClass      `json:"error_class"`
	FailedPhase  string            `json:"failed_phase,omitempty"`
	RetryCount   int               `json:"retry_count"`
	MaxRetries   int               `json:"max_retries"`
	NextRetryAt  time.Time         `json:"next_retry_at"`
	CreatedAt    time.Time         `json:"created_at"`
	LastFailedAt time.Time         `json:"last_failed_at"`
}

// DLQFilter specifies criteria for querying the dead letter queue.
type DLQFilter struct {
	ErrorClass FailureClass `json:"error_class,omitempty"`
	Limit      int          `json:"limit,omitempty"`
}

// CanRetry returns true if this entry hasn't exceeded its max retry count.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError categorizes err using the package's failure taxonomy.
func ClassifyError(err error) FailureClass {
	return Classify(err, 0)
}
