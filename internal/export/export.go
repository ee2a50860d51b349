// Package export writes batch extraction results to the three sinks
// spec.md §6 names: a JSON document, a fixed-column CSV, and a typed
// tabular superset of that CSV. An optional Notion sink (notionsink.go)
// mirrors each company result onto a page in a caller-configured
// database.
package export

import (
	"fmt"
	"time"

	"github.com/sells-group/intel-engine/internal/model"
)

// BatchInfo identifies the batch a Document reports on.
type BatchInfo struct {
	BatchID     string
	SubmittedAt time.Time
	FinishedAt  time.Time
	State       model.BatchState
	Total       int
}

// SummaryStats aggregates the successful CompanyResults in a Document
// (spec.md §4.K step 4: "success rate, averages, industry and size
// distributions from successful records").
type SummaryStats struct {
	SuccessRate        float64
	AvgProcessingTimeS float64
	IndustryCounts      map[string]int
	SizeCounts          map[string]int
}

// CompanyResult is one company's outcome within a batch export.
type CompanyResult struct {
	CompanyName     string
	Success         bool
	ProcessingTimeS float64
	Record          *model.CompanyRecord
	Errors          []string
	Warnings        []string
}

// Document is the full payload handed to a Writer.
type Document struct {
	BatchInfo BatchInfo
	Summary   SummaryStats
	Companies []CompanyResult
}

// Summarize computes SummaryStats over results, counting only successful
// records toward the industry/size distributions (spec.md §4.K step 4).
func Summarize(results []CompanyResult) SummaryStats {
	stats := SummaryStats{
		IndustryCounts: make(map[string]int),
		SizeCounts:     make(map[string]int),
	}
	if len(results) == 0 {
		return stats
	}

	var succeeded int
	var totalTime float64
	for _, r := range results {
		totalTime += r.ProcessingTimeS
		if !r.Success || r.Record == nil {
			continue
		}
		succeeded++
		if industry := r.Record.Basic.Industry; industry != "" {
			stats.IndustryCounts[industry]++
		}
		if size := r.Record.Financials.CompanySize; size != "" && size != model.CompanySizeUnknown {
			stats.SizeCounts[string(size)]++
		} else if size := r.Record.Financials.EmployeeCount; size != "" {
			stats.SizeCounts[size]++
		}
	}

	stats.SuccessRate = float64(succeeded) / float64(len(results))
	stats.AvgProcessingTimeS = totalTime / float64(len(results))
	return stats
}

// Writer persists a Document to a filesystem path.
type Writer interface {
	Write(doc Document, path string) error
}

// WriterFor resolves the Writer for a requested format.
func WriterFor(format model.ExportFormat) (Writer, error) {
	switch format {
	case model.ExportJSON:
		return JSONWriter{}, nil
	case model.ExportCSV:
		return CSVWriter{}, nil
	case model.ExportTable:
		return TableWriter{}, nil
	default:
		return nil, fmt.Errorf("export: unsupported format %q", format)
	}
}
