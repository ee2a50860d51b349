// Package aggregate implements the aggregation stage (spec.md §4.H):
// invoking the CompanyParser collaborator over each fetched page, then
// merging the resulting partial records into one CompanyRecord via
// fill-if-missing for scalars and per-field merge rules for collections.
// Generalized from the teacher's pipeline.MergeAnswers, which merges by
// per-field source tier; this stage merges by per-source confidence
// instead (see DESIGN.md).
package aggregate

import "github.com/sells-group/intel-engine/internal/model"

// MinParseConfidence is the floor at or below which a partial parse is
// discarded outright rather than contributing to the merge (spec.md §4.H
// step 1).
const MinParseConfidence = 0.1

// Partial is a single page's parse output: a partial CompanyRecord plus
// the parser's confidence in it.
type Partial struct {
	Record           model.CompanyRecord
	ParseConfidence  float64
	DataQuality      float64
	Completeness     float64
	SourceURL        string
	CostUSD          float64 // non-zero only from the LLM-backed parser
}

// CompanyParser abstracts the pure, I/O-free parse collaborator (spec.md
// §6.3). The default implementation in this package is heuristic and
// regex-based; an optional LLM-backed implementation lives in
// internal/aggregate/llmparser.go as a documented purity exception.
type CompanyParser interface {
	Parse(content, url, expectedName string) (Partial, error)
}
