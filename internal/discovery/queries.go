// Package discovery implements the search/scoring stage (spec.md §4.F):
// deterministic query generation, resilience-wrapped search calls, and
// the weighted priority scoring function that ranks organic results into
// CandidateURLs for the crawl stage.
package discovery

import (
	"fmt"

	"github.com/sells-group/intel-engine/internal/model"
)

// maxQueries caps the number of queries emitted to the provider per
// request, bounding search cost (spec.md §4.F).
const maxQueries = 3

// BuildQueries returns the deterministic query set for req, keyed on mode
// and include-flags, truncated to maxQueries.
func BuildQueries(req model.Request) []string {
	var queries []string

	queries = append(queries, fmt.Sprintf(`"%s" company information`, req.CompanyName))
	if req.Domain != "" {
		queries = append(queries, fmt.Sprintf(`"%s" site:%s`, req.CompanyName, req.Domain))
	}

	comprehensive := req.Mode == model.ModeComprehensive
	if req.IncludeContact || comprehensive {
		queries = append(queries, "contact information", "address phone email", "about us")
	}
	if req.IncludeFinancial || comprehensive {
		queries = append(queries, "funding investors", "revenue valuation", "crunchbase")
	}
	if req.IncludeSocial {
		queries = append(queries, "linkedin", "twitter", "social media")
	}
	if req.IncludePersonnel {
		queries = append(queries, "CEO founder", "leadership team", "executives")
	}

	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries
}
