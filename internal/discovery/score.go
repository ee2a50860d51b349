package discovery

import (
	"net/url"
	"strings"

	"github.com/sells-group/intel-engine/internal/model"
)

// resultsPerQuery caps how many organic results from a single query feed
// into scoring (spec.md §4.F: "top 5 per query").
const resultsPerQuery = 5

var highValueDomains = []string{
	"linkedin.com", "crunchbase.com", "bloomberg.com", "forbes.com", "reuters.com", "sec.gov",
}

var pathKeywords = []string{
	"about", "contact", "company", "team", "leadership", "investors", "careers", "press", "news",
}

var socialDomains = []string{
	"facebook.com", "instagram.com", "twitter.com", "x.com", "youtube.com", "pinterest.com", "reddit.com", "wikipedia.org",
}

var genericCompanyTerms = []string{"company", "corporation", "business", "organization", "enterprise"}

// modeTitleTerms returns mode-specific terms that, if present in a result
// title, add a smaller title-match bonus (spec.md §4.F step 3).
func modeTitleTerms(mode model.ExtractionMode) []string {
	switch mode {
	case model.ModeContactFocused:
		return []string{"contact", "address", "phone"}
	case model.ModeFinancialFocused:
		return []string{"funding", "revenue", "valuation", "investors"}
	case model.ModeComprehensive:
		return []string{"about", "leadership", "crunchbase"}
	default:
		return nil
	}
}

// ScoreCandidate computes the priority in [0, 1] for a single organic
// result, per the weighted rule set in spec.md §4.F step 3.
func ScoreCandidate(result OrganicResult, req model.Request, query string) float64 {
	var score float64

	host := hostOf(result.URL)
	nameKey := collapseName(req.CompanyName)
	hostSansSep := stripHostSeparators(host)

	if req.Domain != "" && strings.Contains(host, strings.ToLower(req.Domain)) {
		score += 0.4
	} else if nameKey != "" && strings.Contains(hostSansSep, nameKey) {
		score += 0.3
	}

	if containsAny(host, highValueDomains) {
		score += 0.2
	}

	if pathContainsKeyword(result.URL) {
		score += 0.15
	}

	titleLower := strings.ToLower(result.Title)
	nameLower := strings.ToLower(req.CompanyName)
	if nameLower != "" && strings.Contains(titleLower, nameLower) {
		score += 0.2
		for _, term := range modeTitleTerms(req.Mode) {
			if strings.Contains(titleLower, term) {
				score += 0.1
				break
			}
		}
	}

	descLower := strings.ToLower(result.Description)
	if nameLower != "" && strings.Contains(descLower, nameLower) {
		score += 0.1
		if containsAny(descLower, genericCompanyTerms) {
			score += 0.05
		}
	}

	if containsAny(host, socialDomains) {
		score *= 0.7
	}

	return clip01(score)
}

// RankCandidates scores every result across responses, collapses
// duplicate URLs to the max score seen, sorts descending, and truncates
// to req.MaxPages candidates (spec.md §4.F step 3).
func RankCandidates(responses map[string]SearchResponse, req model.Request) []model.CandidateURL {
	byURL := make(map[string]model.CandidateURL)

	for query, resp := range responses {
		results := resp.OrganicResults
		if len(results) > resultsPerQuery {
			results = results[:resultsPerQuery]
		}
		for _, r := range results {
			normalized := model.NormalizeURL(r.URL)
			score := ScoreCandidate(r, req, query)

			existing, ok := byURL[normalized]
			if !ok || score > existing.Priority {
				byURL[normalized] = model.CandidateURL{
					URL:         normalized,
					Rank:        r.Rank,
					Title:       r.Title,
					Description: r.Description,
					Priority:    score,
					Query:       query,
				}
			}
		}
	}

	out := make([]model.CandidateURL, 0, len(byURL))
	for _, c := range byURL {
		out = append(out, c)
	}
	sortByPriorityDesc(out)

	if req.MaxPages > 0 && len(out) > req.MaxPages {
		out = out[:req.MaxPages]
	}
	return out
}

func sortByPriorityDesc(candidates []model.CandidateURL) {
	// Stable insertion sort keeps the function allocation-free for the
	// small candidate counts (≤ a few dozen) this stage ever produces,
	// and preserves encounter order for exact ties.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].Priority > candidates[j-1].Priority; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func pathContainsKeyword(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.Path)
	return containsAny(path, pathKeywords)
}

func collapseName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), " ", "")
}

func stripHostSeparators(host string) string {
	r := strings.NewReplacer("-", "", "/", "", "_", "")
	return r.Replace(host)
}

func containsAny(s string, substrs []string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func clip01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
