package discovery

import "context"

// OrganicResult is one row of a SearchProvider response (spec.md §6.1).
type OrganicResult struct {
	Rank        int
	Title       string
	URL         string
	Description string
}

// SearchResponse is the full response from a single search call.
type SearchResponse struct {
	OrganicResults []OrganicResult
	Total          int
}

// SearchProvider abstracts the external search collaborator. Implementations
// may fail with Unavailable, RateLimited, Timeout, or AuthError; the
// discovery stage classifies and retries through the resilience layer
// rather than inspecting these directly.
type SearchProvider interface {
	Search(ctx context.Context, query, country, language string, page int) (SearchResponse, error)
}
