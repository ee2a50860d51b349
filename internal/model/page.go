package model

import "time"

// FetchedPage is the raw output of a single crawl (spec.md §4.G).
type FetchedPage struct {
	URL         string
	FinalURL    string // after redirects
	StatusCode  int
	Content     string
	ContentType string
	FetchedAt   time.Time
	Succeeded   bool // true iff StatusCode in 2xx and len(Content) >= MinContentBytes
	Error       string
	TokensUsed  int // reader tokens billed to fetch this page, if the fetcher reports usage
}

// MinContentBytes is the minimum content length, in bytes, for a fetch to
// count as succeeded rather than a content-quality failure (spec.md §4.G).
const MinContentBytes = 100

// ClassifySuccess applies the minimum-content-length rule used by the
// crawl stage to decide whether a fetch counts toward the succeeded tally.
func ClassifySuccess(statusCode int, content string) bool {
	return statusCode >= 200 && statusCode < 300 && len(content) >= MinContentBytes
}
