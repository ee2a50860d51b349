// Package apperr defines the typed error taxonomy the pipeline and its
// stages report through (spec.md §7). Every constructed error wraps a
// github.com/rotisserie/eris chain so it carries a stack trace, matching
// the teacher's universal error-handling idiom.
package apperr

import "github.com/rotisserie/eris"

// Kind is the closed taxonomy of error categories the pipeline surfaces
// to a caller (spec.md §7).
type Kind string

const (
	KindValidation          Kind = "validation"
	KindSearchError         Kind = "search_error"
	KindCrawlError          Kind = "crawl_error"
	KindParseError          Kind = "parse_error"
	KindAggregationError    Kind = "aggregation_error"
	KindRateLimited         Kind = "rate_limited"
	KindTimeout             Kind = "timeout"
	KindCircuitOpen         Kind = "circuit_open"
	KindInsufficientContent Kind = "insufficient_content"
	KindCompanyNotFound     Kind = "company_not_found"
	KindCacheError          Kind = "cache_error"
	KindUnexpected          Kind = "unexpected"
)

// Error is a taxonomy-tagged error carrying the offending URL or query
// when the caller supplies one, so a Response's error list can report
// per-URL/per-query diagnostics (spec.md §7 "User-visible behavior").
type Error struct {
	Kind    Kind
	Message string
	URL     string
	Query   string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs a fresh, eris-wrapped Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: eris.New(message)}
}

// Wrap wraps an existing error with a kind and message, preserving the
// original error in the eris chain.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: eris.Wrap(err, message)}
}

// WithURL returns a copy of e annotated with the offending URL.
func (e *Error) WithURL(url string) *Error {
	cp := *e
	cp.URL = url
	return &cp
}

// WithQuery returns a copy of e annotated with the offending query.
func (e *Error) WithQuery(query string) *Error {
	cp := *e
	cp.Query = query
	return &cp
}
