package model

import (
	"net/url"
	"strings"
)

// CandidateURL is a scored, deduplicated search result awaiting crawl
// (spec.md §4.F output / §4.G input).
type CandidateURL struct {
	URL         string
	Rank        int // 1-based position in its originating search result set
	Title       string
	Description string
	Priority    float64 // in [0, 1], see ScoreCandidate
	Query       string  // the query that produced this candidate
}

// NormalizeURL lower-cases the scheme/host, strips a trailing slash and
// any fragment, and drops default ports. Used to dedup candidates across
// queries before scoring.
func NormalizeURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(raw)), "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if (u.Scheme == "http" && strings.HasSuffix(u.Host, ":80")) || (u.Scheme == "https" && strings.HasSuffix(u.Host, ":443")) {
		u.Host = u.Host[:strings.LastIndexByte(u.Host, ':')]
	}
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}

// Host returns the lower-cased hostname of the candidate URL, or "" if
// the URL does not parse.
func (c CandidateURL) Host() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
