// Package model defines the value types that flow through the extraction
// pipeline: requests, candidate URLs, fetched pages, company records, and
// the task/batch types the concurrent runtime schedules.
package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// maxCompanyNameLength bounds CompanyName the same way the source
// system's CompanyValidationRules does, so one runaway input string
// can't balloon through every downstream log line and export row.
const maxCompanyNameLength = 200

// ExtractionMode controls query generation and include-flag defaults (§4.F).
type ExtractionMode string

const (
	ModeBasic            ExtractionMode = "basic"
	ModeComprehensive     ExtractionMode = "comprehensive"
	ModeContactFocused    ExtractionMode = "contact_focused"
	ModeFinancialFocused  ExtractionMode = "financial_focused"
)

// normalizeMode treats the source's "STANDARD" spelling as a synonym for
// COMPREHENSIVE rather than adding a fifth mode (spec.md §9 Open Questions).
func normalizeMode(m ExtractionMode) ExtractionMode {
	switch strings.ToLower(string(m)) {
	case "standard":
		return ModeComprehensive
	default:
		return ExtractionMode(strings.ToLower(string(m)))
	}
}

func (m ExtractionMode) valid() bool {
	switch normalizeMode(m) {
	case ModeBasic, ModeComprehensive, ModeContactFocused, ModeFinancialFocused:
		return true
	default:
		return false
	}
}

// Request is a validated, immutable extraction request. Construct it via
// NewRequest; the zero value is not a valid Request.
type Request struct {
	RequestID string
	CompanyName string
	Domain      string
	Mode        ExtractionMode
	Country     string // ISO-3166 alpha-2, uppercase
	Language    string // ISO-639-1, lowercase

	IncludeSocial      bool
	IncludeFinancial   bool
	IncludeContact     bool
	IncludePersonnel   bool
	IncludeSubsidiaries bool

	MaxPages  int
	TimeoutS  int
}

// RequestParams is the caller-facing, pre-validation input to NewRequest.
type RequestParams struct {
	CompanyName string
	Domain      string
	Mode        ExtractionMode
	Country     string
	Language    string

	IncludeSocial       bool
	IncludeFinancial    bool
	IncludeContact      bool
	IncludePersonnel    bool
	IncludeSubsidiaries bool

	MaxPages int
	TimeoutS int
}

// NewRequest validates params and constructs a Request. Validation happens
// at construction, never lazily at field access (spec.md §9).
func NewRequest(p RequestParams) (Request, error) {
	name := strings.TrimSpace(p.CompanyName)
	if name == "" {
		return Request{}, NewValidationError("company_name is required")
	}
	if len(name) < 2 {
		return Request{}, NewValidationError("company_name must be at least 2 characters long")
	}
	if len(name) > maxCompanyNameLength {
		return Request{}, NewValidationError(fmt.Sprintf("company_name must be at most %d characters long", maxCompanyNameLength))
	}
	mode := normalizeMode(p.Mode)
	if mode == "" {
		mode = ModeBasic
	}
	if !mode.valid() {
		return Request{}, NewValidationError("invalid extraction mode: " + string(p.Mode))
	}

	maxPages := p.MaxPages
	if maxPages == 0 {
		maxPages = 10
	}
	if maxPages < 1 || maxPages > 20 {
		return Request{}, NewValidationError("max_pages must be in [1, 20]")
	}

	timeout := p.TimeoutS
	if timeout == 0 {
		timeout = 30
	}
	if timeout < 5 || timeout > 120 {
		return Request{}, NewValidationError("timeout_s must be in [5, 120]")
	}

	country := strings.ToUpper(strings.TrimSpace(p.Country))
	if country != "" && len(country) != 2 {
		return Request{}, NewValidationError("country must be an ISO-3166 alpha-2 code")
	}

	language := strings.ToLower(strings.TrimSpace(p.Language))
	if language != "" && len(language) != 2 {
		return Request{}, NewValidationError("language must be an ISO-639-1 code")
	}

	includeSocial := p.IncludeSocial
	includeFinancial := p.IncludeFinancial
	includeContact := p.IncludeContact
	includePersonnel := p.IncludePersonnel
	includeSubsidiaries := p.IncludeSubsidiaries

	// Mode-driven include defaults, applied additively (a caller-set true
	// is never cleared by the mode).
	switch mode {
	case ModeComprehensive:
		includeSocial, includeFinancial, includeContact, includePersonnel, includeSubsidiaries = true, true, true, true, true
	case ModeContactFocused:
		includeContact = true
	case ModeFinancialFocused:
		includeFinancial = true
	}

	return Request{
		RequestID:           uuid.NewString(),
		CompanyName:         strings.TrimSpace(p.CompanyName),
		Domain:              strings.ToLower(strings.TrimSpace(p.Domain)),
		Mode:                mode,
		Country:             country,
		Language:            language,
		IncludeSocial:       includeSocial,
		IncludeFinancial:    includeFinancial,
		IncludeContact:      includeContact,
		IncludePersonnel:    includePersonnel,
		IncludeSubsidiaries: includeSubsidiaries,
		MaxPages:            maxPages,
		TimeoutS:            timeout,
	}, nil
}

// Timeout returns TimeoutS as a time.Duration.
func (r Request) Timeout() time.Duration {
	return time.Duration(r.TimeoutS) * time.Second
}

// clone returns a plain copy of r. It never mutates the receiver.
func (r Request) clone() Request {
	return r
}

// ValidationError is raised when a Request (or other constructed value
// object) fails construction-time validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// NewValidationError constructs a ValidationError wrapped with a stack trace.
func NewValidationError(msg string) error {
	return eris.Wrap(&ValidationError{Message: msg}, "validation")
}
