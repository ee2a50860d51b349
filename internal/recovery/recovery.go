// Package recovery implements the single-pass recovery strategies applied
// when an extraction request exhausts its retry budget (spec.md §4.E).
// Each strategy is a pure function: it returns a modified copy of the
// request, never mutating its input, and the pipeline applies at most
// one pass before giving up (spec.md §9 Open Question, resolved via
// MaxPasses below rather than looping indefinitely).
package recovery

import (
	"strings"

	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/resilience"
)

// MaxPasses bounds how many times the pipeline may invoke Apply for a
// single request. The source this spec was distilled from mutates a
// request in place and re-runs in an unbounded loop; since the loop bound
// is ambiguous in that source, this is a configuration knob defaulting to
// 1 rather than a guess (spec.md §9).
const MaxPasses = 1

var commonSuffixes = []string{" inc", " llc", " corp", " co", " company"}

// Apply returns a request adjusted for class, plus whether a recovery
// strategy exists for that class at all. Classes with no defined strategy
// (ClassNotFound handled separately below, ClassPermanent never reaches
// here since it isn't retryable) return the request unchanged and false.
func Apply(req model.Request, class resilience.FailureClass) (model.Request, bool) {
	switch class {
	case resilience.ClassTimeout:
		return applyTimeout(req), true
	case resilience.ClassRateLimit:
		return applyRateLimit(req), true
	case resilience.ClassDataQuality:
		return applyDataQuality(req), true
	case resilience.ClassNotFound:
		return applyNotFound(req), true
	default:
		return req, false
	}
}

// applyTimeout reduces timeout_s to max(10, 0.7x), halves max_pages, and
// downgrades the mode to BASIC.
func applyTimeout(req model.Request) model.Request {
	out := req
	out.TimeoutS = maxInt(10, int(0.7*float64(req.TimeoutS)))
	out.MaxPages = maxInt(1, req.MaxPages/2)
	out.Mode = model.ModeBasic
	return out
}

// applyRateLimit halves caller-controlled concurrency hints (MaxPages,
// used here as the pipeline's proxy for fan-out since Request carries no
// separate concurrency field). It changes no retry delay.
func applyRateLimit(req model.Request) model.Request {
	out := req
	out.MaxPages = maxInt(1, req.MaxPages/2)
	return out
}

// DoubleRetryBaseDelay returns twice base. RetryConfig is a
// resilience-layer concern and not part of model.Request; the pipeline's
// recovery pass does not call this function, so a rate-limit recovery
// pass retries with the stages' configured base delay unchanged.
func DoubleRetryBaseDelay(base int64) int64 {
	return base * 2
}

// applyDataQuality upgrades the mode to COMPREHENSIVE, enables social and
// personnel collection, and raises max_pages by 2 (capped at 10).
func applyDataQuality(req model.Request) model.Request {
	out := req
	out.Mode = model.ModeComprehensive
	out.IncludeSocial = true
	out.IncludePersonnel = true
	out.MaxPages = minInt(10, req.MaxPages+2)
	return out
}

// applyNotFound drops the domain hint and generates a name variant by
// stripping common legal-entity suffixes (Inc, LLC, Corp, Co, Company).
func applyNotFound(req model.Request) model.Request {
	out := req
	out.Domain = ""
	out.CompanyName = stripLegalSuffix(req.CompanyName)
	return out
}

func stripLegalSuffix(name string) string {
	trimmed := strings.TrimSpace(name)
	lower := strings.ToLower(trimmed)
	for _, suffix := range commonSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)])
		}
		// also handle a trailing period, e.g. "Acme Co."
		if strings.HasSuffix(lower, suffix+".") {
			return strings.TrimSpace(trimmed[:len(trimmed)-len(suffix)-1])
		}
	}
	return trimmed
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
