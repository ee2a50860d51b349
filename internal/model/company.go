package model

import (
	"sort"
	"strings"
)

// Platform enumerates the closed set of social networks the aggregator
// recognizes (spec.md §3).
type Platform string

const (
	PlatformLinkedIn   Platform = "linkedin"
	PlatformTwitter    Platform = "twitter"
	PlatformFacebook   Platform = "facebook"
	PlatformInstagram  Platform = "instagram"
	PlatformYouTube    Platform = "youtube"
	PlatformGitHub     Platform = "github"
	PlatformTikTok     Platform = "tiktok"
	PlatformCrunchbase Platform = "crunchbase"
)

// CompanySize buckets a company's headcount into the same coarse
// categories a sales-intelligence reader expects (spec.md §3
// supplemental field; no numeric band is specified anywhere in this
// domain's source material, so the category is asserted by a source —
// typically the LLM-backed parser reading a page's own "about" copy —
// rather than computed from EmployeeCount here).
type CompanySize string

const (
	CompanySizeStartup    CompanySize = "startup"
	CompanySizeSmall      CompanySize = "small"
	CompanySizeMedium     CompanySize = "medium"
	CompanySizeLarge      CompanySize = "large"
	CompanySizeEnterprise CompanySize = "enterprise"
	CompanySizeUnknown    CompanySize = "unknown"
)

// ParseCompanySize normalizes a free-text size category from a source,
// falling back to CompanySizeUnknown for anything it doesn't recognize
// rather than rejecting the whole record over one bad field.
func ParseCompanySize(s string) CompanySize {
	switch CompanySize(strings.ToLower(strings.TrimSpace(s))) {
	case CompanySizeStartup, CompanySizeSmall, CompanySizeMedium, CompanySizeLarge, CompanySizeEnterprise:
		return CompanySize(strings.ToLower(strings.TrimSpace(s)))
	default:
		return CompanySizeUnknown
	}
}

// CompanySector buckets Basic.Industry's free text into the closed set of
// business sectors a filterable company database needs (spec.md §3
// supplemental field). Like CompanySize, nothing in this domain's source
// material derives it algorithmically from Industry text, so it is left
// unset unless a source asserts it directly; ParseCompanySector exists for
// callers (the LLM parser) that do.
type CompanySector string

const (
	SectorTechnology    CompanySector = "technology"
	SectorFinance       CompanySector = "finance"
	SectorHealthcare    CompanySector = "healthcare"
	SectorRetail        CompanySector = "retail"
	SectorManufacturing CompanySector = "manufacturing"
	SectorEducation     CompanySector = "education"
	SectorConsulting    CompanySector = "consulting"
	SectorRealEstate    CompanySector = "real_estate"
	SectorMedia         CompanySector = "media"
	SectorEnergy        CompanySector = "energy"
	SectorOther         CompanySector = "other"
)

// ParseCompanySector normalizes a free-text sector from a source, falling
// back to SectorOther for anything it doesn't recognize rather than an
// empty CompanySector (which means "no source offered one" elsewhere).
func ParseCompanySector(s string) CompanySector {
	switch CompanySector(strings.ToLower(strings.TrimSpace(s))) {
	case SectorTechnology, SectorFinance, SectorHealthcare, SectorRetail, SectorManufacturing,
		SectorEducation, SectorConsulting, SectorRealEstate, SectorMedia, SectorEnergy:
		return CompanySector(strings.ToLower(strings.TrimSpace(s)))
	case "":
		return ""
	default:
		return SectorOther
	}
}

// Basic holds the company's identity fields. Name is the only field an
// aggregated CompanyRecord may never be empty on (spec.md §3 invariant).
type Basic struct {
	Name        string
	LegalName   string
	Domain      string
	Description string
	Industry    string
	Sector      CompanySector // closed-set bucket of Industry, empty unless a source asserted one
	FoundedYear int
	LogoURL     string
}

// Contact holds direct contact channels and office locations.
type Contact struct {
	Emails       []string
	Phones       []string
	Headquarters string
	Locations    []string // never includes Headquarters (spec.md §3 invariant)
}

// SocialProfile is a single deduplicated social presence.
type SocialProfile struct {
	Platform Platform
	URL      string
	Verified bool
	Handle   string
}

// Financials holds business/financial signals.
type Financials struct {
	Revenue       string
	EmployeeCount string
	CompanySize   CompanySize // coarse headcount bucket, CompanySizeUnknown unless a source asserted it
	FundingTotal  string
	FundingRounds int
	Valuation     string
	StockTicker   string
	ParentCompany string
	Subsidiaries  []string
}

// Person is a single deduplicated personnel entry.
type Person struct {
	Name       string
	Title      string
	LinkedInURL string
	Source     string
}

// Scores holds the three metrics the aggregator always computes itself;
// no source is trusted to supply them directly (spec.md §3 invariant).
type Scores struct {
	Confidence   float64 // in [0, 1]
	DataQuality  float64 // in [0, 1]
	Completeness float64 // in [0, 1]
}

// CompanyRecord is the aggregated, deduplicated result of a single
// extraction request (spec.md §4.H output).
type CompanyRecord struct {
	Basic       Basic
	Contact     Contact
	Social      []SocialProfile
	Financials  Financials
	Personnel   []Person
	Scores      Scores
	SourceCount int
	SourceURLs  []string
}

// Validate checks that the record has a non-empty name. It does not
// re-check the other invariants (deduplicated social profiles and
// personnel, headquarters excluded from Locations); Merge establishes
// those when it builds the record.
func (c *CompanyRecord) Validate() error {
	if strings.TrimSpace(c.Basic.Name) == "" {
		return NewValidationError("company record: basic.name must not be empty")
	}
	return nil
}

// DedupeSocial collapses profiles by platform, keeping the verified entry
// over an unverified one when both exist for the same platform (spec.md §3
// invariant). Order of the first occurrence per platform is preserved.
func DedupeSocial(profiles []SocialProfile) []SocialProfile {
	byPlatform := make(map[Platform]SocialProfile, len(profiles))
	order := make([]Platform, 0, len(profiles))
	for _, p := range profiles {
		existing, seen := byPlatform[p.Platform]
		if !seen {
			byPlatform[p.Platform] = p
			order = append(order, p.Platform)
			continue
		}
		if p.Verified && !existing.Verified {
			byPlatform[p.Platform] = p
		}
	}
	out := make([]SocialProfile, 0, len(order))
	for _, plat := range order {
		out = append(out, byPlatform[plat])
	}
	return out
}

// DedupePersonnel collapses entries by lowercased name, keeping the first
// entry for each name and filling its empty Title and LinkedInURL from
// later duplicates (spec.md §3 invariant).
func DedupePersonnel(people []Person) []Person {
	byName := make(map[string]Person, len(people))
	order := make([]string, 0, len(people))
	for _, p := range people {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			continue
		}
		existing, seen := byName[key]
		if !seen {
			byName[key] = p
			order = append(order, key)
			continue
		}
		if existing.Title == "" && p.Title != "" {
			existing.Title = p.Title
		}
		if existing.LinkedInURL == "" && p.LinkedInURL != "" {
			existing.LinkedInURL = p.LinkedInURL
		}
		byName[key] = existing
	}
	out := make([]Person, 0, len(order))
	for _, key := range order {
		out = append(out, byName[key])
	}
	return out
}

// ExcludeHeadquarters removes any location string equal to hq
// (case-insensitive) from locations, preserving order.
func ExcludeHeadquarters(locations []string, hq string) []string {
	if hq == "" {
		return locations
	}
	hqKey := strings.ToLower(strings.TrimSpace(hq))
	out := make([]string, 0, len(locations))
	for _, loc := range locations {
		if strings.ToLower(strings.TrimSpace(loc)) == hqKey {
			continue
		}
		out = append(out, loc)
	}
	return out
}

// SortedSourceURLs returns a copy of urls deduplicated and sorted, used so
// CompanyRecord.SourceURLs is deterministic across merges of the same set.
func SortedSourceURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}
