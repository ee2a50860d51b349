package aggregate

import (
	"github.com/sells-group/intel-engine/internal/model"
)

// Stage runs the parse-then-merge aggregation pipeline over a set of
// fetched pages (spec.md §4.H).
type Stage struct {
	parser CompanyParser
}

// NewStage constructs an aggregation Stage around parser.
func NewStage(parser CompanyParser) *Stage {
	return &Stage{parser: parser}
}

// Run parses every succeeded page and merges the survivors into a single
// CompanyRecord. Returns (nil, false) iff no partial survives the
// MinParseConfidence floor (spec.md §4.H step 4). costUSD sums every
// surviving partial's CostUSD, zero unless the LLM-backed parser is in
// use — the pipeline reports it on ExtractionMetadata.CostUSD.
func (s *Stage) Run(pages []model.FetchedPage, expectedName string) (record *model.CompanyRecord, ok bool, costUSD float64) {
	var partials []Partial
	for _, page := range pages {
		if !page.Succeeded {
			continue
		}
		partial, err := s.parser.Parse(page.Content, page.URL, expectedName)
		if err != nil || partial.ParseConfidence <= MinParseConfidence {
			continue
		}
		partials = append(partials, partial)
		costUSD += partial.CostUSD
	}

	if len(partials) == 0 {
		return nil, false, costUSD
	}

	return Merge(partials, expectedName), true, costUSD
}

// Merge combines partials into one CompanyRecord using fill-if-missing
// for scalar basic fields and per-field merge rules for collections
// (spec.md §4.H step 2), then recomputes the three scores (step 3).
func Merge(partials []Partial, expectedName string) *model.CompanyRecord {
	base := highestConfidence(partials)

	out := model.CompanyRecord{
		Basic:      base.Record.Basic,
		Contact:    base.Record.Contact,
		Financials: base.Record.Financials,
	}
	if out.Basic.Name == "" {
		out.Basic.Name = expectedName
	}

	var allSocial []model.SocialProfile
	var allPersonnel []model.Person
	var allLocations []string
	sourceURLs := make([]string, 0, len(partials))

	for _, p := range partials {
		fillBasicIfMissing(&out.Basic, p.Record.Basic)
		fillContactIfMissing(&out.Contact, p.Record.Contact)
		allSocial = append(allSocial, p.Record.Social...)
		allPersonnel = append(allPersonnel, p.Record.Personnel...)
		allLocations = append(allLocations, p.Record.Contact.Locations...)
		sourceURLs = append(sourceURLs, p.SourceURL)
	}

	out.Social = model.DedupeSocial(allSocial)
	out.Personnel = model.DedupePersonnel(allPersonnel)
	out.Contact.Locations = model.ExcludeHeadquarters(dedupeLocationStrings(allLocations), out.Contact.Headquarters)
	out.SourceURLs = model.SortedSourceURLs(sourceURLs)
	out.SourceCount = len(partials)
	out.Scores = computeScores(partials)

	return &out
}

func highestConfidence(partials []Partial) Partial {
	best := partials[0]
	for _, p := range partials[1:] {
		if p.ParseConfidence > best.ParseConfidence {
			best = p
		}
	}
	return best
}

// fillBasicIfMissing fills each empty scalar field in dst from src,
// "first non-empty wins" semantics applied across the partials in
// encounter order (spec.md §4.H step 2: "fill-if-missing").
func fillBasicIfMissing(dst *model.Basic, src model.Basic) {
	if dst.Name == "" {
		dst.Name = src.Name
	}
	if dst.LegalName == "" {
		dst.LegalName = src.LegalName
	}
	if dst.Domain == "" {
		dst.Domain = src.Domain
	}
	if dst.Description == "" {
		dst.Description = src.Description
	}
	if dst.Industry == "" {
		dst.Industry = src.Industry
	}
	if dst.Sector == "" {
		dst.Sector = src.Sector
	}
	if dst.FoundedYear == 0 {
		dst.FoundedYear = src.FoundedYear
	}
	if dst.LogoURL == "" {
		dst.LogoURL = src.LogoURL
	}
}

// fillContactIfMissing applies "first non-empty wins" for each contact
// scalar (spec.md §4.H step 2). Emails and phones are taken whole from
// the first partial that has any; locations are merged separately as a
// collection by the caller.
func fillContactIfMissing(dst *model.Contact, src model.Contact) {
	if dst.Headquarters == "" {
		dst.Headquarters = src.Headquarters
	}
	if len(dst.Emails) == 0 {
		dst.Emails = src.Emails
	}
	if len(dst.Phones) == 0 {
		dst.Phones = src.Phones
	}
}

func dedupeLocationStrings(locations []string) []string {
	seen := make(map[string]struct{}, len(locations))
	out := make([]string, 0, len(locations))
	for _, l := range locations {
		if l == "" {
			continue
		}
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	return out
}

// computeScores recomputes confidence/data_quality/completeness from the
// surviving partials (spec.md §4.H step 3). data_quality and
// completeness use the literal "max across sources" the source text
// specifies; see DESIGN.md for the design tension this creates against
// weighting by confidence.
func computeScores(partials []Partial) model.Scores {
	var sumConfidence, maxDataQuality, maxCompleteness float64
	for _, p := range partials {
		sumConfidence += p.ParseConfidence
		if p.DataQuality > maxDataQuality {
			maxDataQuality = p.DataQuality
		}
		if p.Completeness > maxCompleteness {
			maxCompleteness = p.Completeness
		}
	}
	meanConfidence := sumConfidence / float64(len(partials))
	bonus := 0.1 * float64(len(partials)-1)
	if bonus > 0.3 {
		bonus = 0.3
	}

	return model.Scores{
		Confidence:   clip01(meanConfidence + bonus),
		DataQuality:  maxDataQuality,
		Completeness: maxCompleteness,
	}
}
