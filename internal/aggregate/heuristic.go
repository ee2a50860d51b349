package aggregate

import (
	"regexp"
	"strings"

	"github.com/sells-group/intel-engine/internal/model"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?\d[\d\-. ()]{7,}\d`)
	linkedInURL  = regexp.MustCompile(`https?://(?:www\.)?linkedin\.com/[^\s"'<>]+`)
	twitterURL   = regexp.MustCompile(`https?://(?:www\.)?(?:twitter|x)\.com/[^\s"'<>]+`)
	facebookURL  = regexp.MustCompile(`https?://(?:www\.)?facebook\.com/[^\s"'<>]+`)
	instagramURL = regexp.MustCompile(`https?://(?:www\.)?instagram\.com/[^\s"'<>]+`)
	youtubeURL   = regexp.MustCompile(`https?://(?:www\.)?youtube\.com/[^\s"'<>]+`)
)

// HeuristicParser is the default CompanyParser: pure regex/text-based
// extraction with no network I/O, matching spec.md §6.3's purity
// contract exactly.
type HeuristicParser struct{}

// NewHeuristicParser constructs the default parser.
func NewHeuristicParser() *HeuristicParser { return &HeuristicParser{} }

func (p *HeuristicParser) Parse(content, url, expectedName string) (Partial, error) {
	if len(strings.TrimSpace(content)) < model.MinContentBytes {
		return Partial{}, nil
	}

	record := model.CompanyRecord{
		Basic:      model.Basic{Name: expectedName},
		SourceURLs: []string{url},
	}

	emails := dedupeStrings(emailPattern.FindAllString(content, -1))
	phones := dedupeStrings(phonePattern.FindAllString(content, -1))
	record.Contact.Emails = emails
	record.Contact.Phones = phones

	record.Social = extractSocial(content)

	confidence := 0.1
	mentionsName := strings.Contains(strings.ToLower(content), strings.ToLower(expectedName))
	if mentionsName {
		confidence += 0.3
	}
	if len(emails) > 0 {
		confidence += 0.15
	}
	if len(phones) > 0 {
		confidence += 0.1
	}
	if len(record.Social) > 0 {
		confidence += 0.15
	}

	dataQuality := clip01(0.3 + 0.1*float64(len(emails)+len(phones)+len(record.Social)))
	completeness := clip01(float64(countNonEmpty(record)) / 6.0)

	return Partial{
		Record:          record,
		ParseConfidence: clip01(confidence),
		DataQuality:     dataQuality,
		Completeness:    completeness,
		SourceURL:       url,
	}, nil
}

func extractSocial(content string) []model.SocialProfile {
	var profiles []model.SocialProfile
	add := func(platform model.Platform, pattern *regexp.Regexp) {
		if m := pattern.FindString(content); m != "" {
			profiles = append(profiles, model.SocialProfile{Platform: platform, URL: m})
		}
	}
	add(model.PlatformLinkedIn, linkedInURL)
	add(model.PlatformTwitter, twitterURL)
	add(model.PlatformFacebook, facebookURL)
	add(model.PlatformInstagram, instagramURL)
	add(model.PlatformYouTube, youtubeURL)
	return profiles
}

func countNonEmpty(r model.CompanyRecord) int {
	n := 0
	if r.Basic.Name != "" {
		n++
	}
	if len(r.Contact.Emails) > 0 {
		n++
	}
	if len(r.Contact.Phones) > 0 {
		n++
	}
	if len(r.Social) > 0 {
		n++
	}
	if len(r.Personnel) > 0 {
		n++
	}
	if r.Financials.Revenue != "" {
		n++
	}
	return n
}

func dedupeStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
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
