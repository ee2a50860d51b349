package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/pkg/anthropic"
)

// llmParseTimeout bounds the detached context each Parse call opens for
// its own network round trip, since CompanyParser.Parse carries no
// context parameter of its own (spec.md §6.3's pure, I/O-free contract
// is the norm; LLMParser is the one documented exception, traded for
// extraction quality on pages the regex-based HeuristicParser can't
// untangle).
const llmParseTimeout = 30 * time.Second

// maxLLMContentChars caps how much of a page's cleaned text is sent to
// the model per call, to keep cost and latency bounded.
const maxLLMContentChars = 12000

const llmSystemPrompt = `You extract structured company information from a web page's text. Respond with a single JSON object and nothing else, matching this shape:
{
  "legal_name": string, "domain": string, "description": string, "industry": string,
  "sector": "technology"|"finance"|"healthcare"|"retail"|"manufacturing"|"education"|"consulting"|"real_estate"|"media"|"energy"|"other",
  "founded_year": number, "logo_url": string,
  "emails": [string], "phones": [string], "headquarters": string, "locations": [string],
  "social": [{"platform": "linkedin"|"twitter"|"facebook"|"instagram"|"youtube"|"github"|"crunchbase", "url": string, "handle": string}],
  "revenue": string, "employee_count": string, "company_size": "startup"|"small"|"medium"|"large"|"enterprise", "funding_total": string, "funding_rounds": number,
  "valuation": string, "stock_ticker": string, "parent_company": string, "subsidiaries": [string],
  "personnel": [{"name": string, "title": string, "linkedin_url": string}],
  "confidence": number
}
Omit fields you cannot find rather than guessing; leave strings empty and arrays absent. confidence is your own estimate in [0, 1] of how much of this page was genuinely about the named company.`

// LLMParser is an optional CompanyParser backed by the Anthropic
// Messages API, for pages whose structure defeats regex extraction.
// Grounded on pkg/anthropic's Client plus the same JSON-contract-over-
// the-wire idiom the teacher uses for its own LLM-assisted enrichment.
type LLMParser struct {
	client anthropic.Client
	model  string
}

// NewLLMParser constructs an LLMParser that calls modelID through client.
func NewLLMParser(client anthropic.Client, modelID string) *LLMParser {
	return &LLMParser{client: client, model: modelID}
}

func (p *LLMParser) Parse(content, url, expectedName string) (Partial, error) {
	if len(strings.TrimSpace(content)) < model.MinContentBytes {
		return Partial{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), llmParseTimeout)
	defer cancel()

	truncated := content
	if len(truncated) > maxLLMContentChars {
		truncated = truncated[:maxLLMContentChars]
	}

	req := anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: 1536,
		System:    []anthropic.SystemBlock{{Text: llmSystemPrompt}},
		Messages: []anthropic.Message{{
			Role:    "user",
			Content: fmt.Sprintf("Company: %s\nSource URL: %s\n\n%s", expectedName, url, truncated),
		}},
	}

	resp, err := p.client.CreateMessage(ctx, req)
	if err != nil {
		return Partial{}, eris.Wrap(err, fmt.Sprintf("llm parser: create message for %s", url))
	}

	text := firstText(resp.Content)
	if text == "" {
		return Partial{}, nil
	}

	var parsed llmExtraction
	if err := json.Unmarshal([]byte(extractJSONObject(text)), &parsed); err != nil {
		return Partial{}, eris.Wrap(err, fmt.Sprintf("llm parser: decode response for %s", url))
	}

	record := parsed.toRecord(expectedName, url)
	confidence := parsed.Confidence
	if confidence <= 0 {
		confidence = 0.5
	}
	resp.Usage.LogCost(p.model, "aggregate")
	return Partial{
		Record:          record,
		ParseConfidence: confidence,
		SourceURL:       url,
		CostUSD:         resp.Usage.EstimateCost(p.model),
	}, nil
}

func firstText(blocks []anthropic.ContentBlock) string {
	for _, b := range blocks {
		if b.Type == "text" && b.Text != "" {
			return b.Text
		}
	}
	return ""
}

// extractJSONObject trims any leading/trailing prose the model added
// around the JSON object despite instructions not to.
func extractJSONObject(text string) string {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < 0 || end < start {
		return text
	}
	return text[start : end+1]
}

type llmSocialEntry struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
	Handle   string `json:"handle"`
}

type llmPersonEntry struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	LinkedInURL string `json:"linkedin_url"`
}

type llmExtraction struct {
	LegalName     string           `json:"legal_name"`
	Domain        string           `json:"domain"`
	Description   string           `json:"description"`
	Industry      string           `json:"industry"`
	Sector        string           `json:"sector"`
	FoundedYear   int              `json:"founded_year"`
	LogoURL       string           `json:"logo_url"`
	Emails        []string         `json:"emails"`
	Phones        []string         `json:"phones"`
	Headquarters  string           `json:"headquarters"`
	Locations     []string         `json:"locations"`
	Social        []llmSocialEntry `json:"social"`
	Revenue       string           `json:"revenue"`
	EmployeeCount string           `json:"employee_count"`
	CompanySize   string           `json:"company_size"`
	FundingTotal  string           `json:"funding_total"`
	FundingRounds int              `json:"funding_rounds"`
	Valuation     string           `json:"valuation"`
	StockTicker   string           `json:"stock_ticker"`
	ParentCompany string           `json:"parent_company"`
	Subsidiaries  []string         `json:"subsidiaries"`
	Personnel     []llmPersonEntry `json:"personnel"`
	Confidence    float64          `json:"confidence"`
}

func (e llmExtraction) toRecord(expectedName, url string) model.CompanyRecord {
	social := make([]model.SocialProfile, 0, len(e.Social))
	for _, s := range e.Social {
		if s.URL == "" {
			continue
		}
		social = append(social, model.SocialProfile{
			Platform: model.Platform(strings.ToLower(s.Platform)),
			URL:      s.URL,
			Handle:   s.Handle,
		})
	}

	personnel := make([]model.Person, 0, len(e.Personnel))
	for _, p := range e.Personnel {
		if p.Name == "" {
			continue
		}
		personnel = append(personnel, model.Person{
			Name:        p.Name,
			Title:       p.Title,
			LinkedInURL: p.LinkedInURL,
			Source:      url,
		})
	}

	return model.CompanyRecord{
		Basic: model.Basic{
			Name:        expectedName,
			LegalName:   e.LegalName,
			Domain:      e.Domain,
			Description: e.Description,
			Industry:    e.Industry,
			Sector:      model.ParseCompanySector(e.Sector),
			FoundedYear: e.FoundedYear,
			LogoURL:     e.LogoURL,
		},
		Contact: model.Contact{
			Emails:       e.Emails,
			Phones:       e.Phones,
			Headquarters: e.Headquarters,
			Locations:    model.ExcludeHeadquarters(e.Locations, e.Headquarters),
		},
		Social: social,
		Financials: model.Financials{
			Revenue:       e.Revenue,
			EmployeeCount: e.EmployeeCount,
			CompanySize:   model.ParseCompanySize(e.CompanySize),
			FundingTotal:  e.FundingTotal,
			FundingRounds: e.FundingRounds,
			Valuation:     e.Valuation,
			StockTicker:   e.StockTicker,
			ParentCompany: e.ParentCompany,
			Subsidiaries:  e.Subsidiaries,
		},
		Personnel:  personnel,
		SourceURLs: []string{url},
	}
}
