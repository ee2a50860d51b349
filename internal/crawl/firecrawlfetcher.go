package crawl

import (
	"context"
	"net/http"
	"time"

	"github.com/sells-group/intel-engine/pkg/firecrawl"
)

// FirecrawlFetcher adapts pkg/firecrawl's single-page Scrape endpoint to
// PageFetcher, the fallback crawl collaborator used when the primary
// fetcher's circuit is open.
type FirecrawlFetcher struct {
	client firecrawl.Client
}

// NewFirecrawlFetcher wraps client as a PageFetcher.
func NewFirecrawlFetcher(client firecrawl.Client) *FirecrawlFetcher {
	return &FirecrawlFetcher{client: client}
}

func (f *FirecrawlFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (FetchResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{URL: url, Formats: []string{"markdown"}, OnlyMainContent: true})
	elapsed := time.Since(start)
	if err != nil {
		statusCode := 0
		if apiErr, ok := err.(*firecrawl.APIError); ok {
			statusCode = apiErr.StatusCode
		}
		if statusCode == 0 {
			statusCode = http.StatusBadGateway
		}
		return FetchResult{Success: false, StatusCode: statusCode, ElapsedMS: elapsed.Milliseconds(), Error: err.Error()}, err
	}

	statusCode := resp.Data.StatusCode
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	return FetchResult{
		Success:     resp.Success,
		Title:       resp.Data.Title,
		CleanedText: resp.Data.Markdown,
		Markdown:    resp.Data.Markdown,
		StatusCode:  statusCode,
		ElapsedMS:   elapsed.Milliseconds(),
	}, nil
}
