package discovery

import (
	"context"

	"github.com/sells-group/intel-engine/pkg/google"
)

// GoogleProvider adapts pkg/google's Custom Search client to
// SearchProvider, the engine's primary discovery collaborator.
type GoogleProvider struct {
	client google.Client
}

// NewGoogleProvider wraps client as a SearchProvider.
func NewGoogleProvider(client google.Client) *GoogleProvider {
	return &GoogleProvider{client: client}
}

func (p *GoogleProvider) Search(ctx context.Context, query, country, language string, page int) (SearchResponse, error) {
	start := 0
	if page > 0 {
		start = page*resultsPerQuery + 1
	}

	resp, err := p.client.Search(ctx, query, google.SearchOptions{
		Country:  country,
		Language: language,
		Start:    start,
	})
	if err != nil {
		return SearchResponse{}, err
	}

	out := SearchResponse{Total: len(resp.Items)}
	for i, item := range resp.Items {
		out.OrganicResults = append(out.OrganicResults, OrganicResult{
			Rank:        i + 1,
			Title:       item.Title,
			URL:         item.Link,
			Description: item.Snippet,
		})
	}
	return out, nil
}
