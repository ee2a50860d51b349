package discovery

import (
	"context"

	"github.com/sells-group/intel-engine/pkg/jina"
)

// JinaProvider adapts pkg/jina's Search endpoint to SearchProvider, the
// secondary discovery collaborator used when Google is circuit-open or
// exhausted.
type JinaProvider struct {
	client jina.Client
}

// NewJinaProvider wraps client as a SearchProvider.
func NewJinaProvider(client jina.Client) *JinaProvider {
	return &JinaProvider{client: client}
}

func (p *JinaProvider) Search(ctx context.Context, query, country, language string, page int) (SearchResponse, error) {
	resp, err := p.client.Search(ctx, query)
	if err != nil {
		return SearchResponse{}, err
	}

	// Jina returns 422 as Code on no-results rather than an error.
	if resp.Code == 422 {
		return SearchResponse{}, nil
	}

	out := SearchResponse{Total: len(resp.Data)}
	for i, result := range resp.Data {
		out.OrganicResults = append(out.OrganicResults, OrganicResult{
			Rank:        i + 1,
			Title:       result.Title,
			URL:         result.URL,
			Description: result.Description,
		})
	}
	return out, nil
}
