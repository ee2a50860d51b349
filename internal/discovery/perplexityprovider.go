package discovery

import (
	"fmt"

	"context"

	"github.com/sells-group/intel-engine/pkg/perplexity"
)

// PerplexityProvider adapts pkg/perplexity's chat-completion endpoint to
// SearchProvider by asking a research question and treating the
// response's citations as organic results. Used as the tertiary
// discovery collaborator when both Google and Jina are unavailable.
type PerplexityProvider struct {
	client perplexity.Client
}

// NewPerplexityProvider wraps client as a SearchProvider.
func NewPerplexityProvider(client perplexity.Client) *PerplexityProvider {
	return &PerplexityProvider{client: client}
}

func (p *PerplexityProvider) Search(ctx context.Context, query, country, language string, page int) (SearchResponse, error) {
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Messages: []perplexity.Message{
			{Role: "user", Content: fmt.Sprintf("Find the official website and key sources for: %s", query)},
		},
	})
	if err != nil {
		return SearchResponse{}, err
	}

	var description string
	if len(resp.Choices) > 0 {
		description = resp.Choices[0].Message.Content
	}

	out := SearchResponse{Total: len(resp.Citations)}
	for i, citation := range resp.Citations {
		out.OrganicResults = append(out.OrganicResults, OrganicResult{
			Rank:        i + 1,
			Title:       query,
			URL:         citation,
			Description: description,
		})
	}
	return out, nil
}
