package discovery

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/sells-group/intel-engine/pkg/google"
	googlemocks "github.com/sells-group/intel-engine/pkg/google/mocks"
)

func TestGoogleProvider_MapsItemsToOrganicResults(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	client.On("Search", mock.Anything, "acme corp", google.SearchOptions{Country: "us", Language: "en", Start: 0}).
		Return(&google.SearchResponse{
			Items: []google.Item{
				{Title: "Acme Corp", Link: "https://acme.example", Snippet: "Widgets since 1947"},
				{Title: "Acme Corp - About", Link: "https://acme.example/about", Snippet: "Our story"},
			},
		}, nil)

	p := NewGoogleProvider(client)
	resp, err := p.Search(context.Background(), "acme corp", "us", "en", 0)

	assert.NoError(t, err)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, "https://acme.example", resp.OrganicResults[0].URL)
	assert.Equal(t, 1, resp.OrganicResults[0].Rank)
}

func TestGoogleProvider_PaginatesByResultsPerQuery(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	client.On("Search", mock.Anything, "acme corp", google.SearchOptions{Start: resultsPerQuery + 1}).
		Return(&google.SearchResponse{}, nil)

	p := NewGoogleProvider(client)
	_, err := p.Search(context.Background(), "acme corp", "", "", 1)

	assert.NoError(t, err)
}

func TestGoogleProvider_PropagatesClientError(t *testing.T) {
	client := googlemocks.NewMockClient(t)
	client.On("Search", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	p := NewGoogleProvider(client)
	_, err := p.Search(context.Background(), "acme corp", "", "", 0)

	assert.Error(t, err)
}
