package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, "test-cx", r.URL.Query().Get("cx"))
		assert.Equal(t, "Acme Corp", r.URL.Query().Get("q"))
		assert.Equal(t, "us", r.URL.Query().Get("gl"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{
			Items: []Item{
				{Title: "Acme Corp - Home", Link: "https://acme.com", Snippet: "Acme Corp builds widgets."},
			},
		})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-cx", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "Acme Corp", SearchOptions{Country: "us"})

	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "https://acme.com", resp.Items[0].Link)
}

func TestSearch_NoResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{Items: nil})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-cx", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "Nonexistent Corp", SearchOptions{})

	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestSearch_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error": "invalid API key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	client := NewClient("bad-key", "test-cx", WithBaseURL(srv.URL))
	resp, err := client.Search(context.Background(), "test query", SearchOptions{})

	assert.Error(t, err)
	assert.Nil(t, resp)
	assert.Contains(t, err.Error(), "403")
}

func TestSearch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient("test-key", "test-cx", WithBaseURL(srv.URL))
	resp, err := client.Search(ctx, "test", SearchOptions{})

	assert.Error(t, err)
	assert.Nil(t, resp)
}

func TestSearch_PaginationStartParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "11", r.URL.Query().Get("start"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(SearchResponse{})
	}))
	defer srv.Close()

	client := NewClient("test-key", "test-cx", WithBaseURL(srv.URL))
	_, err := client.Search(context.Background(), "q", SearchOptions{Start: 11})
	require.NoError(t, err)
}
