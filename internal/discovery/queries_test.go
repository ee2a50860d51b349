package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-engine/internal/model"
)

func mustRequest(t *testing.T, p model.RequestParams) model.Request {
	t.Helper()
	req, err := model.NewRequest(p)
	require.NoError(t, err)
	return req
}

// TestBuildQueries_Deterministic exercises spec.md property P1: the same
// request always yields the same query set, in the same order.
func TestBuildQueries_Deterministic(t *testing.T) {
	req := mustRequest(t, model.RequestParams{CompanyName: "Acme", Domain: "acme.com", Mode: model.ModeComprehensive})
	first := BuildQueries(req)
	second := BuildQueries(req)
	assert.Equal(t, first, second)
}

func TestBuildQueries_CapsAtThree(t *testing.T) {
	req := mustRequest(t, model.RequestParams{CompanyName: "Acme", Domain: "acme.com", Mode: model.ModeComprehensive})
	queries := BuildQueries(req)
	assert.LessOrEqual(t, len(queries), maxQueries)
}

func TestBuildQueries_AlwaysIncludesBaseQuery(t *testing.T) {
	req := mustRequest(t, model.RequestParams{CompanyName: "Acme"})
	queries := BuildQueries(req)
	require.NotEmpty(t, queries)
	assert.Contains(t, queries[0], "Acme")
}

func TestBuildQueries_DomainAddsSiteQuery(t *testing.T) {
	withDomain := mustRequest(t, model.RequestParams{CompanyName: "Acme", Domain: "acme.com"})
	withoutDomain := mustRequest(t, model.RequestParams{CompanyName: "Acme"})

	assert.Greater(t, len(BuildQueries(withDomain)), len(BuildQueries(withoutDomain)))
}

func TestBuildQueries_ContactFocusedAddsContactQueries(t *testing.T) {
	req := mustRequest(t, model.RequestParams{CompanyName: "Acme", Mode: model.ModeContactFocused})
	queries := BuildQueries(req)
	joined := ""
	for _, q := range queries {
		joined += q + " "
	}
	assert.Contains(t, joined, "contact information")
}
