package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/intel-engine/internal/model"
)

func TestMemoryCache_SetGetRoundTrip(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	ctx := context.Background()

	key := CompanyKey("Acme", "acme.com", model.ModeBasic)
	require.NoError(t, c.Set(ctx, key, model.CacheTagCompany, []byte(`{"name":"Acme"}`)))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, `{"name":"Acme"}`, string(got))
}

func TestMemoryCache_MissOnUnknownKey(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()

	_, ok := c.Get(context.Background(), "company:nope")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

// TestMemoryCache_ExpiryRoundTrip exercises spec.md property P4: a value
// written with a TTL is readable before expiry and absent after.
func TestMemoryCache_ExpiryRoundTrip(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	fixed := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return fixed }
	c.ttls[model.CacheTagSERP] = 50 * time.Millisecond

	ctx := context.Background()
	key := SERPKey("acme", "us", "en", 1)
	require.NoError(t, c.Set(ctx, key, model.CacheTagSERP, []byte("results")))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "results", string(got))

	c.now = func() time.Time { return fixed.Add(51 * time.Millisecond) }
	_, ok = c.Get(ctx, key)
	assert.False(t, ok)
}

func TestMemoryCache_Invalidate(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	ctx := context.Background()

	k1 := CompanyKey("Acme", "acme.com", model.ModeBasic)
	k2 := CrawlKey("https://acme.com")
	require.NoError(t, c.Set(ctx, k1, model.CacheTagCompany, []byte("a")))
	require.NoError(t, c.Set(ctx, k2, model.CacheTagCrawl, []byte("b")))

	removed, err := c.Invalidate(ctx, "company:")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := c.Get(ctx, k1)
	assert.False(t, ok)
	_, ok = c.Get(ctx, k2)
	assert.True(t, ok)
}

func TestMemoryCache_HitRate(t *testing.T) {
	c := NewMemoryCache(0)
	defer c.Close()
	ctx := context.Background()
	key := CompanyKey("Acme", "", model.ModeBasic)
	require.NoError(t, c.Set(ctx, key, model.CacheTagCompany, []byte("v")))

	_, _ = c.Get(ctx, key)
	_, _ = c.Get(ctx, "company:missing")

	assert.InDelta(t, 0.5, c.Stats().HitRate(), 0.0001)
}

func TestKey_NormalizesCaseAndWhitespace(t *testing.T) {
	a := Key(model.CacheTagSERP, " Acme ", "US")
	b := Key(model.CacheTagSERP, "acme", "us")
	assert.Equal(t, a, b)
}
