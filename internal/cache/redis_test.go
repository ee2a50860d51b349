package cache

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/model"
)

func TestRedisCache_SetGetRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), zap.NewNop())
	defer c.Close()
	require.False(t, c.Degraded())

	ctx := context.Background()
	key := CrawlKey("https://acme.com")
	require.NoError(t, c.Set(ctx, key, model.CacheTagCrawl, []byte("<html>")))

	got, ok := c.Get(ctx, key)
	require.True(t, ok)
	assert.Equal(t, "<html>", string(got))
}

func TestRedisCache_DegradesOnUnavailability(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	c := NewRedisCache(addr, zap.NewNop())
	defer c.Close()
	mr.Close() // simulate the backend disappearing

	ctx := context.Background()
	// The next call should detect the outage and flip to degraded rather
	// than propagate an error.
	_, ok := c.Get(ctx, CrawlKey("https://acme.com"))
	assert.False(t, ok)
	assert.True(t, c.Degraded())

	// Writes while degraded are best-effort no-ops, never errors.
	assert.NoError(t, c.Set(ctx, CrawlKey("https://acme.com"), model.CacheTagCrawl, []byte("x")))
}

func TestRedisCache_Invalidate(t *testing.T) {
	mr := miniredis.RunT(t)
	c := NewRedisCache(mr.Addr(), zap.NewNop())
	defer c.Close()
	ctx := context.Background()

	k1 := CompanyKey("Acme", "acme.com", model.ModeBasic)
	require.NoError(t, c.Set(ctx, k1, model.CacheTagCompany, []byte("a")))

	removed, err := c.Invalidate(ctx, "company:")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	_, ok := c.Get(ctx, k1)
	assert.False(t, ok)
}
