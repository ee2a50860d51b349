// Package cache implements the engine's tiered, fingerprinted result
// cache (spec.md §4.D): a required in-memory tier and an optional
// network-backed tier that degrades to all-misses on unavailability.
package cache

import (
	"context"
	"crypto/md5" //nolint:gosec // fingerprinting, not a security boundary
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/sells-group/intel-engine/internal/model"
)

// Cache is the abstract store both tiers implement.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, tag model.CacheTag, value []byte) error
	Invalidate(ctx context.Context, pattern string) (int, error)
	Stats() Stats
}

// Stats is the hit/miss view exposed per spec.md §4.D.
type Stats struct {
	Hits   int64
	Misses int64
}

// HitRate returns hits/(hits+misses), or 0 when no calls have been made.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// Key builds a fingerprinted cache key "{tag}:{md5(normalized_inputs)}"
// from the tag-specific normalized parts, joined by "|" and lowercased
// per spec.md §4.D.
func Key(tag model.CacheTag, parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = strings.ToLower(strings.TrimSpace(p))
	}
	joined := strings.Join(normalized, "|")
	sum := md5.Sum([]byte(joined)) //nolint:gosec
	return string(tag) + ":" + hex.EncodeToString(sum[:])
}

// SERPKey builds the cache key for a search-result-page lookup.
func SERPKey(query, country, language string, page int) string {
	return Key(model.CacheTagSERP, query, country, language, strconv.Itoa(page))
}

// CrawlKey builds the cache key for a single-URL crawl result.
func CrawlKey(url string) string {
	return Key(model.CacheTagCrawl, url)
}

// CompanyKey builds the cache key for an aggregated company record.
func CompanyKey(name, domain string, mode model.ExtractionMode) string {
	return Key(model.CacheTagCompany, name, domain, string(mode))
}

// BatchKey builds the cache key for a batch-level cached artifact.
func BatchKey(batchID string) string {
	return Key(model.CacheTagBatch, batchID)
}
