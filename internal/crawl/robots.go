package crawl

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// robotsRules is one host's parsed robots.txt: the wildcard user-agent's
// Allow/Disallow prefixes (Allow wins on a tie, same precedence rule
// urllib.robotparser applies), its declared Crawl-delay, and any
// Sitemap directives. Grounded on original_source/'s
// app/utils/robots_compliance.py:_parse_robots_txt, which reads the
// same four directives out of a robots.txt body.
type robotsRules struct {
	allows     []string
	disallows  []string
	crawlDelay time.Duration
	sitemaps   []string
}

// HTTPRobotsChecker fetches and caches each host's robots.txt, enforcing
// the wildcard "User-agent: *" block's Allow/Disallow directives (Allow
// taking precedence when it matches at least as specifically as a
// Disallow), and surfaces the block's Crawl-delay and Sitemap
// directives for the crawl stage to use for per-host politeness. It is
// not a full RFC 9309 parser (no named user-agent sections, no wildcard
// path matching) — original_source/'s own RobotsComplianceManager is
// itself scoped to the wildcard block, since the extractor has no
// fixed identity to match a named user-agent section against.
// Falls open (allowed) on any fetch or parse failure.
type HTTPRobotsChecker struct {
	client *http.Client

	mu    sync.Mutex
	rules map[string]robotsRules
}

// NewHTTPRobotsChecker constructs a checker using client, or
// http.DefaultClient if nil.
func NewHTTPRobotsChecker(client *http.Client) *HTTPRobotsChecker {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPRobotsChecker{client: client, rules: make(map[string]robotsRules)}
}

func (c *HTTPRobotsChecker) Allowed(ctx context.Context, rawURL string) bool {
	rules := c.rulesFor(ctx, rawURL)
	path := pathOf(rawURL)

	allowMatch := longestMatch(rules.allows, path)
	disallowMatch := longestMatch(rules.disallows, path)
	if disallowMatch < 0 {
		return true
	}
	return allowMatch >= disallowMatch
}

// CrawlDelay returns the host's declared Crawl-delay, or 0 if it
// declared none (or its robots.txt hasn't been fetched yet).
func (c *HTTPRobotsChecker) CrawlDelay(ctx context.Context, rawURL string) time.Duration {
	return c.rulesFor(ctx, rawURL).crawlDelay
}

// Sitemaps returns the host's declared Sitemap URLs, if any.
func (c *HTTPRobotsChecker) Sitemaps(ctx context.Context, rawURL string) []string {
	return c.rulesFor(ctx, rawURL).sitemaps
}

func (c *HTTPRobotsChecker) rulesFor(ctx context.Context, rawURL string) robotsRules {
	host := HostOf(rawURL)
	if host == "" {
		return robotsRules{}
	}

	rules, ok := c.cachedRules(host)
	if !ok {
		rules = c.fetchRules(ctx, host)
		c.mu.Lock()
		c.rules[host] = rules
		c.mu.Unlock()
	}
	return rules
}

// longestMatch returns the length of the longest prefix in prefixes
// that matches path, or -1 if none match. Longest-prefix-wins is how
// urllib.robotparser breaks an Allow/Disallow tie.
func longestMatch(prefixes []string, path string) int {
	best := -1
	for _, prefix := range prefixes {
		if prefix == "" {
			continue
		}
		if strings.HasPrefix(path, prefix) && len(prefix) > best {
			best = len(prefix)
		}
	}
	return best
}

func (c *HTTPRobotsChecker) cachedRules(host string) (robotsRules, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rules, ok := c.rules[host]
	return rules, ok
}

func (c *HTTPRobotsChecker) fetchRules(ctx context.Context, host string) robotsRules {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://"+host+"/robots.txt", nil)
	if err != nil {
		return robotsRules{}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return robotsRules{}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return robotsRules{}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return robotsRules{}
	}
	return parseRobotsRules(string(body))
}

// parseRobotsRules extracts Allow/Disallow/Crawl-delay for the
// wildcard "User-agent: *" block, plus every Sitemap directive (which
// applies regardless of which user-agent block it appears under, per
// the Sitemap extension to robots.txt — app/utils/robots_compliance.py's
// get_sitemaps collects it the same way).
func parseRobotsRules(body string) robotsRules {
	var rules robotsRules
	inWildcardBlock := false
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch key {
		case "user-agent":
			inWildcardBlock = value == "*"
		case "disallow":
			if inWildcardBlock {
				rules.disallows = append(rules.disallows, value)
			}
		case "allow":
			if inWildcardBlock {
				rules.allows = append(rules.allows, value)
			}
		case "crawl-delay":
			if inWildcardBlock {
				if secs, err := strconv.ParseFloat(value, 64); err == nil {
					rules.crawlDelay = time.Duration(secs * float64(time.Second))
				}
			}
		case "sitemap":
			if value != "" {
				rules.sitemaps = append(rules.sitemaps, value)
			}
		}
	}
	return rules
}

func pathOf(rawURL string) string {
	idx := strings.Index(rawURL, "://")
	if idx < 0 {
		return rawURL
	}
	rest := rawURL[idx+3:]
	slash := strings.IndexByte(rest, '/')
	if slash < 0 {
		return "/"
	}
	return rest[slash:]
}
