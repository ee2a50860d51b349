package main

import (
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/pkg/firecrawl"
)

var (
	sitemapURL      string
	sitemapURLs     []string
	sitemapMaxDepth        int
	sitemapLimit           int
	sitemapOnlyMainContent bool
)

// sitemapCmd drives Firecrawl's site-crawl and batch-scrape endpoints
// directly, outside the per-company pipeline: an operator warming the
// cache ahead of a batch run, or mapping a company's site structure
// before deciding which pages are worth a full extraction pass, doesn't
// need discovery/aggregation — just the raw page set.
var sitemapCmd = &cobra.Command{
	Use:   "sitemap",
	Short: "Crawl or batch-scrape a site via Firecrawl outside the extraction pipeline",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.Firecrawl == nil {
			return eris.New("sitemap requires firecrawl.key to be configured")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")

		if len(sitemapURLs) > 0 {
			resp, err := e.Firecrawl.BatchScrape(ctx, firecrawl.BatchScrapeRequest{
				URLs:            sitemapURLs,
				Formats:         []string{"markdown"},
				OnlyMainContent: sitemapOnlyMainContent,
			})
			if err != nil {
				return eris.Wrap(err, "firecrawl: start batch scrape")
			}
			zap.L().Info("sitemap: batch scrape started", zap.String("id", resp.ID), zap.Int("urls", len(sitemapURLs)))

			status, err := firecrawl.PollBatchScrape(ctx, e.Firecrawl, resp.ID)
			if err != nil {
				return eris.Wrap(err, "firecrawl: poll batch scrape")
			}
			return enc.Encode(status)
		}

		if strings.TrimSpace(sitemapURL) == "" {
			return eris.New("sitemap requires --url or --urls")
		}

		resp, err := e.Firecrawl.Crawl(ctx, firecrawl.CrawlRequest{
			URL:             sitemapURL,
			MaxDepth:        sitemapMaxDepth,
			Limit:           sitemapLimit,
			OnlyMainContent: sitemapOnlyMainContent,
		})
		if err != nil {
			return eris.Wrap(err, "firecrawl: start crawl")
		}
		zap.L().Info("sitemap: site crawl started", zap.String("id", resp.ID), zap.String("url", sitemapURL))

		status, err := firecrawl.PollCrawl(ctx, e.Firecrawl, resp.ID)
		if err != nil {
			return eris.Wrap(err, "firecrawl: poll crawl")
		}
		return enc.Encode(status)
	},
}

func init() {
	sitemapCmd.Flags().StringVar(&sitemapURL, "url", "", "root URL to crawl site-wide via Firecrawl")
	sitemapCmd.Flags().StringSliceVar(&sitemapURLs, "urls", nil, "comma-separated URLs to batch-scrape instead of a site crawl")
	sitemapCmd.Flags().IntVar(&sitemapMaxDepth, "max-depth", 2, "maximum link depth for a site crawl")
	sitemapCmd.Flags().IntVar(&sitemapLimit, "limit", 50, "maximum pages for a site crawl")
	sitemapCmd.Flags().BoolVar(&sitemapOnlyMainContent, "only-main-content", true, "strip navigation/footer boilerplate from returned pages")
	rootCmd.AddCommand(sitemapCmd)
}
