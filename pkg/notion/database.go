package notion

import (
	"context"
	"time"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"
)

// QueryAll fetches all pages from a Notion database, handling pagination and
// respecting the 3 req/s rate limit via a 334ms ticker.
// Each following page is requested from a goroutine started as soon as the
// current page's results are appended. Every request, prefetched or not,
// waits for its own ticker tick, so requests stay at least 334ms apart.
func QueryAll(ctx context.Context, c Client, dbID string, filter *notionapi.DatabaseQueryRequest) ([]notionapi.Page, error) {
	var all []notionapi.Page

	// Notion rate limit: 3 requests per second -> 334ms between requests.
	ticker := time.NewTicker(334 * time.Millisecond)
	defer ticker.Stop()

	req := &notionapi.DatabaseQueryRequest{}
	if filter != nil {
		req.Filter = filter.Filter
		req.Sorts = filter.Sorts
		req.PageSize = filter.PageSize
	}

	// Prefetch state: holds the result of a prefetched next page.
	type prefetchResult struct {
		resp *notionapi.DatabaseQueryResponse
		err  error
	}
	var prefetchCh <-chan prefetchResult

	for {
		var resp *notionapi.DatabaseQueryResponse
		var err error

		if prefetchCh != nil {
			// We already have a prefetched result pending.
			result := <-prefetchCh
			resp, err = result.resp, result.err
		} else {
			// First request or no prefetch available: wait for rate limit.
			select {
			case <-ctx.Done():
				return nil, eris.Wrap(ctx.Err(), "notion: query all cancelled")
			case <-ticker.C:
			}

			resp, err = c.QueryDatabase(ctx, dbID, req)
		}

		if err != nil {
			return nil, eris.Wrap(err, "notion: query all page")
		}

		all = append(all, resp.Results...)

		if !resp.HasMore {
			break
		}

		// Start prefetching the next page in a goroutine.
		nextReq := &notionapi.DatabaseQueryRequest{
			StartCursor: resp.NextCursor,
		}
		if filter != nil {
			nextReq.Filter = filter.Filter
			nextReq.Sorts = filter.Sorts
			nextReq.PageSize = filter.PageSize
		}

		ch := make(chan prefetchResult, 1)
		prefetchCh = ch
		go func() {
			// Wait for rate limit before fetching.
			select {
			case <-ctx.Done():
				ch <- prefetchResult{err: ctx.Err()}
				return
			case <-ticker.C:
			}

			r, e := c.QueryDatabase(ctx, dbID, nextReq)
			ch <- prefetchResult{resp: r, err: e}
		}()
	}

	return all, nil
}

// QueryQueuedLeads fetches every page with Status = "Queued" from dbID,
// following pagination, and returns the pages as Notion returned them.
func QueryQueuedLeads(ctx context.Context, c Client, dbID string) ([]notionapi.Page, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status:   &notionapi.StatusFilterCondition{Equals: "Queued"},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "notion: query queued leads")
	}
	return pages, nil
}

// QueryPendingCompanies fetches every page with Status = "Pending" from
// dbID and returns the company name from each page's "Name" title
// property, in the order Notion returned them. The batch command uses
// this as an alternative seed source to --companies: a Notion database
// can double as a work queue that a human (or another process) appends
// to, with this engine draining it one batch submission at a time.
func QueryPendingCompanies(ctx context.Context, c Client, dbID string) ([]string, error) {
	filter := &notionapi.DatabaseQueryRequest{
		Filter: notionapi.PropertyFilter{
			Property: "Status",
			Status: &notionapi.StatusFilterCondition{
				Equals: "Pending",
			},
		},
	}
	pages, err := QueryAll(ctx, c, dbID, filter)
	if err != nil {
		return nil, eris.Wrap(err, "notion: query pending companies")
	}

	names := make([]string, 0, len(pages))
	for _, page := range pages {
		title, ok := page.Properties["Name"].(notionapi.TitleProperty)
		if !ok || len(title.Title) == 0 {
			continue
		}
		if name := title.Title[0].Text.Content; name != "" {
			names = append(names, name)
		}
	}
	return names, nil
}
