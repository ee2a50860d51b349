package crawl

import (
	"context"
	"time"

	"github.com/sells-group/intel-engine/pkg/jina"
)

// JinaFetcher adapts pkg/jina's Reader endpoint to PageFetcher, the
// primary crawl collaborator.
type JinaFetcher struct {
	client jina.Client
}

// NewJinaFetcher wraps client as a PageFetcher.
func NewJinaFetcher(client jina.Client) *JinaFetcher {
	return &JinaFetcher{client: client}
}

func (f *JinaFetcher) Fetch(ctx context.Context, url string, timeout time.Duration) (FetchResult, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := f.client.Read(ctx, url, jina.WithReadTimeout(timeout))
	elapsed := time.Since(start)
	if err != nil {
		return FetchResult{Success: false, ElapsedMS: elapsed.Milliseconds(), Error: err.Error()}, err
	}

	return FetchResult{
		Success:     resp.Code == 200,
		Title:       resp.Data.Title,
		CleanedText: resp.Data.Content,
		Markdown:    resp.Data.Content,
		StatusCode:  resp.Code,
		ElapsedMS:   elapsed.Milliseconds(),
		Tokens:      resp.Data.Usage.Tokens,
	}, nil
}
