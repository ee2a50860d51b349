package runtime

import (
	"container/heap"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sells-group/intel-engine/internal/aggregate"
	"github.com/sells-group/intel-engine/internal/cache"
	"github.com/sells-group/intel-engine/internal/clock"
	"github.com/sells-group/intel-engine/internal/crawl"
	"github.com/sells-group/intel-engine/internal/discovery"
	"github.com/sells-group/intel-engine/internal/model"
	"github.com/sells-group/intel-engine/internal/pipeline"
	"github.com/sells-group/intel-engine/internal/ratelimit"
	"github.com/sells-group/intel-engine/internal/resilience"
)

func TestPriorityQueue_OrdersByRankThenSeq(t *testing.T) {
	pq := &priorityQueue{}
	heap.Init(pq)
	heap.Push(pq, &queueItem{taskID: "low", rank: model.PriorityLow.Rank(), seq: 1})
	heap.Push(pq, &queueItem{taskID: "urgent", rank: model.PriorityUrgent.Rank(), seq: 2})
	heap.Push(pq, &queueItem{taskID: "urgent-earlier", rank: model.PriorityUrgent.Rank(), seq: 0})

	first, _ := heap.Pop(pq).(*queueItem)
	second, _ := heap.Pop(pq).(*queueItem)
	third, _ := heap.Pop(pq).(*queueItem)

	assert.Equal(t, "urgent-earlier", first.taskID)
	assert.Equal(t, "urgent", second.taskID)
	assert.Equal(t, "low", third.taskID)
}

type stubProvider struct{}

func (stubProvider) Search(context.Context, string, string, string, int) (discovery.SearchResponse, error) {
	return discovery.SearchResponse{OrganicResults: []discovery.OrganicResult{
		{Rank: 1, URL: "https://acme.com/about", Title: "Acme"},
	}}, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(context.Context, string, time.Duration) (crawl.FetchResult, error) {
	content := ""
	for len(content) < 200 {
		content += "Acme is a company. "
	}
	return crawl.FetchResult{Success: true, StatusCode: 200, CleanedText: content}, nil
}

type stubParser struct{}

func (stubParser) Parse(_, url, _ string) (aggregate.Partial, error) {
	return aggregate.Partial{
		Record:          model.CompanyRecord{Basic: model.Basic{Name: "Acme"}},
		ParseConfidence: 0.8,
		SourceURL:       url,
	}, nil
}

func newTestRuntime(t *testing.T, workers int) *Runtime {
	t.Helper()
	logger := zap.NewNop()
	limiters := ratelimit.New(ratelimit.Config{})
	breakers := resilience.NewServiceBreakers(resilience.DefaultCircuitBreakerConfig())
	retryCfg := resilience.RetryConfig{MaxAttempts: 1}

	discoveryStage := discovery.NewStage(stubProvider{}, limiters, breakers, retryCfg, logger)
	crawlStage := crawl.NewStage(stubFetcher{}, crawl.AllowAllRobots{}, limiters, breakers, retryCfg, logger)
	aggregateStage := aggregate.NewStage(stubParser{})
	memCache := cache.NewMemoryCache(0)
	t.Cleanup(func() { memCache.Close() })

	pipe := pipeline.New(discoveryStage, crawlStage, aggregateStage, memCache, clock.System{}, logger)
	return New(workers, limiters, pipe, logger)
}

func TestRuntime_SubmitAndWaitFor(t *testing.T) {
	rt := newTestRuntime(t, 2)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		rt.Start(ctx)
		close(done)
	}()

	req, err := model.NewRequest(model.RequestParams{CompanyName: "Acme"})
	require.NoError(t, err)
	id := rt.Submit(req, model.PriorityHigh)

	results := rt.WaitFor(context.Background(), []string{id}, 5*time.Second)
	require.Contains(t, results, id)
	assert.True(t, results[id].Done())
	assert.Equal(t, model.TaskCompleted, results[id].State)

	rt.Shutdown()
	<-done
}

func TestRuntime_StatusUnknownID(t *testing.T) {
	rt := newTestRuntime(t, 1)
	_, ok := rt.Status("nonexistent")
	assert.False(t, ok)
}

func TestRuntime_ShutdownDrainsWorkers(t *testing.T) {
	rt := newTestRuntime(t, 1)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		rt.Start(ctx)
		close(done)
	}()

	rt.Shutdown()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not shut down")
	}
}
