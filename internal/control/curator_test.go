package control

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/vietddude/curator/internal/core/config"
	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/enrich"
	"github.com/vietddude/curator/internal/infra/storage/memory"
	"github.com/vietddude/curator/internal/resilience"
	"github.com/vietddude/curator/internal/status"
)

// =============================================================================
// Mocks
// =============================================================================

type flakySource struct {
	name  string
	fail  map[string]bool
	calls map[string]int
}

func newFlakySource(name string) *flakySource {
	return &flakySource{name: name, fail: make(map[string]bool), calls: make(map[string]int)}
}

func (s *flakySource) Name() string { return s.name }

func (s *flakySource) Fetch(ctx context.Context, symbol string) (map[string]string, error) {
	s.calls[symbol]++
	if s.fail[symbol] {
		return nil, errors.New("connection refused")
	}
	return map[string]string{"symbol": symbol, "earnings_date": "2026-03-14"}, nil
}

type stubQueue struct {
	items    []*domain.FailedItem
	resolved []string
}

func (q *stubQueue) Add(ctx context.Context, item *domain.FailedItem) error {
	q.items = append(q.items, item)
	return nil
}

func (q *stubQueue) MarkResolved(ctx context.Context, symbol string) error {
	q.resolved = append(q.resolved, symbol)
	kept := q.items[:0]
	for _, item := range q.items {
		if item.Symbol != symbol {
			kept = append(kept, item)
		}
	}
	q.items = kept
	return nil
}

func (q *stubQueue) GetAll(ctx context.Context) ([]*domain.FailedItem, error) {
	return q.items, nil
}

func (q *stubQueue) Count(ctx context.Context) (int, error) {
	return len(q.items), nil
}

func newTestCurator(src *flakySource, queue retryQueue) *Curator {
	store := memory.NewMemoryStorage()
	c := &Curator{
		cfg: &config.AppConfig{
			Batch: config.BatchConfig{
				CheckpointInterval:     10,
				MaxConsecutiveFailures: 5,
				Resume:                 true,
			},
		},
		records:   memory.NewRecordRepo(store),
		progress:  memory.NewProgressRepo(store),
		summaries: memory.NewSummaryRepo(store),
		queue:     queue,
		stats:     resilience.NewErrorStats(),
		log:       slog.Default(),
		universe: []domain.Company{
			{Symbol: "AAPL", Sector: "Information Technology"},
			{Symbol: "MSFT", Sector: "Information Technology"},
		},
	}

	schema := enrich.NewSchema(1, []string{"symbol", "earnings_date"})
	pipes := []enrich.Pipe{{
		Source:  src,
		Breaker: resilience.NewCircuitBreaker(src.Name(), 3, time.Minute),
	}}
	c.enricher = enrich.New(pipes, resilience.RetryConfig{}, schema, c.stats)
	c.server = status.NewServer(c, 0)
	return c
}

// =============================================================================
// Tests
// =============================================================================

func TestRunFailedOnlyRetriesFailedItems(t *testing.T) {
	src := newFlakySource("nasdaq")
	src.fail["MSFT"] = true
	queue := &stubQueue{}
	c := newTestCurator(src, queue)
	ctx := context.Background()

	first, err := c.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.SuccessCount != 1 || first.ErrorCount != 1 {
		t.Fatalf("first run success/error = %d/%d, want 1/1",
			first.SuccessCount, first.ErrorCount)
	}
	if n, _ := queue.Count(ctx); n != 1 {
		t.Fatalf("queue depth after first run = %d, want 1", n)
	}

	// Source recovers; the targeted re-run must re-enrich MSFT instead of
	// resuming past its earlier failure.
	src.fail["MSFT"] = false
	second, err := c.Run(ctx, RunOptions{FailedOnly: true})
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.TotalItems != 1 {
		t.Errorf("second run total items = %d, want 1", second.TotalItems)
	}
	if second.SkippedCount != 0 {
		t.Errorf("second run skipped = %d, want 0", second.SkippedCount)
	}
	if second.SuccessCount != 2 || second.ErrorCount != 0 {
		t.Errorf("second run success/error = %d/%d, want 2/0",
			second.SuccessCount, second.ErrorCount)
	}
	if src.calls["MSFT"] != 2 {
		t.Errorf("MSFT fetches = %d, want 2", src.calls["MSFT"])
	}
	resolvedMSFT := false
	for _, sym := range queue.resolved {
		if sym == "MSFT" {
			resolvedMSFT = true
		}
	}
	if !resolvedMSFT {
		t.Errorf("resolved = %v, want MSFT included", queue.resolved)
	}
	if n, _ := queue.Count(ctx); n != 0 {
		t.Errorf("queue depth after retry = %d, want 0", n)
	}

	record, err := c.records.Get(ctx, "MSFT")
	if err != nil || record == nil {
		t.Fatalf("MSFT record = %v, %v; want persisted", record, err)
	}
}

func TestRunFailedOnlyWithHealthyQueueDoesNothing(t *testing.T) {
	src := newFlakySource("nasdaq")
	c := newTestCurator(src, &stubQueue{})

	summary, err := c.Run(context.Background(), RunOptions{FailedOnly: true})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.TotalItems != 0 {
		t.Errorf("total items = %d, want 0 with an empty queue", summary.TotalItems)
	}
	if len(src.calls) != 0 {
		t.Errorf("fetches = %v, want none", src.calls)
	}
}

func TestSnapshotReportsQueueDepth(t *testing.T) {
	src := newFlakySource("nasdaq")
	queue := &stubQueue{items: []*domain.FailedItem{
		{Symbol: "MSFT", Kind: domain.ErrorKindNetwork},
		{Symbol: "GOOG", Kind: domain.ErrorKindRateLimit},
	}}
	c := newTestCurator(src, queue)

	snap, err := c.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if snap.FailedQueueDepth != 2 {
		t.Errorf("failed queue depth = %d, want 2", snap.FailedQueueDepth)
	}
	if snap.TotalCompanies != 2 {
		t.Errorf("total companies = %d, want 2", snap.TotalCompanies)
	}
	if state, ok := snap.Breakers["nasdaq"]; !ok || state != string(resilience.CircuitClosed) {
		t.Errorf("breakers = %v, want nasdaq closed", snap.Breakers)
	}
}
