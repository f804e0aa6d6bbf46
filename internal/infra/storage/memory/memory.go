package memory

import (
	"context"
	"sync"

	"github.com/vietddude/curator/internal/core/domain"
)

// MemoryStorage backs all repositories when no database is configured, and
// the orchestrator tests.
type MemoryStorage struct {
	mu        sync.RWMutex
	records   map[string]*domain.Record
	progress  *domain.BatchProgress
	summaries []*domain.BatchSummary
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*domain.Record),
	}
}

// -----------------------------------------------------------------------------
// Record Repository
// -----------------------------------------------------------------------------

type RecordRepo struct {
	store *MemoryStorage
}

func NewRecordRepo(store *MemoryStorage) *RecordRepo {
	return &RecordRepo{store: store}
}

func (r *RecordRepo) Persist(ctx context.Context, record *domain.Record) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.records[record.Symbol] = record
	return nil
}

func (r *RecordRepo) Get(ctx context.Context, symbol string) (*domain.Record, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return r.store.records[symbol], nil
}

func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.records), nil
}

// -----------------------------------------------------------------------------
// Progress Repository
// -----------------------------------------------------------------------------

type ProgressRepo struct {
	store *MemoryStorage
}

func NewProgressRepo(store *MemoryStorage) *ProgressRepo {
	return &ProgressRepo{store: store}
}

func (r *ProgressRepo) Load(ctx context.Context) (*domain.BatchProgress, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if r.store.progress == nil {
		return nil, nil
	}
	return cloneProgress(r.store.progress), nil
}

func (r *ProgressRepo) Save(ctx context.Context, progress *domain.BatchProgress) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.progress = cloneProgress(progress)
	return nil
}

func (r *ProgressRepo) Reset(ctx context.Context) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.progress = nil
	return nil
}

// cloneProgress keeps saved snapshots isolated from later mutation by the
// orchestrator.
func cloneProgress(p *domain.BatchProgress) *domain.BatchProgress {
	out := &domain.BatchProgress{
		RunID:         p.RunID,
		ProcessedKeys: make(map[string]struct{}, len(p.ProcessedKeys)),
		FailedItems:   append([]domain.FailedItem(nil), p.FailedItems...),
		SuccessCount:  p.SuccessCount,
		ErrorCount:    p.ErrorCount,
		LastUpdated:   p.LastUpdated,
	}
	for k := range p.ProcessedKeys {
		out.ProcessedKeys[k] = struct{}{}
	}
	return out
}

// -----------------------------------------------------------------------------
// Summary Repository
// -----------------------------------------------------------------------------

type SummaryRepo struct {
	store *MemoryStorage
}

func NewSummaryRepo(store *MemoryStorage) *SummaryRepo {
	return &SummaryRepo{store: store}
}

func (r *SummaryRepo) Save(ctx context.Context, summary *domain.BatchSummary) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	r.store.summaries = append(r.store.summaries, summary)
	return nil
}

func (r *SummaryRepo) Latest(ctx context.Context) (*domain.BatchSummary, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	if len(r.store.summaries) == 0 {
		return nil, nil
	}
	return r.store.summaries[len(r.store.summaries)-1], nil
}
