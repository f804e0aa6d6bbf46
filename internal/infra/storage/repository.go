package storage

import (
	"context"

	"github.com/vietddude/curator/internal/core/domain"
)

// RecordRepository is the record persistence sink. Persist is idempotent
// under the record's symbol: re-persisting updates rather than duplicates.
type RecordRepository interface {
	// Persist upserts a record keyed by symbol
	Persist(ctx context.Context, record *domain.Record) error

	// Get retrieves a record by symbol, nil when absent
	Get(ctx context.Context, symbol string) (*domain.Record, error)

	// Count returns the number of persisted records
	Count(ctx context.Context) (int, error)
}

// ProgressRepository is the durable checkpoint store. Losing the most
// recent save replays at most one checkpoint interval of already-completed
// items; it never corrupts state.
type ProgressRepository interface {
	// Load returns the persisted progress, nil when none exists
	Load(ctx context.Context) (*domain.BatchProgress, error)

	// Save persists the progress snapshot
	Save(ctx context.Context, progress *domain.BatchProgress) error

	// Reset discards persisted progress so the next run starts fresh
	Reset(ctx context.Context) error
}

// SummaryRepository stores one terminal report per run.
type SummaryRepository interface {
	// Save persists a run summary
	Save(ctx context.Context, summary *domain.BatchSummary) error

	// Latest returns the most recent summary, nil when none exists
	Latest(ctx context.Context) (*domain.BatchSummary, error)
}
