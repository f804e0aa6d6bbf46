package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/storage"
	"github.com/vietddude/curator/internal/metrics"
	"github.com/vietddude/curator/internal/resilience"
)

// Enricher produces a fully populated record for one company.
type Enricher interface {
	Enrich(ctx context.Context, company domain.Company) (*domain.Record, domain.CompletenessReport, error)
}

// FailedItemQueue receives permanently failed items for targeted re-runs.
// The queue is optional; a nil queue disables it.
type FailedItemQueue interface {
	Add(ctx context.Context, item *domain.FailedItem) error
	MarkResolved(ctx context.Context, symbol string) error
}

// flushTimeout bounds the terminal checkpoint and summary writes once the
// run context is gone.
const flushTimeout = 30 * time.Second

// Config controls checkpointing and cascade abort.
type Config struct {
	CheckpointInterval     int
	MaxConsecutiveFailures int
	Resume                 bool
}

// Orchestrator drives a batch run over a list of companies: enrich each,
// persist the record, checkpoint progress, and stop early when failures
// cascade.
type Orchestrator struct {
	enricher  Enricher
	records   storage.RecordRepository
	progress  storage.ProgressRepository
	summaries storage.SummaryRepository
	queue     FailedItemQueue
	cfg       Config
	log       *slog.Logger
	now       func() time.Time
}

func New(
	enricher Enricher,
	records storage.RecordRepository,
	progress storage.ProgressRepository,
	summaries storage.SummaryRepository,
	queue FailedItemQueue,
	cfg Config,
	log *slog.Logger,
) *Orchestrator {
	if cfg.CheckpointInterval <= 0 {
		cfg.CheckpointInterval = 10
	}
	if cfg.MaxConsecutiveFailures <= 0 {
		cfg.MaxConsecutiveFailures = 10
	}
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		enricher:  enricher,
		records:   records,
		progress:  progress,
		summaries: summaries,
		queue:     queue,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

// Run processes items in input order. With resume enabled it loads the
// persisted progress and skips every key already processed; a prior success
// is never re-enriched or re-persisted. Failures count toward the cascade
// threshold; MaxConsecutiveFailures consecutive failures abort the run with
// a terminal summary instead of grinding through a systemically broken
// environment.
func (o *Orchestrator) Run(ctx context.Context, items []domain.Company) (*domain.BatchSummary, error) {
	startedAt := o.now()

	progress, err := o.loadProgress(ctx)
	if err != nil {
		return nil, err
	}

	o.log.Info("starting batch run",
		"run_id", progress.RunID,
		"total_items", len(items),
		"already_processed", len(progress.ProcessedKeys))

	summary := &domain.BatchSummary{
		RunID:      progress.RunID,
		StartedAt:  startedAt,
		TotalItems: len(items),
	}

	var (
		consecutiveFailures int
		completenessSum     float64
		successesThisRun    int
		sinceCheckpoint     int
	)

	for _, item := range items {
		// An interrupt lands between items: the in-flight item always
		// completes before the flush below.
		if ctx.Err() != nil {
			summary.Aborted = true
			summary.AbortReason = "interrupted"
			break
		}

		key := item.Key()
		if progress.Processed(key) {
			summary.SkippedCount++
			metrics.ItemsProcessed.WithLabelValues("skipped").Inc()
			continue
		}

		record, report, err := o.enricher.Enrich(ctx, item)
		if err != nil {
			if ctx.Err() != nil {
				summary.Aborted = true
				summary.AbortReason = "interrupted"
				break
			}
			consecutiveFailures++
			o.recordFailure(ctx, progress, key, err)
		} else if err = o.records.Persist(ctx, record); err != nil {
			if ctx.Err() != nil {
				summary.Aborted = true
				summary.AbortReason = "interrupted"
				break
			}
			consecutiveFailures++
			o.recordFailure(ctx, progress, key, err)
		} else {
			consecutiveFailures = 0
			progress.MarkProcessed(key)
			progress.SuccessCount++
			successesThisRun++
			completenessSum += report.Ratio()
			metrics.ItemsProcessed.WithLabelValues("success").Inc()
			if o.queue != nil {
				if qerr := o.queue.MarkResolved(ctx, key); qerr != nil {
					o.log.Warn("failed to clear retry queue entry", "symbol", key, "error", qerr)
				}
			}
			o.log.Debug("item processed",
				"symbol", key,
				"confidence", record.Confidence,
				"defaulted_fields", len(report.Defaulted))
		}

		sinceCheckpoint++
		metrics.BatchProgressItems.WithLabelValues("success").Set(float64(progress.SuccessCount))
		metrics.BatchProgressItems.WithLabelValues("error").Set(float64(progress.ErrorCount))

		if consecutiveFailures >= o.cfg.MaxConsecutiveFailures {
			summary.Aborted = true
			summary.AbortReason = fmt.Sprintf("%d consecutive failures", consecutiveFailures)
			o.log.Error("aborting batch run", "reason", summary.AbortReason)
			break
		}

		if sinceCheckpoint >= o.cfg.CheckpointInterval {
			if err := o.checkpoint(ctx, progress); err != nil {
				o.log.Warn("checkpoint failed", "error", err)
			}
			sinceCheckpoint = 0
		}
	}

	summary.SuccessCount = progress.SuccessCount
	summary.ErrorCount = progress.ErrorCount
	summary.FailedItems = append([]domain.FailedItem(nil), progress.FailedItems...)
	summary.Duration = o.now().Sub(startedAt)
	if successesThisRun > 0 {
		summary.AvgCompleteness = completenessSum / float64(successesThisRun)
	}

	// After an interrupt ctx is already canceled; the terminal flush runs
	// on a detached context so the checkpoint and summary still land.
	flushCtx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	if err := o.checkpoint(flushCtx, progress); err != nil {
		o.log.Warn("final checkpoint failed", "error", err)
	}
	if err := o.summaries.Save(flushCtx, summary); err != nil {
		o.log.Warn("failed to save summary", "run_id", summary.RunID, "error", err)
	}

	o.log.Info("batch run finished",
		"run_id", summary.RunID,
		"duration", summary.Duration,
		"success", summary.SuccessCount,
		"errors", summary.ErrorCount,
		"skipped", summary.SkippedCount,
		"aborted", summary.Aborted)

	return summary, nil
}

// loadProgress returns the resume point, or fresh progress when resume is
// disabled or nothing was checkpointed.
func (o *Orchestrator) loadProgress(ctx context.Context) (*domain.BatchProgress, error) {
	if o.cfg.Resume {
		progress, err := o.progress.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load progress: %w", err)
		}
		if progress != nil {
			o.log.Info("resuming from checkpoint",
				"run_id", progress.RunID,
				"processed", len(progress.ProcessedKeys))
			return progress, nil
		}
	}
	return domain.NewBatchProgress(uuid.NewString()), nil
}

func (o *Orchestrator) recordFailure(ctx context.Context, progress *domain.BatchProgress, key string, err error) {
	kind := resilience.Classify(err)
	item := domain.FailedItem{
		Symbol:    key,
		Kind:      kind,
		Message:   err.Error(),
		Timestamp: o.now(),
	}

	progress.MarkProcessed(key)
	progress.ErrorCount++
	progress.FailedItems = append(progress.FailedItems, item)

	metrics.ItemsProcessed.WithLabelValues("error").Inc()
	metrics.ErrorsTotal.WithLabelValues(string(kind)).Inc()

	if o.queue != nil {
		if qerr := o.queue.Add(ctx, &item); qerr != nil {
			o.log.Warn("failed to enqueue failed item", "symbol", key, "error", qerr)
		}
	}

	o.log.Error("item failed", "symbol", key, "kind", kind, "error", err)
}

func (o *Orchestrator) checkpoint(ctx context.Context, progress *domain.BatchProgress) error {
	progress.LastUpdated = o.now()
	return o.progress.Save(ctx, progress)
}
