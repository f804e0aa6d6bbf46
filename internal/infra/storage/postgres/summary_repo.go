package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/curator/internal/core/domain"
)

// SummaryRepo stores per-run batch summaries in PostgreSQL.
type SummaryRepo struct {
	db *DB
}

func NewSummaryRepo(db *DB) *SummaryRepo {
	return &SummaryRepo{db: db}
}

type summaryRow struct {
	RunID           string    `db:"run_id"`
	StartedAt       time.Time `db:"started_at"`
	DurationMs      int64     `db:"duration_ms"`
	TotalItems      int       `db:"total_items"`
	SuccessCount    int       `db:"success_count"`
	ErrorCount      int       `db:"error_count"`
	SkippedCount    int       `db:"skipped_count"`
	AvgCompleteness float64   `db:"avg_completeness"`
	FailedItems     []byte    `db:"failed_items"`
	Aborted         bool      `db:"aborted"`
	AbortReason     string    `db:"abort_reason"`
}

// Save inserts the summary for a completed run.
func (r *SummaryRepo) Save(ctx context.Context, summary *domain.BatchSummary) error {
	failedJSON, err := json.Marshal(summary.FailedItems)
	if err != nil {
		return fmt.Errorf("failed to marshal failed items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO batch_summaries (run_id, started_at, duration_ms, total_items,
			success_count, error_count, skipped_count, avg_completeness,
			failed_items, aborted, abort_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (run_id) DO UPDATE SET
			duration_ms = EXCLUDED.duration_ms,
			total_items = EXCLUDED.total_items,
			success_count = EXCLUDED.success_count,
			error_count = EXCLUDED.error_count,
			skipped_count = EXCLUDED.skipped_count,
			avg_completeness = EXCLUDED.avg_completeness,
			failed_items = EXCLUDED.failed_items,
			aborted = EXCLUDED.aborted,
			abort_reason = EXCLUDED.abort_reason
	`, summary.RunID, summary.StartedAt, summary.Duration.Milliseconds(),
		summary.TotalItems, summary.SuccessCount, summary.ErrorCount,
		summary.SkippedCount, summary.AvgCompleteness, failedJSON,
		summary.Aborted, summary.AbortReason)
	if err != nil {
		return fmt.Errorf("failed to save summary %s: %w", summary.RunID, err)
	}
	return nil
}

// Latest returns the most recent summary, or nil when none exist.
func (r *SummaryRepo) Latest(ctx context.Context) (*domain.BatchSummary, error) {
	var row summaryRow
	err := r.db.GetContext(ctx, &row, `
		SELECT run_id, started_at, duration_ms, total_items, success_count,
			error_count, skipped_count, avg_completeness, failed_items,
			aborted, abort_reason
		FROM batch_summaries ORDER BY started_at DESC LIMIT 1
	`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest summary: %w", err)
	}

	summary := &domain.BatchSummary{
		RunID:           row.RunID,
		StartedAt:       row.StartedAt,
		Duration:        time.Duration(row.DurationMs) * time.Millisecond,
		TotalItems:      row.TotalItems,
		SuccessCount:    row.SuccessCount,
		ErrorCount:      row.ErrorCount,
		SkippedCount:    row.SkippedCount,
		AvgCompleteness: row.AvgCompleteness,
		Aborted:         row.Aborted,
		AbortReason:     row.AbortReason,
	}
	if err := json.Unmarshal(row.FailedItems, &summary.FailedItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed items: %w", err)
	}
	return summary, nil
}
