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

// progressKey is the single logical progress row. One batch runs at a
// time; a fresh run replaces the row.
const progressKey = "batch"

// ProgressRepo checkpoints batch progress in PostgreSQL.
type ProgressRepo struct {
	db *DB
}

func NewProgressRepo(db *DB) *ProgressRepo {
	return &ProgressRepo{db: db}
}

type progressRow struct {
	RunID         string    `db:"run_id"`
	ProcessedKeys []byte    `db:"processed_keys"`
	FailedItems   []byte    `db:"failed_items"`
	SuccessCount  int       `db:"success_count"`
	ErrorCount    int       `db:"error_count"`
	LastUpdated   time.Time `db:"last_updated"`
}

// Load returns the saved progress, or nil when no checkpoint exists.
func (r *ProgressRepo) Load(ctx context.Context) (*domain.BatchProgress, error) {
	var row progressRow
	err := r.db.GetContext(ctx, &row, `
		SELECT run_id, processed_keys, failed_items, success_count, error_count, last_updated
		FROM batch_progress WHERE id = $1
	`, progressKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load progress: %w", err)
	}

	var keys []string
	if err := json.Unmarshal(row.ProcessedKeys, &keys); err != nil {
		return nil, fmt.Errorf("failed to unmarshal processed keys: %w", err)
	}

	progress := &domain.BatchProgress{
		RunID:         row.RunID,
		ProcessedKeys: make(map[string]struct{}, len(keys)),
		SuccessCount:  row.SuccessCount,
		ErrorCount:    row.ErrorCount,
		LastUpdated:   row.LastUpdated,
	}
	for _, k := range keys {
		progress.ProcessedKeys[k] = struct{}{}
	}
	if err := json.Unmarshal(row.FailedItems, &progress.FailedItems); err != nil {
		return nil, fmt.Errorf("failed to unmarshal failed items: %w", err)
	}
	return progress, nil
}

// Save upserts the progress checkpoint.
func (r *ProgressRepo) Save(ctx context.Context, progress *domain.BatchProgress) error {
	keys := make([]string, 0, len(progress.ProcessedKeys))
	for k := range progress.ProcessedKeys {
		keys = append(keys, k)
	}
	keysJSON, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("failed to marshal processed keys: %w", err)
	}
	failedJSON, err := json.Marshal(progress.FailedItems)
	if err != nil {
		return fmt.Errorf("failed to marshal failed items: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO batch_progress (id, run_id, processed_keys, failed_items, success_count, error_count, last_updated)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (id) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			processed_keys = EXCLUDED.processed_keys,
			failed_items = EXCLUDED.failed_items,
			success_count = EXCLUDED.success_count,
			error_count = EXCLUDED.error_count,
			last_updated = NOW()
	`, progressKey, progress.RunID, keysJSON, failedJSON, progress.SuccessCount, progress.ErrorCount)
	if err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Reset discards the progress checkpoint.
func (r *ProgressRepo) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM batch_progress WHERE id = $1`, progressKey); err != nil {
		return fmt.Errorf("failed to reset progress: %w", err)
	}
	return nil
}
