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

// RecordRepo persists enriched records in PostgreSQL.
type RecordRepo struct {
	db *DB
}

func NewRecordRepo(db *DB) *RecordRepo {
	return &RecordRepo{db: db}
}

type recordRow struct {
	Symbol     string    `db:"symbol"`
	Fields     []byte    `db:"fields"`
	SourceURL  string    `db:"source_url"`
	Confidence float64   `db:"confidence"`
	UpdatedAt  time.Time `db:"updated_at"`
}

// Persist upserts a record keyed by symbol. Re-running a batch over the
// same symbols overwrites rather than duplicates.
func (r *RecordRepo) Persist(ctx context.Context, rec *domain.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal record fields: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO records (symbol, fields, source_url, confidence, updated_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (symbol) DO UPDATE SET
			fields = EXCLUDED.fields,
			source_url = EXCLUDED.source_url,
			confidence = EXCLUDED.confidence,
			updated_at = NOW()
	`, rec.Symbol, fields, rec.SourceURL, rec.Confidence)
	if err != nil {
		return fmt.Errorf("failed to persist record %s: %w", rec.Symbol, err)
	}
	return nil
}

// Get returns the stored record for a symbol, or nil when absent.
func (r *RecordRepo) Get(ctx context.Context, symbol string) (*domain.Record, error) {
	var row recordRow
	err := r.db.GetContext(ctx, &row, `
		SELECT symbol, fields, source_url, confidence, updated_at
		FROM records WHERE symbol = $1
	`, symbol)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record %s: %w", symbol, err)
	}

	rec := &domain.Record{
		Symbol:     row.Symbol,
		SourceURL:  row.SourceURL,
		Confidence: row.Confidence,
	}
	if err := json.Unmarshal(row.Fields, &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record fields: %w", err)
	}
	return rec, nil
}

// Count returns the number of stored records.
func (r *RecordRepo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM records`); err != nil {
		return 0, fmt.Errorf("failed to count records: %w", err)
	}
	return n, nil
}
