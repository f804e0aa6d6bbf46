package domain

import "time"

// FailedItem records one permanently failed work item.
type FailedItem struct {
	Symbol    string    `json:"symbol"`
	Kind      ErrorKind `json:"error_kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// BatchProgress is the resumable checkpoint state of a batch run. It is the
// only entity whose lifetime spans runs: a new run with resume enabled loads
// it and skips every key already in ProcessedKeys.
type BatchProgress struct {
	RunID         string              `json:"run_id"`
	ProcessedKeys map[string]struct{} `json:"processed_keys"`
	FailedItems   []FailedItem        `json:"failed_items"`
	SuccessCount  int                 `json:"success_count"`
	ErrorCount    int                 `json:"error_count"`
	LastUpdated   time.Time           `json:"last_updated"`
}

// NewBatchProgress returns empty progress for a fresh run.
func NewBatchProgress(runID string) *BatchProgress {
	return &BatchProgress{
		RunID:         runID,
		ProcessedKeys: make(map[string]struct{}),
	}
}

// Processed reports whether the key was already handled, success or
// permanent failure.
func (p *BatchProgress) Processed(key string) bool {
	_, ok := p.ProcessedKeys[key]
	return ok
}

// MarkProcessed adds a key to the processed set.
func (p *BatchProgress) MarkProcessed(key string) {
	p.ProcessedKeys[key] = struct{}{}
}

// ClearFailures reopens the given keys for reprocessing: each is removed
// from the processed set and its failure entries are dropped, with
// ErrorCount adjusted to match. Keys without a failure entry are untouched.
func (p *BatchProgress) ClearFailures(keys []string) {
	wanted := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
	}

	kept := p.FailedItems[:0]
	for _, item := range p.FailedItems {
		if _, ok := wanted[item.Symbol]; ok {
			delete(p.ProcessedKeys, item.Symbol)
			p.ErrorCount--
			continue
		}
		kept = append(kept, item)
	}
	p.FailedItems = kept
	if p.ErrorCount < 0 {
		p.ErrorCount = 0
	}
}
