package domain

import "time"

// BatchSummary is the write-once terminal report of a run. It is produced
// exactly once, whether the run completed, aborted on cascading failure, or
// was interrupted.
type BatchSummary struct {
	RunID           string        `json:"run_id"`
	StartedAt       time.Time     `json:"started_at"`
	Duration        time.Duration `json:"duration"`
	TotalItems      int           `json:"total_items"`
	SuccessCount    int           `json:"success_count"`
	ErrorCount      int           `json:"error_count"`
	SkippedCount    int           `json:"skipped_count"` // already processed in a prior run
	AvgCompleteness float64       `json:"avg_completeness"`
	FailedItems     []FailedItem  `json:"failed_items"`
	Aborted         bool          `json:"aborted"`
	AbortReason     string        `json:"abort_reason,omitempty"`
}

// SuccessRate returns successes over attempted items (skips excluded).
func (s *BatchSummary) SuccessRate() float64 {
	attempted := s.SuccessCount + s.ErrorCount
	if attempted == 0 {
		return 0
	}
	return float64(s.SuccessCount) / float64(attempted)
}

// FailedSymbols returns the keys of permanently failed items, for targeted
// re-runs.
func (s *BatchSummary) FailedSymbols() []string {
	symbols := make([]string, 0, len(s.FailedItems))
	for _, f := range s.FailedItems {
		symbols = append(symbols, f.Symbol)
	}
	return symbols
}
