package enrich

import (
	"fmt"
	"strings"
	"time"
)

// Schema is the versioned, ordered required-field set. The enricher and the
// validator share one instance so they can never disagree on completeness.
type Schema struct {
	Version int
	Fields  []string

	index map[string]struct{}
}

// NewSchema builds a schema from the configured field list, preserving order.
func NewSchema(version int, fields []string) Schema {
	idx := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		idx[f] = struct{}{}
	}
	return Schema{Version: version, Fields: fields, index: idx}
}

// Contains reports whether the field is part of the required set.
func (s Schema) Contains(field string) bool {
	_, ok := s.index[field]
	return ok
}

// Len returns the required-field count.
func (s Schema) Len() int { return len(s.Fields) }

// DefaultFor returns the documented default for a field no source supplied.
// Ratings get the neutral "Hold", announcement time the common "AMC",
// verification date is today, the source URL derives from the symbol's
// earnings page; remaining date/text fields default to an explicit empty
// value and numeric fields to zero.
func (s Schema) DefaultFor(field, symbol string, now time.Time) string {
	switch field {
	case "consensus_rating":
		return "Hold"
	case "announcement_time":
		return "AMC"
	case "data_verified_date":
		return now.Format("2006-01-02")
	case "source_url":
		return fmt.Sprintf("https://www.nasdaq.com/market-activity/stocks/%s/earnings",
			strings.ToLower(symbol))
	case "symbol":
		return symbol
	case "beat_miss_meet", "earnings_report_result", "market_sector", "market_sub_sector":
		return ""
	}
	if strings.Contains(field, "date") {
		return ""
	}
	return "0"
}
