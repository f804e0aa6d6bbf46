package resilience

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"sort"
	"strings"
	"sync"

	"github.com/vietddude/curator/internal/core/domain"
)

// ErrRateLimited marks an upstream rate-limit response. Sources wrap it so
// classification is structural rather than message-sniffing.
var ErrRateLimited = errors.New("rate limited by upstream")

// ParseError marks a payload that could not be decoded into usable fields.
// Only errors whose type carries this marker (or a stdlib decode error type)
// classify as parsing failures; a generic "invalid value" message does not.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return "parse " + e.Source + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Keyword families, matched against the lower-cased message only when no
// typed check recognized the error.
var (
	networkKeywords   = []string{"timeout", "connection", "unreachable", "dns", "http error"}
	rateLimitKeywords = []string{"rate limit", "429", "too many requests"}
	parsingKeywords   = []string{"parse", "invalid json", "invalid xml", "invalid html"}
)

// Classify assigns an ErrorKind to a failure. Typed checks run first and
// win; keyword matching is a fallback only. Pure function.
func Classify(err error) domain.ErrorKind {
	if err == nil {
		return domain.ErrorKindUnknown
	}

	// Typed checks
	if errors.Is(err, ErrRateLimited) {
		return domain.ErrorKindRateLimit
	}
	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorKindNetwork
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) ||
		errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
		return domain.ErrorKindFileSystem
	}
	var parseErr *ParseError
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &parseErr) || errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return domain.ErrorKindParsing
	}

	// Keyword fallback
	msg := strings.ToLower(err.Error())
	for _, kw := range networkKeywords {
		if strings.Contains(msg, kw) {
			return domain.ErrorKindNetwork
		}
	}
	for _, kw := range rateLimitKeywords {
		if strings.Contains(msg, kw) {
			return domain.ErrorKindRateLimit
		}
	}
	for _, kw := range parsingKeywords {
		if strings.Contains(msg, kw) {
			return domain.ErrorKindParsing
		}
	}

	return domain.ErrorKindUnknown
}

// ErrorSummary reports accumulated failure statistics for one run.
type ErrorSummary struct {
	Counts        map[domain.ErrorKind]int `json:"counts"`
	Total         int                      `json:"total"`
	FailedSymbols []string                 `json:"failed_symbols"`
}

// ErrorStats tallies failures per kind and remembers which work items ever
// failed. It is owned by the run that records into it, not process-global,
// so concurrent runs in one process do not share state.
type ErrorStats struct {
	mu      sync.Mutex
	counts  map[domain.ErrorKind]int
	symbols map[string]struct{}
}

// NewErrorStats creates an empty recorder.
func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		counts:  make(map[domain.ErrorKind]int),
		symbols: make(map[string]struct{}),
	}
}

// Record classifies the error, tallies it, and remembers the symbol.
// An empty symbol tallies the kind only.
func (s *ErrorStats) Record(err error, symbol string) domain.ErrorKind {
	kind := Classify(err)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[kind]++
	if symbol != "" {
		s.symbols[symbol] = struct{}{}
	}
	return kind
}

// Summary returns counts by kind, the total, and the distinct set of
// symbols that have ever failed.
func (s *ErrorStats) Summary() ErrorSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := ErrorSummary{Counts: make(map[domain.ErrorKind]int, len(s.counts))}
	for kind, n := range s.counts {
		out.Counts[kind] = n
		out.Total += n
	}
	out.FailedSymbols = make([]string, 0, len(s.symbols))
	for sym := range s.symbols {
		out.FailedSymbols = append(out.FailedSymbols, sym)
	}
	sort.Strings(out.FailedSymbols)
	return out
}
