package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/infra/source"
	"github.com/vietddude/curator/internal/metrics"
	"github.com/vietddude/curator/internal/resilience"
)

// ErrAllSourcesFailed is returned when no source responded at all for an
// item. It is the only enrichment outcome that counts as an item failure;
// any source responding, even with an empty field map, yields a defaulted
// record instead.
var ErrAllSourcesFailed = errors.New("all sources failed")

// companyListSource is the provenance label for fields seeded from the
// work item itself.
const companyListSource = "company_list"

// Pipe couples one source with its own circuit breaker. Breakers are never
// shared across sources.
type Pipe struct {
	Source  source.Source
	Breaker *resilience.CircuitBreaker
}

// Enricher assembles one schema-complete record per work item from a
// prioritized list of sources.
type Enricher struct {
	pipes  []Pipe
	retry  resilience.RetryConfig
	schema Schema
	stats  *resilience.ErrorStats
	log    *slog.Logger
	now    func() time.Time
}

// New creates an enricher. Pipes are tried in the given order; the first is
// the primary source.
func New(pipes []Pipe, retry resilience.RetryConfig, schema Schema, stats *resilience.ErrorStats) *Enricher {
	return &Enricher{
		pipes:  pipes,
		retry:  retry,
		schema: schema,
		stats:  stats,
		log:    slog.Default(),
		now:    time.Now,
	}
}

// Pipes exposes the configured source pipes, for breaker state reporting.
func (e *Enricher) Pipes() []Pipe { return e.pipes }

// Enrich queries sources in priority order, merges their fields under
// first-writer-wins, then validates against the required-field schema,
// defaulting what no source supplied.
func (e *Enricher) Enrich(ctx context.Context, company domain.Company) (*domain.Record, domain.CompletenessReport, error) {
	candidate := e.seed(company)

	responded := false
	var lastErr error

	for _, pipe := range e.pipes {
		var fields map[string]string

		start := e.now()
		err := pipe.Breaker.Call(func() error {
			return resilience.Do(ctx, e.retry, func() error {
				m, ferr := pipe.Source.Fetch(ctx, company.Symbol)
				if ferr != nil {
					return ferr
				}
				fields = m
				return nil
			})
		})
		metrics.SourceLatency.WithLabelValues(pipe.Source.Name()).Observe(e.now().Sub(start).Seconds())
		metrics.BreakerState.WithLabelValues(pipe.Source.Name()).Set(breakerGauge(pipe.Breaker.State()))

		if err != nil {
			kind := e.stats.Record(err, company.Symbol)
			metrics.SourceFetchesTotal.WithLabelValues(pipe.Source.Name(), "error").Inc()
			metrics.ErrorsTotal.WithLabelValues(string(kind)).Inc()
			e.log.Warn("Source failed, trying next",
				"symbol", company.Symbol, "source", pipe.Source.Name(),
				"kind", kind, "error", err)
			lastErr = err
			continue
		}

		responded = true
		metrics.SourceFetchesTotal.WithLabelValues(pipe.Source.Name(), "ok").Inc()
		if len(fields) == 0 {
			e.log.Debug("Source returned no data",
				"symbol", company.Symbol, "source", pipe.Source.Name())
			continue
		}
		merge(candidate, fields, pipe.Source.Name(), e.schema)
	}

	if !responded {
		if lastErr == nil {
			return nil, domain.CompletenessReport{}, fmt.Errorf("%w for %s: no sources configured",
				ErrAllSourcesFailed, company.Symbol)
		}
		return nil, domain.CompletenessReport{}, fmt.Errorf("%w for %s: %w",
			ErrAllSourcesFailed, company.Symbol, lastErr)
	}

	record, report := e.validate(company, candidate)
	metrics.RecordCompleteness.Observe(report.Ratio())
	return record, report, nil
}

// seed pre-populates fields the work item itself carries.
func (e *Enricher) seed(company domain.Company) map[string]domain.FieldValue {
	candidate := make(map[string]domain.FieldValue, e.schema.Len())
	seeds := map[string]string{
		"symbol":            company.Symbol,
		"market_sector":     company.Sector,
		"market_sub_sector": company.SubSector,
	}
	for field, value := range seeds {
		if value == "" || !e.schema.Contains(field) {
			continue
		}
		candidate[field] = domain.FieldValue{
			Value:  value,
			Origin: domain.FieldOriginSource,
			Source: companyListSource,
		}
	}
	return candidate
}

// merge applies first-writer-wins: a field populated by a higher-priority
// source is never overwritten, an unset field is filled by the first source
// that supplies it. Fields outside the schema are dropped.
func merge(candidate map[string]domain.FieldValue, fields map[string]string, sourceName string, schema Schema) {
	for field, value := range fields {
		if !schema.Contains(field) {
			continue
		}
		if _, taken := candidate[field]; taken {
			continue
		}
		candidate[field] = domain.FieldValue{
			Value:  value,
			Origin: domain.FieldOriginSource,
			Source: sourceName,
		}
	}
}

// validate fills every required field missing from the candidate with its
// documented default and scores confidence by the supplied fraction.
func (e *Enricher) validate(company domain.Company, candidate map[string]domain.FieldValue) (*domain.Record, domain.CompletenessReport) {
	now := e.now()
	report := domain.CompletenessReport{}
	fields := make(map[string]domain.FieldValue, e.schema.Len())

	for _, name := range e.schema.Fields {
		if fv, ok := candidate[name]; ok {
			fields[name] = fv
			report.Supplied = append(report.Supplied, name)
			continue
		}
		fields[name] = domain.FieldValue{
			Value:  e.schema.DefaultFor(name, company.Symbol, now),
			Origin: domain.FieldOriginDefaulted,
		}
		report.Defaulted = append(report.Defaulted, name)
	}

	confidence := report.Ratio()
	if fv, ok := fields["confidence_score"]; ok {
		fv.Value = strconv.FormatFloat(confidence, 'f', 4, 64)
		fields["confidence_score"] = fv
	}

	return &domain.Record{
		Symbol:     company.Symbol,
		Fields:     fields,
		SourceURL:  fields["source_url"].Value,
		Confidence: confidence,
	}, report
}

func breakerGauge(state resilience.CircuitState) float64 {
	switch state {
	case resilience.CircuitOpen:
		return 2
	case resilience.CircuitHalfOpen:
		return 1
	default:
		return 0
	}
}
