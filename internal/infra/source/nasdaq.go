package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultNasdaqBaseURL = "https://www.nasdaq.com/market-activity/stocks"

// nasdaqLabelFields maps the labels of the Nasdaq earnings summary table to
// schema field names.
var nasdaqLabelFields = map[string]string{
	"earnings date":          "earnings_date",
	"estimated eps":          "estimated_eps",
	"reported eps":           "reported_earnings_per_share",
	"consensus eps":          "estimated_earnings_per_share",
	"surprise":               "surprise_percent",
	"announcement time":      "announcement_time",
	"market cap":             "market_cap",
	"volume":                 "volume",
	"dividend yield":         "dividend_yield",
	"ex dividend date":       "ex_dividend_date",
	"52 week high":           "week_52_high",
	"52 week low":            "week_52_low",
	"consensus rating":       "consensus_rating",
	"short interest":         "percentage_short_interest",
	"200 day moving average": "moving_average_200_day",
	"50 day moving average":  "moving_average_50_day",
}

// NasdaqScraper scrapes the per-symbol earnings page. It is the primary,
// high-trust source.
type NasdaqScraper struct {
	name    string
	baseURL string
	client  *http.Client
	delay   time.Duration
}

// NewNasdaqScraper wires the scraper; baseURL may be empty for production.
func NewNasdaqScraper(name, baseURL string, timeout, delay time.Duration) *NasdaqScraper {
	if baseURL == "" {
		baseURL = defaultNasdaqBaseURL
	}
	return &NasdaqScraper{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  newHTTPClient(timeout),
		delay:   delay,
	}
}

func (s *NasdaqScraper) Name() string { return s.name }

// PageURL returns the earnings page address for a symbol.
func (s *NasdaqScraper) PageURL(symbol string) string {
	return fmt.Sprintf("%s/%s/earnings", s.baseURL, strings.ToLower(symbol))
}

// Fetch scrapes the earnings page and extracts whatever labeled values the
// page carries. An empty result is not an error; it drives fallback.
func (s *NasdaqScraper) Fetch(ctx context.Context, symbol string) (map[string]string, error) {
	if err := courtesyWait(ctx, s.delay); err != nil {
		return nil, err
	}

	url := s.PageURL(symbol)
	body, err := get(ctx, s.client, url)
	if err != nil {
		return nil, fmt.Errorf("nasdaq %s: %w", symbol, err)
	}

	fields, err := s.parse(body)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		fields["source_url"] = url
	}
	return fields, nil
}

// parse walks label/value table cells. It extracts only what the schema
// names; site redesigns degrade to an empty map, not a parse failure.
func (s *NasdaqScraper) parse(body []byte) (map[string]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	fields := make(map[string]string)
	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td, th")
		if cells.Length() < 2 {
			return
		}
		label := normalizeLabel(cells.Eq(0).Text())
		field, ok := nasdaqLabelFields[label]
		if !ok {
			return
		}
		value := strings.TrimSpace(cells.Eq(1).Text())
		if value == "" || value == "--" {
			return
		}
		switch field {
		case "earnings_date", "ex_dividend_date":
			if iso, ok := parseDate(value); ok {
				fields[field] = iso
			}
		case "announcement_time", "consensus_rating":
			fields[field] = value
		default:
			if v, ok := parseFloat(value); ok {
				fields[field] = formatFloat(v)
			}
		}
	})

	if date, ok := fields["earnings_date"]; ok {
		if q, y, ok := quarterOf(date); ok {
			fields["quarter"] = fmt.Sprintf("%d", q)
			fields["year"] = fmt.Sprintf("%d", y)
			fields["date_earnings_report"] = date
		}
	}
	if actualText, ok := fields["reported_earnings_per_share"]; ok {
		fields["actual_eps"] = actualText
		if estText, ok := fields["estimated_eps"]; ok {
			actual, _ := parseFloat(actualText)
			est, _ := parseFloat(estText)
			fields["beat_miss_meet"] = beatMissMeet(actual, est)
			if sp, ok := surprisePercent(actual, est); ok {
				fields["surprise_percent"] = sp
			}
		}
	}
	return fields, nil
}

func normalizeLabel(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))
	text = strings.ReplaceAll(text, "-", " ")
	text = strings.TrimSuffix(text, ":")
	return strings.Join(strings.Fields(text), " ")
}
