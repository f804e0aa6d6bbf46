package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/vietddude/curator/internal/resilience"
)

const defaultFinnhubBaseURL = "https://finnhub.io/api/v1"

// FinnhubClient fetches earnings surprises from Finnhub.
type FinnhubClient struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	delay   time.Duration
}

type finnhubEarning struct {
	Actual          *float64 `json:"actual"`
	Estimate        *float64 `json:"estimate"`
	Period          string   `json:"period"`
	Quarter         int      `json:"quarter"`
	Year            int      `json:"year"`
	SurprisePercent *float64 `json:"surprisePercent"`
}

// NewFinnhubClient wires the client; baseURL may be empty for production.
func NewFinnhubClient(name, baseURL, apiKey string, timeout, delay time.Duration) *FinnhubClient {
	if baseURL == "" {
		baseURL = defaultFinnhubBaseURL
	}
	return &FinnhubClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		delay:   delay,
	}
}

func (c *FinnhubClient) Name() string { return c.name }

// Fetch returns fields from the most recent earnings surprise entry.
func (c *FinnhubClient) Fetch(ctx context.Context, symbol string) (map[string]string, error) {
	if err := courtesyWait(ctx, c.delay); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/stock/earnings?symbol=%s&token=%s", c.baseURL, symbol, c.apiKey)
	body, err := get(ctx, c.client, url)
	if err != nil {
		return nil, fmt.Errorf("finnhub %s: %w", symbol, err)
	}

	var entries []finnhubEarning
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &resilience.ParseError{Source: c.name, Err: err}
	}
	if len(entries) == 0 {
		return nil, nil
	}

	latest := entries[0]
	fields := make(map[string]string)

	if iso, ok := parseDate(latest.Period); ok {
		fields["earnings_date"] = iso
		fields["date_earnings_report"] = iso
	}
	if latest.Quarter > 0 {
		fields["quarter"] = strconv.Itoa(latest.Quarter)
	}
	if latest.Year > 0 {
		fields["year"] = strconv.Itoa(latest.Year)
	}
	if latest.Actual != nil {
		fields["actual_eps"] = formatFloat(*latest.Actual)
		fields["reported_earnings_per_share"] = formatFloat(*latest.Actual)
	}
	if latest.Estimate != nil {
		fields["estimated_eps"] = formatFloat(*latest.Estimate)
		fields["estimated_earnings_per_share"] = formatFloat(*latest.Estimate)
	}
	if latest.Actual != nil && latest.Estimate != nil {
		fields["beat_miss_meet"] = beatMissMeet(*latest.Actual, *latest.Estimate)
		fields["earnings_report_result"] = fields["beat_miss_meet"]
	}
	if latest.SurprisePercent != nil {
		fields["surprise_percent"] = fmt.Sprintf("%.2f", *latest.SurprisePercent)
	}
	return fields, nil
}
