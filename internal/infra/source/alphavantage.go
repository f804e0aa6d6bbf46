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

const defaultAlphaVantageBaseURL = "https://www.alphavantage.co/query"

// AlphaVantageClient fetches quarterly earnings history from Alpha Vantage.
type AlphaVantageClient struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	delay   time.Duration
}

type alphaVantagePayload struct {
	// Alpha Vantage signals throttling inside a 200 response.
	Note        string `json:"Note"`
	Information string `json:"Information"`

	Quarterly []struct {
		FiscalDateEnding   string `json:"fiscalDateEnding"`
		ReportedDate       string `json:"reportedDate"`
		ReportedEPS        string `json:"reportedEPS"`
		EstimatedEPS       string `json:"estimatedEPS"`
		SurprisePercentage string `json:"surprisePercentage"`
	} `json:"quarterlyEarnings"`
}

// NewAlphaVantageClient wires the client; baseURL may be empty for production.
func NewAlphaVantageClient(name, baseURL, apiKey string, timeout, delay time.Duration) *AlphaVantageClient {
	if baseURL == "" {
		baseURL = defaultAlphaVantageBaseURL
	}
	return &AlphaVantageClient{
		name:    name,
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		delay:   delay,
	}
}

func (c *AlphaVantageClient) Name() string { return c.name }

// Fetch returns fields from the most recent quarterly earnings entry.
func (c *AlphaVantageClient) Fetch(ctx context.Context, symbol string) (map[string]string, error) {
	if err := courtesyWait(ctx, c.delay); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s?function=EARNINGS&symbol=%s&apikey=%s", c.baseURL, symbol, c.apiKey)
	body, err := get(ctx, c.client, url)
	if err != nil {
		return nil, fmt.Errorf("alpha vantage %s: %w", symbol, err)
	}

	var payload alphaVantagePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, &resilience.ParseError{Source: c.name, Err: err}
	}
	if payload.Note != "" || payload.Information != "" {
		return nil, fmt.Errorf("alpha vantage %s: %w", symbol, resilience.ErrRateLimited)
	}
	if len(payload.Quarterly) == 0 {
		return nil, nil
	}

	latest := payload.Quarterly[0]
	fields := make(map[string]string)

	if iso, ok := parseDate(latest.ReportedDate); ok {
		fields["earnings_date"] = iso
		fields["date_earnings_report"] = iso
		if q, y, ok := quarterOf(iso); ok {
			fields["quarter"] = strconv.Itoa(q)
			fields["year"] = strconv.Itoa(y)
		}
	}

	actual, hasActual := parseFloat(latest.ReportedEPS)
	est, hasEst := parseFloat(latest.EstimatedEPS)
	if hasActual {
		fields["actual_eps"] = formatFloat(actual)
		fields["reported_earnings_per_share"] = formatFloat(actual)
	}
	if hasEst {
		fields["estimated_eps"] = formatFloat(est)
		fields["estimated_earnings_per_share"] = formatFloat(est)
	}
	if hasActual && hasEst {
		fields["beat_miss_meet"] = beatMissMeet(actual, est)
		fields["earnings_report_result"] = fields["beat_miss_meet"]
	}
	if sp, ok := parseFloat(latest.SurprisePercentage); ok {
		fields["surprise_percent"] = fmt.Sprintf("%.2f", sp)
	}
	if len(fields) > 0 {
		fields["source_url"] = strings.Split(url, "&apikey=")[0]
	}
	return fields, nil
}
