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

const defaultFMPBaseURL = "https://financialmodelingprep.com/api/v3"

// FMPClient fetches the historical earnings calendar from Financial
// Modeling Prep.
type FMPClient struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
	delay   time.Duration
}

type fmpEarning struct {
	Date             string   `json:"date"`
	EPS              *float64 `json:"eps"`
	EPSEstimated     *float64 `json:"epsEstimated"`
	Revenue          *float64 `json:"revenue"`
	RevenueEstimated *float64 `json:"revenueEstimated"`
	Time             string   `json:"time"`
}

// NewFMPClient wires the client; baseURL may be empty for production.
func NewFMPClient(name, baseURL, apiKey string, timeout, delay time.Duration) *FMPClient {
	if baseURL == "" {
		baseURL = defaultFMPBaseURL
	}
	return &FMPClient{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  newHTTPClient(timeout),
		delay:   delay,
	}
}

func (c *FMPClient) Name() string { return c.name }

// Fetch returns fields from the most recent reported earnings entry.
func (c *FMPClient) Fetch(ctx context.Context, symbol string) (map[string]string, error) {
	if err := courtesyWait(ctx, c.delay); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/historical/earning_calendar/%s?apikey=%s", c.baseURL, symbol, c.apiKey)
	body, err := get(ctx, c.client, url)
	if err != nil {
		return nil, fmt.Errorf("fmp %s: %w", symbol, err)
	}

	// FMP reports plan limits in a JSON object instead of an HTTP status.
	var limitNote struct {
		ErrorMessage string `json:"Error Message"`
	}
	if err := json.Unmarshal(body, &limitNote); err == nil && limitNote.ErrorMessage != "" {
		if strings.Contains(strings.ToLower(limitNote.ErrorMessage), "limit") {
			return nil, fmt.Errorf("fmp %s: %s: %w", symbol, limitNote.ErrorMessage, resilience.ErrRateLimited)
		}
		return nil, fmt.Errorf("fmp %s: %s", symbol, limitNote.ErrorMessage)
	}

	var entries []fmpEarning
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, &resilience.ParseError{Source: c.name, Err: err}
	}

	return c.toFields(entries), nil
}

// toFields converts the newest past entry; future-dated entries supply the
// upcoming report date only.
func (c *FMPClient) toFields(entries []fmpEarning) map[string]string {
	today := time.Now().Format("2006-01-02")
	fields := make(map[string]string)

	for _, e := range entries {
		iso, ok := parseDate(e.Date)
		if !ok {
			continue
		}
		if iso > today {
			continue
		}

		fields["earnings_date"] = iso
		fields["date_earnings_report"] = iso
		if q, y, ok := quarterOf(iso); ok {
			fields["quarter"] = strconv.Itoa(q)
			fields["year"] = strconv.Itoa(y)
		}
		if e.Time != "" {
			fields["announcement_time"] = strings.ToUpper(e.Time)
		}
		if e.EPSEstimated != nil {
			fields["estimated_eps"] = formatFloat(*e.EPSEstimated)
			fields["estimated_earnings_per_share"] = formatFloat(*e.EPSEstimated)
		}
		if e.EPS != nil {
			fields["actual_eps"] = formatFloat(*e.EPS)
			fields["reported_earnings_per_share"] = formatFloat(*e.EPS)
		}
		if e.EPS != nil && e.EPSEstimated != nil {
			fields["beat_miss_meet"] = beatMissMeet(*e.EPS, *e.EPSEstimated)
			fields["earnings_report_result"] = fields["beat_miss_meet"]
			if sp, ok := surprisePercent(*e.EPS, *e.EPSEstimated); ok {
				fields["surprise_percent"] = sp
			}
		}
		if e.Revenue != nil {
			fields["revenue_billions"] = formatFloat(*e.Revenue / 1e9)
		}
		break // entries are newest-first; one reported entry is enough
	}
	return fields
}
