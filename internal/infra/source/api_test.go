package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/vietddude/curator/internal/core/domain"
	"github.com/vietddude/curator/internal/resilience"
)

func jsonServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFMPFieldMapping(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[
		{"date": "2020-01-28", "eps": 4.99, "epsEstimated": 4.55, "revenue": 91819000000, "time": "amc"}
	]`)
	c := NewFMPClient("fmp", srv.URL, "key", 0, 0)

	fields, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := map[string]string{
		"earnings_date":     "2020-01-28",
		"quarter":           "1",
		"year":              "2020",
		"actual_eps":        "4.99",
		"estimated_eps":     "4.55",
		"beat_miss_meet":    "BEAT",
		"announcement_time": "AMC",
		"revenue_billions":  "91.819",
	}
	for field, wantVal := range want {
		if got := fields[field]; got != wantVal {
			t.Errorf("%s = %q, want %q", field, got, wantVal)
		}
	}
}

func TestFMPSkipsFutureEntries(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[
		{"date": "2999-01-01", "epsEstimated": 5.00},
		{"date": "2020-01-28", "eps": 4.99, "epsEstimated": 4.55}
	]`)
	c := NewFMPClient("fmp", srv.URL, "key", 0, 0)

	fields, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got := fields["earnings_date"]; got != "2020-01-28" {
		t.Errorf("earnings_date = %q, want the newest past entry", got)
	}
}

// FMP reports plan limits inside a 200 response.
func TestFMPRateLimitNote(t *testing.T) {
	srv := jsonServer(t, http.StatusOK,
		`{"Error Message": "Limit Reach. Please upgrade your plan"}`)
	c := NewFMPClient("fmp", srv.URL, "key", 0, 0)

	_, err := c.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, resilience.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
	if got := resilience.Classify(err); got != domain.ErrorKindRateLimit {
		t.Errorf("Classify = %v, want rate_limit", got)
	}
}

func TestAlphaVantageRateLimitNote(t *testing.T) {
	srv := jsonServer(t, http.StatusOK,
		`{"Note": "Thank you for using Alpha Vantage! Our standard API call frequency is 5 calls per minute"}`)
	c := NewAlphaVantageClient("alpha_vantage", srv.URL, "key", 0, 0)

	_, err := c.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, resilience.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestAlphaVantageFieldMapping(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{
		"quarterlyEarnings": [
			{"fiscalDateEnding": "2019-12-31", "reportedDate": "2020-01-28",
			 "reportedEPS": "4.99", "estimatedEPS": "4.55", "surprisePercentage": "9.6703"}
		]
	}`)
	c := NewAlphaVantageClient("alpha_vantage", srv.URL, "key", 0, 0)

	fields, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := map[string]string{
		"earnings_date":    "2020-01-28",
		"actual_eps":       "4.99",
		"estimated_eps":    "4.55",
		"beat_miss_meet":   "BEAT",
		"surprise_percent": "9.67",
	}
	for field, wantVal := range want {
		if got := fields[field]; got != wantVal {
			t.Errorf("%s = %q, want %q", field, got, wantVal)
		}
	}

	// The API key never leaks into the record.
	if got := fields["source_url"]; got == "" || strings.Contains(got, "apikey") {
		t.Errorf("source_url = %q, must not carry the api key", got)
	}
}

func TestAlphaVantageEmptyHistory(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `{"quarterlyEarnings": []}`)
	c := NewAlphaVantageClient("alpha_vantage", srv.URL, "key", 0, 0)

	fields, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if fields != nil {
		t.Errorf("fields = %v, want nil for empty history", fields)
	}
}

func TestFinnhubFieldMapping(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `[
		{"actual": 4.99, "estimate": 4.55, "period": "2019-12-31",
		 "quarter": 4, "year": 2019, "surprisePercent": 9.6703}
	]`)
	c := NewFinnhubClient("finnhub", srv.URL, "key", 0, 0)

	fields, err := c.Fetch(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := map[string]string{
		"earnings_date":    "2019-12-31",
		"quarter":          "4",
		"year":             "2019",
		"actual_eps":       "4.99",
		"estimated_eps":    "4.55",
		"beat_miss_meet":   "BEAT",
		"surprise_percent": "9.67",
	}
	for field, wantVal := range want {
		if got := fields[field]; got != wantVal {
			t.Errorf("%s = %q, want %q", field, got, wantVal)
		}
	}
}

func TestGetRateLimitStatus(t *testing.T) {
	srv := jsonServer(t, http.StatusTooManyRequests, `slow down`)
	c := NewFinnhubClient("finnhub", srv.URL, "key", 0, 0)

	_, err := c.Fetch(context.Background(), "AAPL")
	if !errors.Is(err, resilience.ErrRateLimited) {
		t.Fatalf("err = %v, want ErrRateLimited", err)
	}
}

func TestGetServerErrorClassifiesNetwork(t *testing.T) {
	srv := jsonServer(t, http.StatusBadGateway, `upstream down`)
	c := NewFMPClient("fmp", srv.URL, "key", 0, 0)

	_, err := c.Fetch(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := resilience.Classify(err); got != domain.ErrorKindNetwork {
		t.Errorf("Classify = %v, want network", got)
	}
}

func TestMalformedJSONClassifiesParsing(t *testing.T) {
	srv := jsonServer(t, http.StatusOK, `<html>definitely not json</html>`)
	c := NewFinnhubClient("finnhub", srv.URL, "key", 0, 0)

	_, err := c.Fetch(context.Background(), "AAPL")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := resilience.Classify(err); got != domain.ErrorKindParsing {
		t.Errorf("Classify = %v, want parsing", got)
	}
}
