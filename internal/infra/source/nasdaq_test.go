package source

import "testing"

const earningsTableHTML = `
<html><body>
<table>
<tr><td>Earnings Date:</td><td>Feb 1, 2026</td></tr>
<tr><td>Reported EPS</td><td>$2.40</td></tr>
<tr><td>Estimated EPS</td><td>$2.10</td></tr>
<tr><td>Market Cap</td><td>2,950,000</td></tr>
<tr><td>Dividend Yield</td><td>0.55%</td></tr>
<tr><td>Ex-Dividend Date</td><td>02/10/2026</td></tr>
<tr><td>Consensus Rating</td><td>Buy</td></tr>
<tr><td>Some Label We Ignore</td><td>whatever</td></tr>
<tr><td>Volume</td><td>--</td></tr>
</table>
</body></html>`

func TestNasdaqParse(t *testing.T) {
	s := NewNasdaqScraper("nasdaq", "", 0, 0)
	fields, err := s.parse([]byte(earningsTableHTML))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	want := map[string]string{
		"earnings_date":               "2026-02-01",
		"reported_earnings_per_share": "2.4",
		"actual_eps":                  "2.4",
		"estimated_eps":               "2.1",
		"beat_miss_meet":              "BEAT",
		"market_cap":                  "2950000",
		"dividend_yield":              "0.55",
		"ex_dividend_date":            "2026-02-10",
		"consensus_rating":            "Buy",
		"quarter":                     "1",
		"year":                        "2026",
		"date_earnings_report":        "2026-02-01",
	}
	for field, wantVal := range want {
		if got := fields[field]; got != wantVal {
			t.Errorf("%s = %q, want %q", field, got, wantVal)
		}
	}

	// Placeholder cells and unknown labels are dropped.
	if _, ok := fields["volume"]; ok {
		t.Error("placeholder volume cell should be dropped")
	}

	// Derived surprise percent: (2.40-2.10)/2.10*100.
	if got := fields["surprise_percent"]; got != "14.29" {
		t.Errorf("surprise_percent = %q, want 14.29", got)
	}
}

func TestNasdaqParseEmptyPage(t *testing.T) {
	s := NewNasdaqScraper("nasdaq", "", 0, 0)
	fields, err := s.parse([]byte("<html><body><p>nothing here</p></body></html>"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(fields) != 0 {
		t.Errorf("fields = %v, want empty map for a page without the table", fields)
	}
}

func TestNasdaqPageURL(t *testing.T) {
	s := NewNasdaqScraper("nasdaq", "", 0, 0)
	want := "https://www.nasdaq.com/market-activity/stocks/aapl/earnings"
	if got := s.PageURL("AAPL"); got != want {
		t.Errorf("PageURL = %q, want %q", got, want)
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Earnings Date:", "earnings date"},
		{"  Ex-Dividend   Date ", "ex dividend date"},
		{"200-Day Moving Average", "200 day moving average"},
	}
	for _, tc := range cases {
		if got := normalizeLabel(tc.in); got != tc.want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
