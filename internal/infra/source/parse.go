package source

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var numberCleaner = regexp.MustCompile(`[,$%()"]`)

// parseFloat extracts a float from scraped text like "$1.64", "(0.12)",
// "1,234.5". Returns ok=false for placeholder cells.
func parseFloat(text string) (float64, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text == "-" || text == "--" || strings.EqualFold(text, "N/A") {
		return 0, false
	}
	negative := strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")")
	cleaned := numberCleaner.ReplaceAllString(text, "")
	v, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

var dateFormats = []string{
	"2006-01-02", "01/02/2006", "01-02-2006", "2006/01/02",
	"Jan 2, 2006", "January 2, 2006", "2 Jan 2006",
}

// parseDate normalizes scraped dates to ISO form.
func parseDate(text string) (string, bool) {
	text = strings.TrimSpace(text)
	if text == "" || text == "-" || strings.EqualFold(text, "N/A") {
		return "", false
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, text); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// quarterOf derives calendar quarter and year from an ISO date.
func quarterOf(isoDate string) (quarter, year int, ok bool) {
	t, err := time.Parse("2006-01-02", isoDate)
	if err != nil {
		return 0, 0, false
	}
	return (int(t.Month())-1)/3 + 1, t.Year(), true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// beatMissMeet compares reported against estimated EPS.
func beatMissMeet(actual, estimated float64) string {
	switch {
	case actual > estimated:
		return "BEAT"
	case actual < estimated:
		return "MISS"
	default:
		return "MEET"
	}
}

// surprisePercent is the reported EPS deviation from the estimate.
func surprisePercent(actual, estimated float64) (string, bool) {
	if estimated == 0 {
		return "", false
	}
	return fmt.Sprintf("%.2f", (actual-estimated)/estimated*100), true
}
