package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/vietddude/curator/internal/resilience"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Source fetches partial record fields for one symbol. A nil or empty map
// with a nil error is a valid outcome meaning "no data from this source";
// errors must be classifiable.
type Source interface {
	Name() string
	Fetch(ctx context.Context, symbol string) (map[string]string, error)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// get performs a GET with the shared UA header and returns the body.
// Rate-limit statuses surface as resilience.ErrRateLimited so the retry
// layer can classify them structurally.
func get(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, resilience.ErrRateLimited)
	case resp.StatusCode >= 400:
		return nil, fmt.Errorf("http error: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

// courtesyWait sleeps the per-source request delay, honoring cancellation.
func courtesyWait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}
