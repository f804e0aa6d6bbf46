package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
logging:
  level: info
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Batch.CheckpointInterval != 10 {
		t.Errorf("checkpoint interval = %d, want 10", cfg.Batch.CheckpointInterval)
	}
	if cfg.Batch.MaxConsecutiveFailures != 10 {
		t.Errorf("max consecutive failures = %d, want 10", cfg.Batch.MaxConsecutiveFailures)
	}
	if cfg.Retry.MaxRetries != 3 || cfg.Retry.BaseDelay != time.Second || !cfg.Retry.Exponential {
		t.Errorf("retry defaults = %+v", cfg.Retry)
	}
	if cfg.Breaker.FailureThreshold != 5 || cfg.Breaker.Timeout != 60*time.Second {
		t.Errorf("breaker defaults = %+v", cfg.Breaker)
	}
	if len(cfg.Schema.RequiredFields) != 36 {
		t.Errorf("required fields = %d, want 36", len(cfg.Schema.RequiredFields))
	}
	if cfg.Schema.Version != 1 {
		t.Errorf("schema version = %d, want 1", cfg.Schema.Version)
	}
	if len(cfg.Retry.RetryableKinds) != 2 {
		t.Errorf("retryable kinds = %v, want network and rate_limit", cfg.Retry.RetryableKinds)
	}
}

func TestLoadExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_CURATOR_DB_URL", "postgres://test:5432/curator")
	path := writeConfig(t, `
database:
  url: ${TEST_CURATOR_DB_URL}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.URL != "postgres://test:5432/curator" {
		t.Errorf("database url = %q, env var not expanded", cfg.Database.URL)
	}
}

func TestLoadSources(t *testing.T) {
	path := writeConfig(t, `
sources:
  - name: nasdaq
    type: nasdaq
    request_delay: 1s
  - name: fmp
    type: fmp
    api_key: secret
    timeout: 10s
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.Sources) != 2 {
		t.Fatalf("sources = %d, want 2", len(cfg.Sources))
	}
	// Order is priority.
	if cfg.Sources[0].Name != "nasdaq" || cfg.Sources[1].Name != "fmp" {
		t.Errorf("source order = %s, %s", cfg.Sources[0].Name, cfg.Sources[1].Name)
	}
	if cfg.Sources[0].Timeout != 30*time.Second {
		t.Errorf("default source timeout = %v, want 30s", cfg.Sources[0].Timeout)
	}
	if cfg.Sources[1].Timeout != 10*time.Second {
		t.Errorf("explicit source timeout = %v, want 10s", cfg.Sources[1].Timeout)
	}
}

func TestShippedConfigSourceURLs(t *testing.T) {
	cfg, err := Load("../../../config.yaml")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	// The clients build request URLs directly on base_url, so the shipped
	// config must carry the full endpoint paths.
	want := map[string]string{
		"nasdaq":        "https://www.nasdaq.com/market-activity/stocks",
		"fmp":           "https://financialmodelingprep.com/api/v3",
		"alpha_vantage": "https://www.alphavantage.co/query",
		"finnhub":       "https://finnhub.io/api/v1",
	}
	if len(cfg.Sources) != len(want) {
		t.Fatalf("sources = %d, want %d", len(cfg.Sources), len(want))
	}
	for _, sc := range cfg.Sources {
		if url, ok := want[sc.Name]; !ok {
			t.Errorf("unexpected source %q", sc.Name)
		} else if sc.BaseURL != url {
			t.Errorf("%s base_url = %q, want %q", sc.Name, sc.BaseURL, url)
		}
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("does-not-exist.yaml"); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
