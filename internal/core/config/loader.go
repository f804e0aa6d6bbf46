package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"
)

// defaultRequiredFields is the v1 earnings record template. A config file
// normally supplies its own list; this is the fallback so a minimal config
// still produces schema-complete records.
var defaultRequiredFields = []string{
	"symbol", "earnings_date", "quarter", "year",
	"actual_eps", "estimated_eps", "beat_miss_meet", "surprise_percent",
	"revenue_billions", "revenue_growth_percent", "consensus_rating",
	"confidence_score", "source_url", "data_verified_date",
	"stock_price_on_date", "announcement_time", "volume",
	"date_earnings_report", "market_cap",
	"price_at_close_earnings_report_date",
	"price_at_open_day_after_earnings_report_date",
	"percentage_stock_change", "earnings_report_result",
	"estimated_earnings_per_share", "reported_earnings_per_share",
	"volume_day_of_earnings_report", "volume_day_after_earnings_report",
	"moving_average_200_day", "moving_average_50_day",
	"week_52_high", "week_52_low",
	"market_sector", "market_sub_sector", "percentage_short_interest",
	"dividend_yield", "ex_dividend_date",
}

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Companies.File == "" {
		cfg.Companies.File = "sp500_companies.json"
	}
	if cfg.Batch.CheckpointInterval == 0 {
		cfg.Batch.CheckpointInterval = 10
	}
	if cfg.Batch.MaxConsecutiveFailures == 0 {
		cfg.Batch.MaxConsecutiveFailures = 10
	}
	if cfg.Retry.MaxRetries == 0 {
		cfg.Retry.MaxRetries = 3
	}
	if cfg.Retry.BaseDelay == 0 {
		cfg.Retry.BaseDelay = 1 * time.Second
		cfg.Retry.Exponential = true
	}
	if cfg.Retry.MaxDelay == 0 {
		cfg.Retry.MaxDelay = 60 * time.Second
	}
	if len(cfg.Retry.RetryableKinds) == 0 {
		cfg.Retry.RetryableKinds = []string{"network", "rate_limit"}
	}
	if cfg.Breaker.FailureThreshold == 0 {
		cfg.Breaker.FailureThreshold = 5
	}
	if cfg.Breaker.Timeout == 0 {
		cfg.Breaker.Timeout = 60 * time.Second
	}
	if cfg.Schema.Version == 0 {
		cfg.Schema.Version = 1
	}
	if len(cfg.Schema.RequiredFields) == 0 {
		cfg.Schema.RequiredFields = defaultRequiredFields
	}
	for i := range cfg.Sources {
		if cfg.Sources[i].Timeout == 0 {
			cfg.Sources[i].Timeout = 30 * time.Second
		}
	}
}
