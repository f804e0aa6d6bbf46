package config

import (
	"time"

	redisclient "github.com/vietddude/curator/internal/infra/redis"
	"github.com/vietddude/curator/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server    ServerConfig       `yaml:"server"`
	Logging   LoggingConfig      `yaml:"logging"`
	Database  postgres.Config    `yaml:"database"`
	Redis     redisclient.Config `yaml:"redis"`
	Companies CompaniesConfig    `yaml:"companies"`
	Batch     BatchConfig        `yaml:"batch"`
	Retry     RetryConfig        `yaml:"retry"`
	Breaker   BreakerConfig      `yaml:"breaker"`
	Schema    SchemaConfig       `yaml:"schema"`
	Sources   []SourceConfig     `yaml:"sources"`
}

// ServerConfig holds HTTP status server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// CompaniesConfig locates the work-item list.
type CompaniesConfig struct {
	File string `yaml:"file"`
}

// BatchConfig controls the orchestrator.
type BatchConfig struct {
	CheckpointInterval     int  `yaml:"checkpoint_interval"`
	MaxConsecutiveFailures int  `yaml:"max_consecutive_failures"`
	Resume                 bool `yaml:"resume"`
}

// RetryConfig controls per-call retry behavior for source fetches.
type RetryConfig struct {
	MaxRetries     int           `yaml:"max_retries"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	MaxDelay       time.Duration `yaml:"max_delay"`
	Exponential    bool          `yaml:"exponential"`
	RetryableKinds []string      `yaml:"retryable_kinds"`
}

// BreakerConfig controls the per-source circuit breakers.
type BreakerConfig struct {
	FailureThreshold int           `yaml:"failure_threshold"`
	Timeout          time.Duration `yaml:"timeout"`
}

// SchemaConfig is the versioned required-field schema. The enricher and the
// validator share this single source of truth.
type SchemaConfig struct {
	Version        int      `yaml:"version"`
	RequiredFields []string `yaml:"required_fields"`
}

// SourceConfig holds settings for one data source. Sources are tried in the
// order they appear in the config; the first entry is the primary.
type SourceConfig struct {
	Name         string        `yaml:"name"`
	Type         string        `yaml:"type"` // nasdaq, fmp, alpha_vantage, finnhub
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"api_key"`
	RequestDelay time.Duration `yaml:"request_delay"`
	Timeout      time.Duration `yaml:"timeout"`
}
