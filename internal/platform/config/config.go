// Package config loads runtime configuration from environment variables,
// with an optional .env file for local runs.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"local"`
	VaultRoot string `env:"VAULT_ROOT,required,notEmpty"`

	// Feed ingestion
	MaxItemsPerFeed   int           `env:"MAX_ITEMS_PER_FEED" envDefault:"50"`
	MaxTotalItems     int           `env:"MAX_TOTAL_ITEMS" envDefault:"400"`
	LookbackDays      int           `env:"LOOKBACK_DAYS" envDefault:"7"`
	FeedFetchRPS      float64       `env:"FEED_FETCH_RPS" envDefault:"2"`
	SummaryMaxChars   int           `env:"SUMMARY_MAX_CHARS" envDefault:"500"`
	EnrichmentEnabled bool          `env:"ENRICHMENT_ENABLED" envDefault:"false"`
	EnrichmentTimeout time.Duration `env:"ENRICHMENT_TIMEOUT" envDefault:"20s"`

	// Triage
	MinScoreRead float64 `env:"MIN_SCORE_READ" envDefault:"0.65"`
	MaxReturned  int     `env:"MAX_RETURNED" envDefault:"40"`

	// Topic redundancy
	TopicRedundancy             bool `env:"TOPIC_REDUNDANCY" envDefault:"true"`
	TopicRedundancyLookbackDays int  `env:"TOPIC_REDUNDANCY_LOOKBACK_DAYS" envDefault:"56"`
	TopicRedundancyBatchSize    int  `env:"TOPIC_REDUNDANCY_BATCH_SIZE" envDefault:"25"`

	// Topic gardener
	TopicGardener bool `env:"TOPIC_GARDENER" envDefault:"true"`

	// LLM backend
	LLMAPIKey    string  `env:"LLM_API_KEY,required,notEmpty"`
	LLMModel     string  `env:"LLM_MODEL" envDefault:"gpt-4o-mini"`
	RateLimitRPS float64 `env:"RATE_LIMIT_RPS" envDefault:"1"`

	// Observability
	MetricsPort int `env:"METRICS_PORT" envDefault:"0"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}

// Lookback returns the ingestion window as a duration.
func (c *Config) Lookback() time.Duration {
	return time.Duration(c.LookbackDays) * 24 * time.Hour
}

// RedundancyLookback returns the topic-redundancy window as a duration.
func (c *Config) RedundancyLookback() time.Duration {
	return time.Duration(c.TopicRedundancyLookbackDays) * 24 * time.Hour
}
