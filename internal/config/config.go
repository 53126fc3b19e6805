// contractintel/internal/config/config.go

package config

import (
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ModelTierConfig describes the model and per-token pricing bound to a
// single complexity tier.
type ModelTierConfig struct {
	Model           string  `yaml:"model"`
	InputPerMillion float64 `yaml:"input_per_million"`
	OutPerMillion   float64 `yaml:"output_per_million"`
}

// RouterConfig controls ModelRouter's timeout, retry and breaker behavior.
type RouterConfig struct {
	Tiers           map[string]ModelTierConfig `yaml:"tiers"`
	DefaultTimeout  time.Duration              `yaml:"default_timeout"`
	MaxTimeout      time.Duration              `yaml:"max_timeout"`
	MaxRetries      int                        `yaml:"max_retries"`
	BaseBackoff     time.Duration              `yaml:"base_backoff"`
	MaxBackoff      time.Duration              `yaml:"max_backoff"`
	BreakerFailMax  int                        `yaml:"breaker_fail_max"`
	BreakerResetAfter time.Duration            `yaml:"breaker_reset_after"`
	BreakerHalfOpenMax int                     `yaml:"breaker_half_open_max"`
}

// LedgerConfig controls CostLedger's Redis connection and retention.
type LedgerConfig struct {
	RedisAddr      string        `yaml:"redis_addr"`
	RedisDB        int           `yaml:"redis_db"`
	RawRetention   time.Duration `yaml:"raw_retention"`
	AggRetention   time.Duration `yaml:"agg_retention"`
}

// PipelineConfig controls chunking and the analysis pipeline's overall
// time budget.
type PipelineConfig struct {
	ChunkSize       int           `yaml:"chunk_size"`
	ChunkOverlap    int           `yaml:"chunk_overlap"`
	OverallDeadline time.Duration `yaml:"overall_deadline"`
}

// RetrieveConfig holds HybridRetriever's fan-out width and RRF constant as
// read from YAML. Nothing in this module passes these values on to
// HybridRetriever, which runs with retrieve.DefaultRetrieveOptions.
type RetrieveConfig struct {
	VectorK int `yaml:"vector_k"`
	RRFK    int `yaml:"rrf_k"`
}

// TelemetryConfig controls OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Endpoint       string `yaml:"endpoint"`
	Insecure       bool   `yaml:"insecure"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	Environment    string `yaml:"environment"`
}

type Config struct {
	Router    RouterConfig    `yaml:"router"`
	Ledger    LedgerConfig    `yaml:"ledger"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	OTel      TelemetryConfig `yaml:"otel"`
}

// LoadConfig reads the configuration from a YAML file, unmarshals it into a
// Config struct and fills in any unset fields with safe defaults.
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		logrus.WithError(err).Error("failed to read config file")
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		logrus.WithError(err).Error("failed to unmarshal config")
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	applyDefaults(&cfg)

	logrus.Info("configuration loaded successfully")
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Router.Tiers == nil {
		cfg.Router.Tiers = DefaultTiers()
		logrus.Info("no model tiers configured, using defaults")
	}
	if cfg.Router.DefaultTimeout <= 0 {
		cfg.Router.DefaultTimeout = 30 * time.Second
	}
	if cfg.Router.MaxTimeout <= 0 {
		cfg.Router.MaxTimeout = 120 * time.Second
	}
	if cfg.Router.MaxRetries <= 0 {
		cfg.Router.MaxRetries = 3
	}
	if cfg.Router.BaseBackoff <= 0 {
		cfg.Router.BaseBackoff = 200 * time.Millisecond
	}
	if cfg.Router.MaxBackoff <= 0 {
		cfg.Router.MaxBackoff = 5 * time.Second
	}
	if cfg.Router.BreakerFailMax <= 0 {
		cfg.Router.BreakerFailMax = 5
	}
	if cfg.Router.BreakerResetAfter <= 0 {
		cfg.Router.BreakerResetAfter = 30 * time.Second
	}
	if cfg.Router.BreakerHalfOpenMax <= 0 {
		cfg.Router.BreakerHalfOpenMax = 1
	}

	if cfg.Ledger.RedisAddr == "" {
		cfg.Ledger.RedisAddr = "localhost:6379"
	}
	if cfg.Ledger.RawRetention <= 0 {
		cfg.Ledger.RawRetention = 7 * 24 * time.Hour
	}
	if cfg.Ledger.AggRetention <= 0 {
		cfg.Ledger.AggRetention = 30 * 24 * time.Hour
	}

	if cfg.Pipeline.ChunkSize <= 0 {
		cfg.Pipeline.ChunkSize = 1000
	}
	if cfg.Pipeline.ChunkOverlap <= 0 {
		cfg.Pipeline.ChunkOverlap = 200
	}
	if cfg.Pipeline.OverallDeadline <= 0 {
		cfg.Pipeline.OverallDeadline = 60 * time.Second
	}

	if cfg.Retrieve.VectorK <= 0 {
		cfg.Retrieve.VectorK = 20
	}
	if cfg.Retrieve.RRFK <= 0 {
		cfg.Retrieve.RRFK = 60
	}

	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "contractintel"
	}
	if cfg.OTel.ServiceVersion == "" {
		cfg.OTel.ServiceVersion = "dev"
	}
	if cfg.OTel.Environment == "" {
		cfg.OTel.Environment = "development"
	}
}

// DefaultTiers returns the built-in complexity-to-model price table used
// when a config file doesn't specify one.
func DefaultTiers() map[string]ModelTierConfig {
	return map[string]ModelTierConfig{
		"SIMPLE":    {Model: "small-fast", InputPerMillion: 0.15, OutPerMillion: 0.60},
		"BALANCED":  {Model: "mid-tier", InputPerMillion: 1.00, OutPerMillion: 3.00},
		"COMPLEX":   {Model: "large", InputPerMillion: 3.00, OutPerMillion: 15.00},
		"REASONING": {Model: "reasoning", InputPerMillion: 10.00, OutPerMillion: 40.00},
	}
}
