package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration
type Config struct {
	Dataset   DatasetConfig   `mapstructure:"dataset"`
	Forecast  ForecastConfig  `mapstructure:"forecast"`
	Ranking   RankingConfig   `mapstructure:"ranking"`
	Presenter PresenterConfig `mapstructure:"presenter"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// DatasetConfig holds where election results come from and how they are fetched
type DatasetConfig struct {
	Location     string        `mapstructure:"location"` // Local path or http(s) URL
	MaxRecords   int           `mapstructure:"max_records" validate:"min=1"`
	MaxBytes     int64         `mapstructure:"max_bytes" validate:"min=1024"`
	Timeout      time.Duration `mapstructure:"timeout" validate:"min=1s"`
	MaxRetries   int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryWaitMin time.Duration `mapstructure:"retry_wait_min"`
	RetryWaitMax time.Duration `mapstructure:"retry_wait_max"`
}

// ForecastConfig holds prior, survey and simulation settings
type ForecastConfig struct {
	PriorMode           string  `mapstructure:"prior_mode" validate:"oneof=fixed record"`
	PriorLeadVotes      float64 `mapstructure:"prior_lead_votes" validate:"min=0"`
	PriorTrailVotes     float64 `mapstructure:"prior_trail_votes" validate:"min=0"`
	PriorWeight         float64 `mapstructure:"prior_weight" validate:"gt=0,lte=1"`
	SurveyLead          int     `mapstructure:"survey_lead" validate:"min=0"`
	SurveyTrail         int     `mapstructure:"survey_trail" validate:"min=0"`
	SurveyMax           int     `mapstructure:"survey_max" validate:"min=1"`
	Simulations         int     `mapstructure:"simulations" validate:"min=1"`
	MinSimulations      int     `mapstructure:"min_simulations" validate:"min=1"`
	MaxSimulations      int     `mapstructure:"max_simulations" validate:"min=1"`
	SimulationStep      int     `mapstructure:"simulation_step" validate:"min=1"`
	EngineSimulationCap int     `mapstructure:"engine_simulation_cap" validate:"min=1"`
	Seed                uint64  `mapstructure:"seed"` // 0 seeds from the runtime
	CurvePoints         int     `mapstructure:"curve_points" validate:"min=2,max=100000"`
}

// RankingConfig holds settings for forecasting every constituency at once
type RankingConfig struct {
	Workers int `mapstructure:"workers" validate:"min=1,max=256"`
	TopK    int `mapstructure:"top_k" validate:"min=1"`
}

// PresenterConfig holds display-only settings
type PresenterConfig struct {
	CoordinateSeed int64   `mapstructure:"coordinate_seed"`
	MinLatitude    float64 `mapstructure:"min_latitude" validate:"gte=-90,lte=90"`
	MaxLatitude    float64 `mapstructure:"max_latitude" validate:"gte=-90,lte=90"`
	MinLongitude   float64 `mapstructure:"min_longitude" validate:"gte=-180,lte=180"`
	MaxLongitude   float64 `mapstructure:"max_longitude" validate:"gte=-180,lte=180"`
}

// CacheConfig holds forecast view cache settings
type CacheConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken       string        `mapstructure:"bot_token"`
	ChatID         string        `mapstructure:"chat_id"`
	Enabled        bool          `mapstructure:"enabled"`
	MaxRetries     int           `mapstructure:"max_retries" validate:"min=0,max=10"`
	RetryDelayBase time.Duration `mapstructure:"retry_delay_base"`
	RateLimit      float64       `mapstructure:"rate_limit" validate:"gt=0"` // Messages per second
	DigestSchedule string        `mapstructure:"digest_schedule"`            // Cron spec with seconds; empty disables
	DigestTopK     int           `mapstructure:"digest_top_k" validate:"min=1"`
}

// MetricsConfig holds the metrics and health endpoint configuration
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json text"`
}

// Load reads configuration from file and environment variables.
// An empty path skips the file and uses defaults plus environment.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Enable environment variable override
	v.SetEnvPrefix("ELECTCAST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// setDefaults configures default values for all configuration options
func setDefaults(v *viper.Viper) {
	// Dataset defaults
	v.SetDefault("dataset.location", "")
	v.SetDefault("dataset.max_records", 5000)
	v.SetDefault("dataset.max_bytes", 16<<20)
	v.SetDefault("dataset.timeout", "30s")
	v.SetDefault("dataset.max_retries", 3)
	v.SetDefault("dataset.retry_wait_min", "500ms")
	v.SetDefault("dataset.retry_wait_max", "5s")

	// Forecast defaults mirror the reference form: 6000/4000 historical votes,
	// a 58/42 survey and 10,000 draws on a 1,000..50,000 slider.
	v.SetDefault("forecast.prior_mode", "fixed")
	v.SetDefault("forecast.prior_lead_votes", 6000)
	v.SetDefault("forecast.prior_trail_votes", 4000)
	v.SetDefault("forecast.prior_weight", 1.0)
	v.SetDefault("forecast.survey_lead", 58)
	v.SetDefault("forecast.survey_trail", 42)
	v.SetDefault("forecast.survey_max", 1000)
	v.SetDefault("forecast.simulations", 10000)
	v.SetDefault("forecast.min_simulations", 1000)
	v.SetDefault("forecast.max_simulations", 50000)
	v.SetDefault("forecast.simulation_step", 1000)
	v.SetDefault("forecast.engine_simulation_cap", 1000000)
	v.SetDefault("forecast.seed", 0)
	v.SetDefault("forecast.curve_points", 1000)

	// Ranking defaults
	v.SetDefault("ranking.workers", 4)
	v.SetDefault("ranking.top_k", 10)

	// Presenter defaults: bounding box around India
	v.SetDefault("presenter.coordinate_seed", 42)
	v.SetDefault("presenter.min_latitude", 8.0)
	v.SetDefault("presenter.max_latitude", 37.0)
	v.SetDefault("presenter.min_longitude", 68.0)
	v.SetDefault("presenter.max_longitude", 97.0)

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "10m")
	v.SetDefault("cache.cleanup_interval", "20m")

	// Telegram defaults
	v.SetDefault("telegram.enabled", false)
	v.SetDefault("telegram.max_retries", 3)
	v.SetDefault("telegram.retry_delay_base", "1s")
	v.SetDefault("telegram.rate_limit", 1.0)
	v.SetDefault("telegram.digest_schedule", "")
	v.SetDefault("telegram.digest_top_k", 5)

	// Metrics defaults
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen_addr", ":9090")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// GetForecastConfig returns the Forecast configuration
func (c *Config) GetForecastConfig() ForecastConfig {
	return c.Forecast
}

// GetTelegramConfig returns the Telegram configuration
func (c *Config) GetTelegramConfig() TelegramConfig {
	return c.Telegram
}

// GetLoggingConfig returns the Logging configuration
func (c *Config) GetLoggingConfig() LoggingConfig {
	return c.Logging
}
