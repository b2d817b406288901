package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" envconfig:"SERVER"`
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	History  HistoryConfig  `yaml:"history" envconfig:"HISTORY"`
	Rates    RatesConfig    `yaml:"rates" envconfig:"RATES"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int             `yaml:"port" envconfig:"PORT"`
	ReadTimeout     time.Duration   `yaml:"read_timeout" envconfig:"READ_TIMEOUT"`
	WriteTimeout    time.Duration   `yaml:"write_timeout" envconfig:"WRITE_TIMEOUT"`
	IdleTimeout     time.Duration   `yaml:"idle_timeout" envconfig:"IDLE_TIMEOUT"`
	MaxUploadBytes  int64           `yaml:"max_upload_bytes" envconfig:"MAX_UPLOAD_BYTES"`
	ShutdownTimeout time.Duration   `yaml:"shutdown_timeout" envconfig:"SHUTDOWN_TIMEOUT"`
	RateLimit       RateLimitConfig `yaml:"rate_limit" envconfig:"RATE_LIMIT"`
}

// RateLimitConfig contains request rate limiting configuration
type RateLimitConfig struct {
	Enabled bool    `yaml:"enabled" envconfig:"ENABLED"`
	RPS     float64 `yaml:"rps" envconfig:"RPS"`
	Burst   int     `yaml:"burst" envconfig:"BURST"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL"`
	Output   string `yaml:"output" envconfig:"OUTPUT"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// HistoryConfig contains the claims history repository configuration.
// An empty DSN disables the repository; analyses then run on uploaded
// files only.
type HistoryConfig struct {
	DSN           string        `yaml:"dsn" envconfig:"DSN"`
	LookbackYears int           `yaml:"lookback_years" envconfig:"LOOKBACK_YEARS"`
	QueryTimeout  time.Duration `yaml:"query_timeout" envconfig:"QUERY_TIMEOUT"`
}

// RatesConfig contains the FX rate service configuration. Providers are
// tried in order; Fallbacks supplies the hard-coded per-currency rates
// used when every provider fails.
type RatesConfig struct {
	PrimaryURL   string             `yaml:"primary_url" envconfig:"PRIMARY_URL"`
	SecondaryURL string             `yaml:"secondary_url" envconfig:"SECONDARY_URL"`
	Timeout      time.Duration      `yaml:"timeout" envconfig:"TIMEOUT"`
	Fallbacks    map[string]float64 `yaml:"fallbacks"`
}

// AnalysisConfig contains actuarial tuning parameters
type AnalysisConfig struct {
	// ReferencePerMille is the slip rate the burning cost is compared
	// against when the request does not supply one.
	ReferencePerMille float64 `yaml:"reference_per_mille" envconfig:"REFERENCE_PER_MILLE"`
	// TIVPlausibleMin is the minimum value a single summary cell must hold
	// to be accepted as a schedule total.
	TIVPlausibleMin float64 `yaml:"tiv_plausible_min" envconfig:"TIV_PLAUSIBLE_MIN"`
}

// DefaultRateFallbacks are approximate local-per-USD rates used when no
// provider responds and the config supplies no override.
var DefaultRateFallbacks = map[string]float64{
	"COP": 4200.0,
	"MXN": 18.0,
}

// Load loads configuration from environment variables and an optional
// YAML config file (TREATYLENS_CONFIG_FILE or ./config.yaml).
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("TREATYLENS", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	configFile := os.Getenv("TREATYLENS_CONFIG_FILE")
	if configFile == "" {
		configFile = "config.yaml"
	}
	if _, err := os.Stat(configFile); err == nil {
		fileCfg, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileCfg, cfg)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from a YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// mergeConfigs overlays env-derived values on top of the file config.
// Environment variables win for every field the env actually set.
func mergeConfigs(file, env Config) Config {
	merged := file

	if env.Server.Port != 0 {
		merged.Server.Port = env.Server.Port
	}
	if env.Server.ReadTimeout != 0 {
		merged.Server.ReadTimeout = env.Server.ReadTimeout
	}
	if env.Server.WriteTimeout != 0 {
		merged.Server.WriteTimeout = env.Server.WriteTimeout
	}
	if env.Server.IdleTimeout != 0 {
		merged.Server.IdleTimeout = env.Server.IdleTimeout
	}
	if env.Server.MaxUploadBytes != 0 {
		merged.Server.MaxUploadBytes = env.Server.MaxUploadBytes
	}
	if env.Server.ShutdownTimeout != 0 {
		merged.Server.ShutdownTimeout = env.Server.ShutdownTimeout
	}
	if env.Server.RateLimit.RPS != 0 {
		merged.Server.RateLimit = env.Server.RateLimit
	}
	if env.Logging.Level != "" {
		merged.Logging.Level = env.Logging.Level
	}
	if env.Logging.Output != "" {
		merged.Logging.Output = env.Logging.Output
	}
	if env.Logging.FilePath != "" {
		merged.Logging.FilePath = env.Logging.FilePath
	}
	if env.History.DSN != "" {
		merged.History.DSN = env.History.DSN
	}
	if env.History.LookbackYears != 0 {
		merged.History.LookbackYears = env.History.LookbackYears
	}
	if env.History.QueryTimeout != 0 {
		merged.History.QueryTimeout = env.History.QueryTimeout
	}
	if env.Rates.PrimaryURL != "" {
		merged.Rates.PrimaryURL = env.Rates.PrimaryURL
	}
	if env.Rates.SecondaryURL != "" {
		merged.Rates.SecondaryURL = env.Rates.SecondaryURL
	}
	if env.Rates.Timeout != 0 {
		merged.Rates.Timeout = env.Rates.Timeout
	}
	if env.Analysis.ReferencePerMille != 0 {
		merged.Analysis.ReferencePerMille = env.Analysis.ReferencePerMille
	}
	if env.Analysis.TIVPlausibleMin != 0 {
		merged.Analysis.TIVPlausibleMin = env.Analysis.TIVPlausibleMin
	}

	return merged
}

// applyDefaults fills values that neither env nor file provided.
// Defaults live here, not in envconfig tags: a tag default would populate
// the env-side struct and override file values during the merge.
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 60 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Server.MaxUploadBytes == 0 {
		c.Server.MaxUploadBytes = 50 << 20
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Server.RateLimit.RPS == 0 {
		c.Server.RateLimit = RateLimitConfig{Enabled: true, RPS: 25, Burst: 10}
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/app.log"
	}
	if c.History.LookbackYears == 0 {
		c.History.LookbackYears = 5
	}
	if c.History.QueryTimeout == 0 {
		c.History.QueryTimeout = 30 * time.Second
	}
	if c.Rates.PrimaryURL == "" {
		c.Rates.PrimaryURL = "https://api.exchangerate-api.com/v4/latest/USD"
	}
	if c.Rates.SecondaryURL == "" {
		c.Rates.SecondaryURL = "https://api.frankfurter.app/latest?from=USD"
	}
	if c.Rates.Timeout == 0 {
		c.Rates.Timeout = 10 * time.Second
	}
	if c.Rates.Fallbacks == nil {
		c.Rates.Fallbacks = DefaultRateFallbacks
	}
	if c.Analysis.ReferencePerMille == 0 {
		c.Analysis.ReferencePerMille = 1.5
	}
	if c.Analysis.TIVPlausibleMin == 0 {
		c.Analysis.TIVPlausibleMin = 1e9
	}
}

// validate performs semantic validation of the configuration
func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.History.LookbackYears < 1 {
		return fmt.Errorf("history lookback must be at least 1 year, got %d", c.History.LookbackYears)
	}
	if c.Analysis.ReferencePerMille <= 0 {
		return fmt.Errorf("reference rate must be positive, got %f", c.Analysis.ReferencePerMille)
	}
	switch c.Logging.Output {
	case "", "stdout", "file", "both":
	default:
		return fmt.Errorf("invalid logging output: %s", c.Logging.Output)
	}
	return nil
}
