package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"strings"
	"time"

	"github.com/gookit/validate"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all runtime configuration derived from environment variables.
type Config struct {
	Port              string `mapstructure:"PORT" validate:"required"`
	DBURL             string `mapstructure:"DB_URL" validate:"required"`
	DBMaxConns        int    `mapstructure:"DB_MAX_CONNS" validate:"min:1"`
	DBMinConns        int    `mapstructure:"DB_MIN_CONNS" validate:"min:0"`
	DBMaxIdleSecs     int    `mapstructure:"DB_MAX_CONN_IDLE_SECS" validate:"min:0"`
	DBMaxLifeSecs     int    `mapstructure:"DB_MAX_CONN_LIFETIME_SECS" validate:"min:0"`
	DBConnTimeoutSecs int    `mapstructure:"DB_CONN_TIMEOUT_SECS" validate:"min:1"`
	DBStatementCache  int    `mapstructure:"DB_STATEMENT_CACHE_CAPACITY" validate:"min:0"`

	CatalogURL         string `mapstructure:"CATALOG_URL" validate:"required"`
	CatalogTimeoutSecs int    `mapstructure:"CATALOG_TIMEOUT_SECS" validate:"min:1"`
	CatalogAPIKey      string `mapstructure:"CATALOG_API_KEY"`
	KeySourceURL       string `mapstructure:"KEY_SOURCE_URL"`
	KeySourcePath      string `mapstructure:"KEY_SOURCE_PATH" validate:"required"`
	KeyCacheTTLSecs    int    `mapstructure:"KEY_CACHE_TTL_SECS" validate:"min:0"`
	KeyCacheSizeMB     int    `mapstructure:"KEY_CACHE_SIZE_MB" validate:"min:1"`
	ImageBaseURL       string `mapstructure:"IMAGE_BASE_URL" validate:"required"`

	RetryMaxAttempts int `mapstructure:"RETRY_MAX_ATTEMPTS" validate:"min:1"`
	RetryBaseDelayMs int `mapstructure:"RETRY_BASE_DELAY_MS" validate:"min:0"`
	RetryMaxDelayMs  int `mapstructure:"RETRY_MAX_DELAY_MS" validate:"min:0"`
	ReadTimeoutSecs  int `mapstructure:"SERVER_READ_TIMEOUT" validate:"min:1"`
	WriteTimeoutSecs int `mapstructure:"SERVER_WRITE_TIMEOUT" validate:"min:1"`
	IdleTimeoutSecs  int `mapstructure:"SERVER_IDLE_TIMEOUT" validate:"min:1"`
	ToggleRatePerSec int `mapstructure:"TOGGLE_RATE_PER_SEC" validate:"min:0"`
	ToggleRateBurst  int `mapstructure:"TOGGLE_RATE_BURST" validate:"min:0"`

	LogLevel       string `mapstructure:"LOG_LEVEL" validate:"required|in:trace,debug,info,warn,error,fatal,panic"`
	LogFormat      string `mapstructure:"LOG_FORMAT" validate:"required|in:json,console"`
	MetricsEnabled bool   `mapstructure:"METRICS_ENABLED"`
}

var defaults = map[string]any{
	"PORT":                        "8080",
	"DB_URL":                      "",
	"DB_MAX_CONNS":                10,
	"DB_MIN_CONNS":                1,
	"DB_MAX_CONN_IDLE_SECS":       300,
	"DB_MAX_CONN_LIFETIME_SECS":   3600,
	"DB_CONN_TIMEOUT_SECS":        10,
	"DB_STATEMENT_CACHE_CAPACITY": 128,
	"CATALOG_URL":                 "https://api.themoviedb.org/3",
	"CATALOG_TIMEOUT_SECS":        5,
	"CATALOG_API_KEY":             "",
	"KEY_SOURCE_URL":              "",
	"KEY_SOURCE_PATH":             "APIKey",
	"KEY_CACHE_TTL_SECS":          600,
	"KEY_CACHE_SIZE_MB":           1,
	"IMAGE_BASE_URL":              "https://image.tmdb.org/t/p",
	"RETRY_MAX_ATTEMPTS":          3,
	"RETRY_BASE_DELAY_MS":         200,
	"RETRY_MAX_DELAY_MS":          2000,
	"SERVER_READ_TIMEOUT":         15,
	"SERVER_WRITE_TIMEOUT":        15,
	"SERVER_IDLE_TIMEOUT":         60,
	"TOGGLE_RATE_PER_SEC":         5,
	"TOGGLE_RATE_BURST":           10,
	"LOG_LEVEL":                   "info",
	"LOG_FORMAT":                  "json",
	"METRICS_ENABLED":             true,
}

// Load reads configuration from the environment (and an optional .env file),
// applying defaults and validation.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}

	v := viper.New()
	for key, val := range defaults {
		v.SetDefault(key, val)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.CatalogURL = strings.TrimRight(strings.TrimSpace(cfg.CatalogURL), "/")
	cfg.KeySourceURL = strings.TrimRight(strings.TrimSpace(cfg.KeySourceURL), "/")
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate runs struct-tag rules first, then the cross-field checks.
func (c Config) Validate() error {
	val := validate.Struct(&c)
	if !val.Validate() {
		return fmt.Errorf("invalid config: %s", val.Errors.One())
	}

	if c.DBMaxConns <= 0 {
		return fmt.Errorf("DB_MAX_CONNS must be positive")
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS cannot exceed DB_MAX_CONNS")
	}
	if c.CatalogAPIKey == "" && c.KeySourceURL == "" {
		return fmt.Errorf("either CATALOG_API_KEY or KEY_SOURCE_URL is required")
	}
	if err := checkURL(c.CatalogURL); err != nil {
		return fmt.Errorf("CATALOG_URL: %w", err)
	}
	if err := checkURL(c.ImageBaseURL); err != nil {
		return fmt.Errorf("IMAGE_BASE_URL: %w", err)
	}
	if c.KeySourceURL != "" {
		if err := checkURL(c.KeySourceURL); err != nil {
			return fmt.Errorf("KEY_SOURCE_URL: %w", err)
		}
	}
	if c.RetryMaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1")
	}
	if c.RetryBaseDelayMs > c.RetryMaxDelayMs {
		return fmt.Errorf("RETRY_BASE_DELAY_MS cannot exceed RETRY_MAX_DELAY_MS")
	}
	return nil
}

// CatalogTimeout returns the upstream request timeout.
func (c Config) CatalogTimeout() time.Duration {
	return time.Duration(c.CatalogTimeoutSecs) * time.Second
}

// KeyCacheTTL returns how long a fetched API key stays cached.
func (c Config) KeyCacheTTL() time.Duration {
	return time.Duration(c.KeyCacheTTLSecs) * time.Second
}

// RetryBaseDelay returns the first retry delay.
func (c Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.RetryBaseDelayMs) * time.Millisecond
}

// RetryMaxDelay returns the retry delay cap.
func (c Config) RetryMaxDelay() time.Duration {
	return time.Duration(c.RetryMaxDelayMs) * time.Millisecond
}

func checkURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("must be an absolute url")
	}
	return nil
}
