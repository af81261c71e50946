package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"fintrack/internal/core"
)

// DefaultFile is read when no --config path is given and it exists.
const DefaultFile = "fintrack.yaml"

type Config struct {
	// Storage
	DataFile       string `yaml:"data_file"`
	StoreBackend   string `yaml:"store_backend"`
	ResetOnCorrupt bool   `yaml:"reset_on_corrupt"`

	// Money
	DefaultCurrency string `yaml:"default_currency"`
	TaxRate         string `yaml:"tax_rate"`

	// Exchange rates
	RatesAPIURL    string            `yaml:"rates_api_url"`
	RatesTimeout   time.Duration     `yaml:"rates_timeout"`
	RatesCacheTTL  time.Duration     `yaml:"rates_cache_ttl"`
	RatesCacheSize int               `yaml:"rates_cache_size"`
	FixedRates     map[string]string `yaml:"fixed_rates"`

	// HTTP Server
	Port               string `yaml:"port"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`

	// Logging
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// AMQP, optional
	AMQPURL      string `yaml:"amqp_url"`
	AMQPExchange string `yaml:"amqp_exchange"`
	AMQPQueue    string `yaml:"amqp_queue"`

	// Google Sheets export, optional
	GoogleSpreadsheetID      string `yaml:"google_spreadsheet_id"`
	GoogleSheetName          string `yaml:"google_sheet_name"`
	GoogleServiceAccountFile string `yaml:"google_service_account_file"`
	GoogleServiceAccountJSON string `yaml:"-"`
}

// Defaults returns the configuration used when nothing is set.
func Defaults() *Config {
	return &Config{
		DataFile:        "./data.json",
		StoreBackend:    "json",
		ResetOnCorrupt:  true,
		DefaultCurrency: core.DefaultCurrency,
		TaxRate:         "0.07",

		RatesAPIURL:    "https://api.frankfurter.app",
		RatesTimeout:   10 * time.Second,
		RatesCacheTTL:  time.Hour,
		RatesCacheSize: 256,

		Port:               "8081",
		RateLimitPerMinute: 120,

		LogLevel:  "info",
		LogFormat: "text",

		AMQPExchange: "fintrack",
		AMQPQueue:    "record_events",

		GoogleSheetName: "Expenses",
	}
}

// Load returns defaults overridden by environment variables.
func Load() *Config {
	cfg := Defaults()
	cfg.applyEnv()
	return cfg
}

// LoadFile layers defaults, then the YAML file at path, then environment
// variables. An empty path reads DefaultFile when it exists.
func LoadFile(path string) (*Config, error) {
	cfg := Defaults()

	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		// no default file; env and defaults only
	default:
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.DataFile = getEnv("FINTRACK_DATA_FILE", c.DataFile)
	c.StoreBackend = getEnv("STORE_BACKEND", c.StoreBackend)
	c.ResetOnCorrupt = getEnvBool("FINTRACK_RESET_ON_CORRUPT", c.ResetOnCorrupt)

	c.DefaultCurrency = getEnv("DEFAULT_CURRENCY", c.DefaultCurrency)
	c.TaxRate = getEnv("TAX_RATE", c.TaxRate)

	c.RatesAPIURL = getEnv("RATES_API_URL", c.RatesAPIURL)
	c.RatesTimeout = getEnvDuration("RATES_TIMEOUT", c.RatesTimeout)
	c.RatesCacheTTL = getEnvDuration("RATES_CACHE_TTL", c.RatesCacheTTL)
	c.RatesCacheSize = getEnvInt("RATES_CACHE_SIZE", c.RatesCacheSize)

	c.Port = getEnv("PORT", c.Port)
	c.RateLimitPerMinute = getEnvInt("RATE_LIMIT_PER_MINUTE", c.RateLimitPerMinute)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)

	c.AMQPURL = getEnv("AMQP_URL", c.AMQPURL)
	c.AMQPExchange = getEnv("AMQP_EXCHANGE", c.AMQPExchange)
	c.AMQPQueue = getEnv("AMQP_QUEUE", c.AMQPQueue)

	c.GoogleSpreadsheetID = getEnv("GOOGLE_SPREADSHEET_ID", c.GoogleSpreadsheetID)
	c.GoogleSheetName = getEnv("GOOGLE_SHEET_NAME", c.GoogleSheetName)
	c.GoogleServiceAccountFile = getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", c.GoogleServiceAccountFile)
	c.GoogleServiceAccountJSON = getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", c.GoogleServiceAccountJSON)
}

// TaxRateDecimal returns the parsed default tax rate. Call Validate first.
func (c *Config) TaxRateDecimal() decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SheetsEnabled reports whether a spreadsheet export target is configured.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.DataFile) == "" {
		problems = append(problems, "data file path cannot be empty")
	}

	validBackends := []string{"json", "sqlite", "bolt"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.StoreBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		problems = append(problems, fmt.Sprintf("invalid store backend '%s': must be one of %v", c.StoreBackend, validBackends))
	}

	if _, err := core.NormalizeCurrency(c.DefaultCurrency); err != nil {
		problems = append(problems, fmt.Sprintf("invalid default currency '%s': must be a 3 letter code", c.DefaultCurrency))
	}

	if rate, err := decimal.NewFromString(strings.TrimSpace(c.TaxRate)); err != nil {
		problems = append(problems, fmt.Sprintf("invalid tax rate '%s': must be a decimal number", c.TaxRate))
	} else if rate.IsNegative() || rate.GreaterThan(decimal.NewFromInt(1)) {
		problems = append(problems, fmt.Sprintf("invalid tax rate %s: must be between 0 and 1", rate))
	}

	if parsedURL, err := url.Parse(c.RatesAPIURL); err != nil || (parsedURL.Scheme != "http" && parsedURL.Scheme != "https") {
		problems = append(problems, fmt.Sprintf("invalid rates API URL '%s': must be http or https", c.RatesAPIURL))
	}
	if c.RatesTimeout < 100*time.Millisecond || c.RatesTimeout > 2*time.Minute {
		problems = append(problems, fmt.Sprintf("invalid rates timeout %v: must be between 100ms and 2m", c.RatesTimeout))
	}
	if c.RatesCacheSize < 1 {
		problems = append(problems, fmt.Sprintf("invalid rates cache size %d: must be at least 1", c.RatesCacheSize))
	}
	if c.RatesCacheTTL < 0 {
		problems = append(problems, fmt.Sprintf("invalid rates cache ttl %v: must not be negative", c.RatesCacheTTL))
	}

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}
	if c.RateLimitPerMinute < 1 {
		problems = append(problems, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			problems = append(problems, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			problems = append(problems, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			problems = append(problems, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.SheetsEnabled() {
		if c.GoogleSheetName == "" {
			problems = append(problems, "Google Sheet name is required when a spreadsheet ID is set")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				problems = append(problems, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
