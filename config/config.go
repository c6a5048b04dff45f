package config

import (
	"call-forecast/errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath      = "config.yaml"
	DefaultHorizonHours    = 24
	DefaultSourceDriver    = "csv"
	DefaultSourceTable     = "call_logs"
	DefaultDateTimeColumn  = "Date Time"
	DefaultStatusColumn    = "Call Status"
	DefaultListenAddr      = ":8080"
	DefaultRefreshSchedule = "*/15 * * * *"
	DefaultLogLevel        = "info"
	DefaultTimezone        = "UTC"
	DefaultOutputFormat    = "text"
)

// SourceConfig selects where call records come from.
type SourceConfig struct {
	Driver         string `yaml:"driver"` // csv | sqlite3 | pgx
	Path           string `yaml:"path"`
	DSN            string `yaml:"dsn"`
	Table          string `yaml:"table"`
	DateTimeColumn string `yaml:"datetime_column"`
	StatusColumn   string `yaml:"status_column"`
}

type Config struct {
	Timezone        string       `yaml:"timezone"`
	HorizonHours    int          `yaml:"horizon_hours"`
	SuccessStatuses []string     `yaml:"success_statuses"`
	Source          SourceConfig `yaml:"source"`
	OutputFormat    string       `yaml:"output_format"`

	ListenAddr      string `yaml:"listen_addr"`
	RefreshSchedule string `yaml:"refresh_schedule"`
	PushURL         string `yaml:"push_url"`
	LogLevel        string `yaml:"log_level"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

// Path returns CONFIG_PATH, or config.yaml when it is unset.
func Path() string {
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return DefaultConfigPath
}

// Load reads the config at Path() and validates it.
func Load() (Config, error) {
	return LoadFile(Path())
}

// LoadFile reads the config at path and validates it.
func LoadFile(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read loads the YAML file at path, applies environment overrides and
// defaults, but does not validate, so callers can layer flags on top first.
// A missing file is not an error; a malformed one is.
func Read(path string) (Config, error) {
	var cfg Config

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parsing %s: %v", errors.ErrInvalidConfig, path, err)
		}
	}

	envOverride(&cfg.Timezone, "FORECAST_TIMEZONE")
	if err := envOverrideInt(&cfg.HorizonHours, "FORECAST_HORIZON_HOURS"); err != nil {
		return Config{}, err
	}
	if statuses := os.Getenv("FORECAST_SUCCESS_STATUSES"); statuses != "" {
		cfg.SuccessStatuses = splitList(statuses)
	}
	envOverride(&cfg.Source.Driver, "SOURCE_DRIVER")
	envOverride(&cfg.Source.Path, "SOURCE_PATH")
	envOverride(&cfg.Source.DSN, "SOURCE_DSN")
	envOverride(&cfg.Source.Table, "SOURCE_TABLE")
	envOverride(&cfg.OutputFormat, "OUTPUT_FORMAT")
	envOverride(&cfg.ListenAddr, "LISTEN_ADDR")
	envOverride(&cfg.RefreshSchedule, "REFRESH_SCHEDULE")
	envOverride(&cfg.PushURL, "PUSH_URL")
	envOverride(&cfg.LogLevel, "LOG_LEVEL")

	cfg.ApplyDefaults()
	return cfg, nil
}

// ApplyDefaults fills zero-valued fields.
func (c *Config) ApplyDefaults() {
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.HorizonHours == 0 {
		c.HorizonHours = DefaultHorizonHours
	}
	if c.Source.Driver == "" {
		c.Source.Driver = DefaultSourceDriver
	}
	if c.Source.Table == "" {
		c.Source.Table = DefaultSourceTable
	}
	if c.Source.DateTimeColumn == "" {
		c.Source.DateTimeColumn = DefaultDateTimeColumn
	}
	if c.Source.StatusColumn == "" {
		c.Source.StatusColumn = DefaultStatusColumn
	}
	if c.OutputFormat == "" {
		c.OutputFormat = DefaultOutputFormat
	}
	if c.ListenAddr == "" {
		c.ListenAddr = DefaultListenAddr
	}
	if c.RefreshSchedule == "" {
		c.RefreshSchedule = DefaultRefreshSchedule
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
}

// Validate checks field values and resolves Location.
func (c *Config) Validate() error {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fmt.Errorf("%w: timezone %q: %v", errors.ErrInvalidConfig, c.Timezone, err)
	}
	c.Location = loc

	if c.HorizonHours < 0 {
		return fmt.Errorf("%w: horizon_hours must not be negative (got %d)", errors.ErrInvalidConfig, c.HorizonHours)
	}

	switch c.OutputFormat {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("%w: output_format must be one of: text, json, csv (got: %s)", errors.ErrInvalidConfig, c.OutputFormat)
	}

	switch c.Source.Driver {
	case "csv":
		if c.Source.Path == "" {
			return fmt.Errorf("%w: source.path is required for the csv driver", errors.ErrInvalidConfig)
		}
	case "sqlite3", "pgx":
		if c.Source.DSN == "" {
			return fmt.Errorf("%w: source.dsn is required for the %s driver", errors.ErrInvalidConfig, c.Source.Driver)
		}
	default:
		return fmt.Errorf("%w: %w: %q", errors.ErrInvalidConfig, errors.ErrUnknownDriver, c.Source.Driver)
	}
	return nil
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("%w: %s=%q is not an integer", errors.ErrInvalidConfig, key, v)
	}
	*target = n
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
