package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/quantrail/quantrail/internal/core"
)

type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Calendar CalendarConfig `mapstructure:"calendar"`
	Data     DataConfig     `mapstructure:"data"`
	Ledger   LedgerConfig   `mapstructure:"ledger"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// LoggingConfig selects the log output mode.
type LoggingConfig struct {
	Mode string `mapstructure:"mode"` // "development" or "production"
}

// CalendarConfig holds the trading session and holiday calendar.
type CalendarConfig struct {
	Exchange     string   `mapstructure:"exchange"`
	Segment      string   `mapstructure:"segment"`
	SessionOpen  string   `mapstructure:"session_open"`  // "HH:MM"
	SessionClose string   `mapstructure:"session_close"` // "HH:MM"
	Holidays     []string `mapstructure:"holidays"`      // "2006-01-02" dates
}

// DataConfig holds historical data source settings.
type DataConfig struct {
	Dir         string        `mapstructure:"dir"` // CSV directory
	SegmentDays int           `mapstructure:"segment_days"`
	MaxRetries  int           `mapstructure:"max_retries"`
	RetryBase   time.Duration `mapstructure:"retry_base"`
	Concurrency int           `mapstructure:"concurrency"`
}

// LedgerConfig selects the ledger persistence backend.
type LedgerConfig struct {
	Driver string `mapstructure:"driver"` // "memory" or "sqlite"
	DSN    string `mapstructure:"dsn"`    // sqlite path
}

// ArchiveConfig holds report archival settings.
type ArchiveConfig struct {
	Enabled bool     `mapstructure:"enabled"`
	Type    string   `mapstructure:"type"` // "localfs" or "s3"
	Path    string   `mapstructure:"path"` // For localfs
	S3      S3Config `mapstructure:"s3"`   // For S3
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Load reads configuration from file
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// Support environment variable overrides
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Expand environment variables in string values
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Defaults returns a config with sensible defaults
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{
			Mode: "production",
		},
		Calendar: CalendarConfig{
			Exchange:     string(core.ExchangeNSE),
			Segment:      string(core.SegmentDerivative),
			SessionOpen:  "09:15",
			SessionClose: "15:30",
		},
		Data: DataConfig{
			Dir:         "data",
			SegmentDays: 90,
			MaxRetries:  3,
			RetryBase:   500 * time.Millisecond,
			Concurrency: 4,
		},
		Ledger: LedgerConfig{
			Driver: "memory",
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Type:    "localfs",
			Path:    "reports",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// ParsedHolidays parses the configured holiday dates.
func (c *CalendarConfig) ParsedHolidays() ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Holidays))
	for _, raw := range c.Holidays {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("holiday %q: %w", raw, err))
		}
		out = append(out, day)
	}
	return out, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Logging.Mode {
	case "", "development", "production":
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("logging mode must be development or production, got %q", c.Logging.Mode))
	}

	switch c.Ledger.Driver {
	case "", "memory":
	case "sqlite":
		if c.Ledger.DSN == "" {
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("ledger dsn required for sqlite driver"))
		}
	default:
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("ledger driver must be memory or sqlite, got %q", c.Ledger.Driver))
	}

	if c.Archive.Enabled {
		switch c.Archive.Type {
		case "localfs":
			if c.Archive.Path == "" {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("archive path required for localfs"))
			}
		case "s3":
			if c.Archive.S3.Bucket == "" {
				return core.WrapError(core.ErrConfigInvalid,
					fmt.Errorf("archive s3 bucket is required"))
			}
		default:
			return core.WrapError(core.ErrConfigInvalid,
				fmt.Errorf("archive type must be localfs or s3, got %q", c.Archive.Type))
		}
	}

	if c.Data.SegmentDays < 0 || c.Data.MaxRetries < 0 || c.Data.Concurrency < 0 {
		return core.WrapError(core.ErrConfigInvalid,
			fmt.Errorf("data settings cannot be negative"))
	}

	if _, err := c.Calendar.ParsedHolidays(); err != nil {
		return err
	}
	return nil
}
