// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// DatabaseConfig holds the document store connection details and the names
// of the two finding collections.
type DatabaseConfig struct {
	URI               string        `mapstructure:"uri" yaml:"uri"`
	Name              string        `mapstructure:"name" yaml:"name"`
	StaticCollection  string        `mapstructure:"static_collection" yaml:"static_collection"`
	DynamicCollection string        `mapstructure:"dynamic_collection" yaml:"dynamic_collection"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout" yaml:"connect_timeout"`
	QueryTimeout      time.Duration `mapstructure:"query_timeout" yaml:"query_timeout"`
}

// ReportConfig tunes the reporting engine.
type ReportConfig struct {
	// TrendEpochYear is the default lower window bound (Jan 1 of this
	// year) for the trend report when the caller gives no minimum date.
	TrendEpochYear int `mapstructure:"trend_epoch_year" yaml:"trend_epoch_year"`
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with defaults alone.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "triage-console")
	v.SetDefault("logger.log_file", "triage-console.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Database --
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "console")
	v.SetDefault("database.static_collection", "STATIC_ISSUES_LIST")
	v.SetDefault("database.dynamic_collection", "ISSUES_LIST")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.query_timeout", "60s")

	// -- Report --
	v.SetDefault("report.trend_epoch_year", 2013)
}

// NewConfigFromViper creates a configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Database.URI == "" {
		return fmt.Errorf("database.uri is a required configuration field")
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database.name is a required configuration field")
	}
	if c.Database.StaticCollection == "" || c.Database.DynamicCollection == "" {
		return fmt.Errorf("both finding collection names must be set")
	}
	if c.Database.StaticCollection == c.Database.DynamicCollection {
		return fmt.Errorf("static and dynamic collections must be distinct")
	}
	if c.Report.TrendEpochYear < 1970 {
		return fmt.Errorf("report.trend_epoch_year must be 1970 or later")
	}
	return nil
}
