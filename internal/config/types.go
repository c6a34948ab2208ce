package config

import "time"

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the statuspage configuration file.
type Config struct {
	Version int `yaml:"version" mapstructure:"version"`

	// Server is the backend origin, e.g. http://localhost:8080.
	Server string `yaml:"server" mapstructure:"server"`

	// BasePath selects the backend mount point: /api or /canary/api.
	BasePath string `yaml:"base_path" mapstructure:"base_path"`

	// RefreshInterval is how often the dashboard refetches the aggregate.
	RefreshInterval time.Duration `yaml:"refresh_interval" mapstructure:"refresh_interval"`

	// RequestTimeout bounds each HTTP request. Zero keeps the HTTP client
	// default of no timeout.
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`

	Bars BarsConfig `yaml:"bars" mapstructure:"bars"`

	// MetricsAddr serves client metrics on /metrics when set, e.g. ":9090".
	MetricsAddr string `yaml:"metrics_addr" mapstructure:"metrics_addr"`

	// LogFile receives logs. The dashboard owns the terminal, so logs are
	// discarded in the TUI when this is empty.
	LogFile string `yaml:"log_file" mapstructure:"log_file"`

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string `yaml:"log_level" mapstructure:"log_level"`
}

// BarsConfig controls status strip bar heights in terminal rows scaled by
// ten (20 is two full rows).
type BarsConfig struct {
	MaxHeight float64 `yaml:"max_height" mapstructure:"max_height"`
	MinHeight float64 `yaml:"min_height" mapstructure:"min_height"`
	Zoominess float64 `yaml:"zoominess" mapstructure:"zoominess"`
}

// Default values.
const (
	DefaultServer          = "http://localhost:8080"
	DefaultBasePath        = "/api"
	DefaultRefreshInterval = 20 * time.Second
	DefaultLogLevel        = "info"
)

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version:         CurrentConfigVersion,
		Server:          DefaultServer,
		BasePath:        DefaultBasePath,
		RefreshInterval: DefaultRefreshInterval,
		Bars: BarsConfig{
			MaxHeight: 20,
			MinHeight: 0.5,
			Zoominess: 0,
		},
		LogLevel: DefaultLogLevel,
	}
}
