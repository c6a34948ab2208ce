package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/rileyhilliard/statuspage/internal/errors"
)

const (
	// ConfigFileName is the project-local config file name.
	ConfigFileName = ".statuspage.yaml"
	// GlobalConfigDir is the directory for global config.
	GlobalConfigDir = ".config/statuspage"
	// GlobalConfigFile is the global config file name.
	GlobalConfigFile = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. STATUSPAGE_SERVER or
	// STATUSPAGE_BARS_MAX_HEIGHT.
	EnvPrefix = "STATUSPAGE"
)

// NewViper returns a viper instance with defaults and environment
// overrides configured. Callers may bind flags onto it before LoadWith.
func NewViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// setDefaults registers every key so env overrides reach Unmarshal.
func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("version", def.Version)
	v.SetDefault("server", def.Server)
	v.SetDefault("base_path", def.BasePath)
	v.SetDefault("refresh_interval", def.RefreshInterval.String())
	v.SetDefault("request_timeout", "0s")
	v.SetDefault("bars.max_height", def.Bars.MaxHeight)
	v.SetDefault("bars.min_height", def.Bars.MinHeight)
	v.SetDefault("bars.zoominess", def.Bars.Zoominess)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", def.LogLevel)
}

// Load reads config from the specified path, with environment overrides.
func Load(path string) (*Config, error) {
	return LoadWith(NewViper(), path)
}

// LoadWith reads the config file at path (skipped when empty) into v and
// returns the merged result of defaults, file, environment and any flags
// bound on v.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'statuspage config init' to create one, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the YAML syntax in "+displayPath(path))
	}
	cfg.LogFile = ExpandTilde(cfg.LogFile)

	return cfg, nil
}

func displayPath(path string) string {
	if path == "" {
		return "your environment variables"
	}
	return path
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag)
// 2. .statuspage.yaml in current directory
// 3. ~/.config/statuspage/config.yaml (global defaults)
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		path := ExpandTilde(explicit)
		if _, err := os.Stat(path); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return path, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot determine current directory",
			"Check directory permissions")
	}
	localConfig := filepath.Join(cwd, ConfigFileName)
	if _, err := os.Stat(localConfig); err == nil {
		return localConfig, nil
	}

	if global := GlobalPath(); global != "" {
		if _, err := os.Stat(global); err == nil {
			return global, nil
		}
	}

	return "", nil
}

// GlobalPath returns ~/.config/statuspage/config.yaml, or empty if the home
// directory is unknown.
func GlobalPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ""
	}
	return filepath.Join(home, GlobalConfigDir, GlobalConfigFile)
}

// LoadOrDefault finds and loads the config, falling back to defaults plus
// environment overrides when no file exists. It returns the path used.
func LoadOrDefault(v *viper.Viper, explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := LoadWith(v, path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}
