package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/rileyhilliard/statuspage/internal/errors"
)

// MinRefreshInterval keeps the dashboard from hammering the backend.
const MinRefreshInterval = time.Second

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("This config is from the future (version %d, but statuspage only knows up to %d)", cfg.Version, CurrentConfigVersion),
			"Upgrade statuspage or lower the version in your config.")
	}

	if err := validateServer(cfg.Server); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Set 'server' to the backend origin, like http://localhost:8080.")
	}

	if !strings.HasPrefix(cfg.BasePath, "/") {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("base_path '%s' must start with /", cfg.BasePath),
			"Use /api when talking to the backend directly, or /canary/api behind the proxy.")
	}

	if cfg.RefreshInterval < MinRefreshInterval {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("refresh_interval %s is too short", cfg.RefreshInterval),
			fmt.Sprintf("Use at least %s, like 20s.", MinRefreshInterval))
	}

	if cfg.RequestTimeout < 0 {
		return errors.New(errors.ErrConfig,
			"request_timeout can't be negative",
			"Use 0 for no timeout, or something like 10s.")
	}

	if err := validateBars(cfg.Bars); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig, err.Error(),
			"Check the 'bars' section in your config.")
	}

	if cfg.LogLevel != "" && hclog.LevelFromString(cfg.LogLevel) == hclog.NoLevel {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Unknown log_level '%s'", cfg.LogLevel),
			"Use one of: trace, debug, info, warn, error.")
	}

	return nil
}

func validateServer(server string) error {
	if server == "" {
		return fmt.Errorf("server is empty")
	}
	u, err := url.Parse(server)
	if err != nil {
		return fmt.Errorf("server '%s' is not a valid URL", server)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("server '%s' must use http or https", server)
	}
	if u.Host == "" {
		return fmt.Errorf("server '%s' has no host", server)
	}
	return nil
}

func validateBars(bars BarsConfig) error {
	if bars.MaxHeight <= 0 {
		return fmt.Errorf("bars.max_height must be positive, got %g", bars.MaxHeight)
	}
	if bars.MinHeight < 0 || bars.MinHeight > bars.MaxHeight {
		return fmt.Errorf("bars.min_height must be between 0 and max_height (%g), got %g", bars.MaxHeight, bars.MinHeight)
	}
	if bars.Zoominess < 0 || bars.Zoominess > 1 {
		return fmt.Errorf("bars.zoominess must be between 0 and 1, got %g", bars.Zoominess)
	}
	return nil
}
