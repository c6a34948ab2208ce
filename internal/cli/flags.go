package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/rileyhilliard/statuspage/internal/dashboard"
	"github.com/rileyhilliard/statuspage/internal/errors"
)

// settingFlag maps a persistent flag onto a config key.
type settingFlag struct {
	Flag  string
	Key   string
	Usage string
}

// settingFlags override config keys. Defaults stay empty so an unset flag
// never shadows the file or environment.
var settingFlags = []settingFlag{
	{Flag: "backend", Key: "server", Usage: "backend origin, e.g. http://localhost:8080"},
	{Flag: "base-path", Key: "base_path", Usage: "backend mount point (/api or /canary/api)"},
	{Flag: "refresh-interval", Key: "refresh_interval", Usage: "auto refresh interval (e.g. 20s, 1m)"},
	{Flag: "request-timeout", Key: "request_timeout", Usage: "HTTP request timeout, 0 for none"},
	{Flag: "metrics-addr", Key: "metrics_addr", Usage: "serve client metrics on this address (e.g. :9090)"},
	{Flag: "log-file", Key: "log_file", Usage: "write logs to this file"},
	{Flag: "log-level", Key: "log_level", Usage: "log level: trace, debug, info, warn, error"},
}

// addSettingFlags registers every settingFlag on fs.
func addSettingFlags(fs *pflag.FlagSet) {
	for _, f := range settingFlags {
		fs.String(f.Flag, "", f.Usage)
	}
}

// bindSettingFlags binds the flags registered by addSettingFlags onto v.
func bindSettingFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for _, f := range settingFlags {
		flag := fs.Lookup(f.Flag)
		if flag == nil {
			return fmt.Errorf("flag --%s is not registered", f.Flag)
		}
		if err := v.BindPFlag(f.Key, flag); err != nil {
			return err
		}
	}
	return nil
}

// ParseTimeframe resolves a graph window such as "1h", "1H" or "3d".
// Returns the default window if the flag is empty.
func ParseTimeframe(flag string) (dashboard.Timeframe, error) {
	if flag == "" {
		return dashboard.Timeframes[0], nil
	}
	for _, tf := range dashboard.Timeframes {
		if strings.EqualFold(tf.Label, flag) {
			return tf, nil
		}
	}

	if d, err := time.ParseDuration(flag); err == nil {
		for _, tf := range dashboard.Timeframes {
			if tf.Duration == d {
				return tf, nil
			}
		}
	}

	labels := make([]string, len(dashboard.Timeframes))
	for i, tf := range dashboard.Timeframes {
		labels[i] = strings.ToLower(tf.Label)
	}
	return dashboard.Timeframe{}, errors.New(errors.ErrInput,
		fmt.Sprintf("'%s' isn't a supported timeframe", flag),
		"Pick one of: "+strings.Join(labels, ", "))
}
