package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/config"
	"github.com/rileyhilliard/statuspage/internal/errors"
	"github.com/rileyhilliard/statuspage/internal/logger"
	"github.com/rileyhilliard/statuspage/internal/store"
	"github.com/rileyhilliard/statuspage/internal/telemetry"
)

// app holds everything a command needs to talk to the backend.
type app struct {
	cfg     *config.Config
	log     logger.Logger
	client  *api.Client
	store   *store.Store
	metrics *telemetry.Metrics

	closers []func()
}

// loadConfig finds, loads and validates the config for the current flags.
func loadConfig() (*config.Config, error) {
	cfg, path, err := config.LoadOrDefault(settings, cfgFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if path != "" {
		logger.Default().Debug("using config %s", path)
	}
	return cfg, nil
}

// newApp wires the client, store and metrics for cfg. Without a log file
// logs go to fallback; the dashboard passes io.Discard since it owns the
// terminal.
func newApp(ctx context.Context, cfg *config.Config, fallback io.Writer) (*app, error) {
	a := &app{cfg: cfg}

	out := fallback
	if cfg.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.LogFile), 0o755); err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Can't create the log directory", "Check log_file in your config")
		}
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Can't open the log file "+cfg.LogFile, "Check log_file in your config")
		}
		out = f
		a.closers = append(a.closers, func() { _ = f.Close() })
	}
	a.log = logger.New(logger.Options{Name: "statuspage", Level: cfg.LogLevel, Output: out})
	logger.SetDefault(a.log)

	a.metrics = telemetry.New()
	if cfg.MetricsAddr != "" {
		serveCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := a.metrics.Serve(serveCtx, cfg.MetricsAddr, logger.Named(a.log, "metrics")); err != nil {
				a.log.Error("metrics server: %v", err)
			}
		}()
		a.closers = append(a.closers, func() {
			cancel()
			<-done
		})
	}

	a.client = api.NewClient(api.Options{
		BaseURL:  cfg.Server,
		BasePath: cfg.BasePath,
		Timeout:  cfg.RequestTimeout,
		Logger:   logger.Named(a.log, "api"),
	})
	a.store = store.New(store.Options{
		Backend: a.client,
		Logger:  logger.Named(a.log, "store"),
		Metrics: a.metrics,
	})
	return a, nil
}

// Close stops background work in reverse order of creation.
func (a *app) Close() {
	a.store.StopAutoRefresh()
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// fetch loads one snapshot, mapping failures to the store's banner text.
func (a *app) fetch(ctx context.Context) (api.Snapshot, error) {
	if err := a.store.FetchSnapshot(ctx); err != nil {
		return api.Snapshot{}, backendError(err, a.store.Error(), a.cfg.Server)
	}
	return a.store.Snapshot(), nil
}

// barConfig converts the bars section of cfg.
func barConfig(cfg *config.Config) aggregate.BarConfig {
	return aggregate.BarConfig{
		MaxHeight: cfg.Bars.MaxHeight,
		MinHeight: cfg.Bars.MinHeight,
		Zoominess: cfg.Bars.Zoominess,
	}
}

// backendError classifies a client failure for CLI output. message is the
// user-facing text, e.g. the store's error banner.
func backendError(err error, message, server string) error {
	if message == "" {
		message = api.Detail(err)
	}
	if api.IsTransport(err) {
		return errors.WrapWithCode(err, errors.ErrConnect, message,
			"Check the backend is running at "+server+" and --backend / --base-path are right")
	}
	return errors.WrapWithCode(err, errors.ErrBackend, message,
		"The backend rejected the request; see its logs for details")
}
