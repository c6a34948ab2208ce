// Package telemetry exposes client-side Prometheus metrics for the
// statuspage client and an optional HTTP endpoint serving them.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rileyhilliard/statuspage/internal/logger"
)

const namespace = "statuspage"

// Result label values.
const (
	ResultSuccess   = "success"
	ResultTransport = "transport_error"
	ResultBackend   = "backend_error"
)

// Metrics holds the client metrics on a private registry so several stores
// (and tests) never collide on registration.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal      *prometheus.CounterVec
	FetchDuration   prometheus.Histogram
	FetchesInFlight prometheus.Gauge
	TriggerTotal    *prometheus.CounterVec
	SnapshotChecks  prometheus.Gauge
	SnapshotServers prometheus.Gauge
	LastRefreshed   prometheus.Gauge
}

// New creates the metrics and registers them on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FetchTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "total",
				Help:      "Aggregate snapshot fetches by result",
			},
			[]string{"result"}, // success, transport_error, backend_error
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "duration_seconds",
				Help:      "Time to fetch an aggregate snapshot",
				Buckets:   prometheus.DefBuckets,
			},
		),
		FetchesInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "fetch",
				Name:      "in_flight",
				Help:      "Aggregate fetches currently in flight",
			},
		),
		TriggerTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "trigger",
				Name:      "total",
				Help:      "Trigger-check requests by result",
			},
			[]string{"result"},
		),
		SnapshotChecks: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "snapshot",
				Name:      "checks",
				Help:      "Checks in the current snapshot",
			},
		),
		SnapshotServers: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "snapshot",
				Name:      "servers",
				Help:      "Servers in the current snapshot",
			},
		),
		LastRefreshed: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "snapshot",
				Name:      "last_refreshed_timestamp_seconds",
				Help:      "Unix time of the last successful fetch",
			},
		),
	}
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FetchStarted marks a fetch in flight. The returned func records the
// outcome and must be called exactly once.
func (m *Metrics) FetchStarted() func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	m.FetchesInFlight.Inc()
	return func(result string) {
		m.FetchesInFlight.Dec()
		m.FetchDuration.Observe(time.Since(start).Seconds())
		m.FetchTotal.WithLabelValues(result).Inc()
	}
}

// ObserveTrigger counts one trigger-check request.
func (m *Metrics) ObserveTrigger(result string) {
	if m == nil {
		return
	}
	m.TriggerTotal.WithLabelValues(result).Inc()
}

// SetSnapshot records the size of a freshly stored snapshot.
func (m *Metrics) SetSnapshot(checks, servers int, at time.Time) {
	if m == nil {
		return
	}
	m.SnapshotChecks.Set(float64(checks))
	m.SnapshotServers.Set(float64(servers))
	m.LastRefreshed.Set(float64(at.Unix()))
}

// Router returns a chi router serving /metrics and /healthz.
func (m *Metrics) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))

	return r
}

// Serve runs the metrics endpoint on addr until ctx is cancelled.
func (m *Metrics) Serve(ctx context.Context, addr string, log logger.Logger) error {
	if log == nil {
		log = logger.Noop()
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("metrics listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown: %v", err)
		}
		return nil
	}
}
