// Package store holds the client-side snapshot of checks and servers and is
// the only place that mutates it. It runs the periodic fetch and the
// trigger-check commands.
package store

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/logger"
	"github.com/rileyhilliard/statuspage/internal/telemetry"
)

// User visible error texts.
const (
	LoadErrorPrefix    = "Error loading data from server: "
	TriggerErrorPrefix = "Trigger error: "
	ConnectFailure     = "failed to connect to server"
)

// DefaultRefreshInterval is how often the snapshot is refetched.
const DefaultRefreshInterval = 20 * time.Second

// Backend is the subset of the API client the store needs.
type Backend interface {
	Aggregate(ctx context.Context) (*api.Snapshot, error)
	TriggerCheck(ctx context.Context, req api.TriggerRequest) error
}

// Options configures a Store.
type Options struct {
	Backend Backend
	Logger  logger.Logger
	Metrics *telemetry.Metrics
	// Now defaults to time.Now.
	Now func() time.Time
}

// Store is the application state shared by the dashboard and the CLI.
// All fields are guarded by mu.
type Store struct {
	backend Backend
	log     logger.Logger
	metrics *telemetry.Metrics
	now     func() time.Time

	mu            sync.Mutex
	snapshot      api.Snapshot
	errMsg        string
	inflight      int
	lastRefreshed time.Time
	stopRefresh   context.CancelFunc

	changes chan struct{}
}

// New creates an empty store. Auto refresh starts disabled.
func New(opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{
		backend: opts.Backend,
		log:     log,
		metrics: opts.Metrics,
		now:     now,
		changes: make(chan struct{}, 1),
	}
}

// Changes delivers a notification after state changes. Notifications are
// coalesced: a receiver that falls behind sees one pending signal.
func (s *Store) Changes() <-chan struct{} {
	return s.changes
}

func (s *Store) notify() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

// Snapshot returns the last successfully fetched snapshot. The slices and
// maps are shared with the store and must be treated as read-only; the store
// never mutates a snapshot after storing it.
func (s *Store) Snapshot() api.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Error returns the current user visible error, empty when none.
func (s *Store) Error() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errMsg
}

// ClearError dismisses the error banner.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
	s.notify()
}

// Loading reports whether at least one fetch is in flight.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inflight > 0
}

// LastRefreshed returns when the snapshot was last replaced, zero if never.
func (s *Store) LastRefreshed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRefreshed
}

// AutoRefreshEnabled reports whether the periodic fetch is scheduled.
func (s *Store) AutoRefreshEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopRefresh != nil
}

func (s *Store) setError(msg string) {
	s.mu.Lock()
	s.errMsg = msg
	s.mu.Unlock()
	s.notify()
}

// FetchSnapshot fetches the aggregate once. On success the snapshot is
// replaced wholesale and the error cleared. On failure the previous snapshot
// is kept and the error set. Overlapping calls are allowed and the last one
// to finish wins.
func (s *Store) FetchSnapshot(ctx context.Context) error {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
	s.notify()

	done := s.metrics.FetchStarted()
	defer func() {
		s.mu.Lock()
		s.inflight--
		s.mu.Unlock()
		s.notify()
	}()

	snap, err := s.backend.Aggregate(ctx)
	if err != nil {
		if api.IsTransport(err) {
			done(telemetry.ResultTransport)
			s.log.Warn("fetch failed: %v", err)
			s.setError(LoadErrorPrefix + ConnectFailure)
		} else {
			done(telemetry.ResultBackend)
			s.log.Warn("fetch rejected: %v", err)
			s.setError(LoadErrorPrefix + api.Detail(err))
		}
		return err
	}
	done(telemetry.ResultSuccess)

	assignKeys(snap.Checks)
	now := s.now()

	s.mu.Lock()
	s.snapshot = *snap
	s.errMsg = ""
	s.lastRefreshed = now
	s.mu.Unlock()

	s.metrics.SetSnapshot(len(snap.Checks), len(snap.Servers), now)
	s.log.Debug("snapshot replaced: %d checks, %d servers", len(snap.Checks), len(snap.Servers))
	return nil
}

// StartAutoRefresh schedules FetchSnapshot every interval. It returns false
// and does nothing when a schedule is already running. Each tick starts its
// own fetch without waiting for the previous one.
func (s *Store) StartAutoRefresh(interval time.Duration) bool {
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}

	s.mu.Lock()
	if s.stopRefresh != nil {
		s.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stopRefresh = cancel
	s.mu.Unlock()

	s.log.Info("auto refresh every %s", interval)
	go s.refreshLoop(ctx, interval)
	s.notify()
	return true
}

func (s *Store) refreshLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Stopping cancels the schedule only, so in-flight fetches are
			// detached from ctx.
			go func() { _ = s.FetchSnapshot(context.Background()) }()
		}
	}
}

// StopAutoRefresh cancels the schedule. Fetches already in flight finish
// normally. Safe to call when not running.
func (s *Store) StopAutoRefresh() {
	s.mu.Lock()
	cancel := s.stopRefresh
	s.stopRefresh = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	s.log.Info("auto refresh paused")
	s.notify()
}

// ToggleAutoRefresh pauses a running schedule or resumes a stopped one and
// reports whether auto refresh is now enabled.
func (s *Store) ToggleAutoRefresh(interval time.Duration) bool {
	if s.AutoRefreshEnabled() {
		s.StopAutoRefresh()
		return false
	}
	s.StartAutoRefresh(interval)
	return true
}

// checkType looks up a check's type in the current snapshot.
func (s *Store) checkType(checkKey string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.snapshot.Checks {
		if c.Key == checkKey {
			return c.Type
		}
	}
	return ""
}

// trigger posts one trigger request and records a failure in the shared
// error. It never refetches.
func (s *Store) trigger(ctx context.Context, req api.TriggerRequest) error {
	err := s.backend.TriggerCheck(ctx, req)
	if err == nil {
		s.metrics.ObserveTrigger(telemetry.ResultSuccess)
		s.log.Debug("triggered %s on %s", req.CheckKey, req.Server)
		return nil
	}

	detail := api.Detail(err)
	if api.IsTransport(err) {
		s.metrics.ObserveTrigger(telemetry.ResultTransport)
		detail = ConnectFailure
	} else {
		s.metrics.ObserveTrigger(telemetry.ResultBackend)
	}
	s.log.Warn("trigger %s on %s failed: %v", req.CheckKey, req.Server, err)
	s.setError(TriggerErrorPrefix + detail)
	return &TriggerError{Server: req.Server, CheckKey: req.CheckKey, Err: err}
}

// TriggerOne re-runs one check on one server and, if the backend accepted
// the request, refetches the snapshot.
func (s *Store) TriggerOne(ctx context.Context, server, checkKey string) error {
	req := api.TriggerRequest{Server: server, CheckKey: checkKey, CheckType: s.checkType(checkKey)}
	if err := s.trigger(ctx, req); err != nil {
		return err
	}
	return s.FetchSnapshot(ctx)
}

// TriggerOnAllServers re-runs check on every server it has a history for.
// Requests run concurrently and a failure does not cancel the others. Exactly
// one refetch follows, whatever the outcomes. The returned error joins the
// individual trigger failures.
func (s *Store) TriggerOnAllServers(ctx context.Context, check api.Check) error {
	err := s.triggerAll(ctx, check)
	if ferr := s.FetchSnapshot(ctx); ferr != nil {
		return errors.Join(err, ferr)
	}
	return err
}

// TriggerMerged runs TriggerOnAllServers for each check in order, waiting
// for each before starting the next, then refetches once more.
func (s *Store) TriggerMerged(ctx context.Context, checks []api.Check) error {
	var errs []error
	for _, check := range checks {
		if err := s.TriggerOnAllServers(ctx, check); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.FetchSnapshot(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Servers returns the servers of the current snapshot that check has a
// status history for, in snapshot order.
func (s *Store) Servers(check api.Check) []string {
	snap := s.Snapshot()
	var servers []string
	for _, server := range snap.Servers {
		if check.RanOn(server) {
			servers = append(servers, server)
		}
	}
	return servers
}

// TriggerError identifies which trigger request failed.
type TriggerError struct {
	Server   string
	CheckKey string
	Err      error
}

func (e *TriggerError) Error() string {
	return "trigger " + e.CheckKey + " on " + e.Server + ": " + e.Err.Error()
}

func (e *TriggerError) Unwrap() error { return e.Err }
