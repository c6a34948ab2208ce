package store

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/logger"
	"github.com/rileyhilliard/statuspage/internal/telemetry"
)

// fakeBackend is a scriptable Backend.
type fakeBackend struct {
	mu        sync.Mutex
	aggregate func(ctx context.Context) (*api.Snapshot, error)
	trigger   func(req api.TriggerRequest) error

	fetches  int
	triggers []api.TriggerRequest
}

func (f *fakeBackend) Aggregate(ctx context.Context) (*api.Snapshot, error) {
	f.mu.Lock()
	f.fetches++
	fn := f.aggregate
	f.mu.Unlock()
	if fn == nil {
		return &api.Snapshot{}, nil
	}
	return fn(ctx)
}

func (f *fakeBackend) TriggerCheck(_ context.Context, req api.TriggerRequest) error {
	f.mu.Lock()
	f.triggers = append(f.triggers, req)
	fn := f.trigger
	f.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(req)
}

func (f *fakeBackend) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetches
}

func (f *fakeBackend) triggered() []api.TriggerRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.TriggerRequest, len(f.triggers))
	copy(out, f.triggers)
	return out
}

func twoServerSnapshot() *api.Snapshot {
	return &api.Snapshot{
		Servers: []string{"s1@east", "s2@west", "s3@north"},
		Checks: []api.Check{
			{
				Key:  "c1",
				Name: "homepage",
				Type: "http",
				CheckStatuses: map[string][]api.CheckStatus{
					"s1@east": {{Time: "2024-01-01 00:00:00", Status: true, Duration: 100}},
					"s2@west": {},
					"s3@north": nil,
				},
			},
			{
				Key:  "c2",
				Name: "dns",
				Type: "dns",
				CheckStatuses: map[string][]api.CheckStatus{
					"s2@west": {{Time: "2024-01-01 00:00:00", Status: false, Duration: 5}},
				},
			},
		},
	}
}

func TestStore_FetchSnapshotSuccess(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	backend := &fakeBackend{aggregate: func(context.Context) (*api.Snapshot, error) {
		return twoServerSnapshot(), nil
	}}
	metrics := telemetry.New()
	s := New(Options{Backend: backend, Metrics: metrics, Now: func() time.Time { return now }})
	s.setError("stale error")

	require.NoError(t, s.FetchSnapshot(context.Background()))

	snap := s.Snapshot()
	assert.Len(t, snap.Checks, 2)
	assert.Equal(t, []string{"s1@east", "s2@west", "s3@north"}, snap.Servers)
	assert.Empty(t, s.Error())
	assert.Equal(t, now, s.LastRefreshed())
	assert.False(t, s.Loading())

	st := snap.Checks[0].CheckStatuses["s1@east"][0]
	assert.Equal(t, StatusKey("c1", "s1@east", "2024-01-01 00:00:00"), st.Key)
	assert.Nil(t, snap.Checks[0].CheckStatuses["s3@north"], "never-ran stays distinguishable")

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchTotal.WithLabelValues(telemetry.ResultSuccess)))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.SnapshotChecks))
}

func TestStore_FetchSnapshotErrorsKeepData(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "transport",
			err:     &api.TransportError{Method: "GET", URL: "http://x/api/aggregate", Err: errors.New("connection refused")},
			wantMsg: "Error loading data from server: failed to connect to server",
		},
		{
			name:    "backend",
			err:     &api.StatusError{StatusCode: 500, Detail: "database is down"},
			wantMsg: "Error loading data from server: database is down",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fail := false
			backend := &fakeBackend{aggregate: func(context.Context) (*api.Snapshot, error) {
				if fail {
					return nil, tt.err
				}
				return twoServerSnapshot(), nil
			}}
			s := New(Options{Backend: backend})

			require.NoError(t, s.FetchSnapshot(context.Background()))
			before := s.Snapshot()
			refreshed := s.LastRefreshed()

			fail = true
			err := s.FetchSnapshot(context.Background())
			require.Error(t, err)

			assert.Equal(t, tt.wantMsg, s.Error())
			assert.Equal(t, before, s.Snapshot())
			assert.Equal(t, refreshed, s.LastRefreshed())
			assert.False(t, s.Loading())
		})
	}
}

func TestStore_LoadingDuringFetch(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	backend := &fakeBackend{aggregate: func(context.Context) (*api.Snapshot, error) {
		close(started)
		<-release
		return nil, &api.StatusError{StatusCode: 500, Detail: "boom"}
	}}
	s := New(Options{Backend: backend})
	assert.False(t, s.Loading())

	done := make(chan struct{})
	go func() {
		_ = s.FetchSnapshot(context.Background())
		close(done)
	}()

	<-started
	assert.True(t, s.Loading())
	close(release)
	<-done
	assert.False(t, s.Loading(), "loading is released on failure")
}

func TestStore_LastResolveWins(t *testing.T) {
	slowRelease := make(chan struct{})
	slowStarted := make(chan struct{})
	var calls int32

	backend := &fakeBackend{aggregate: func(context.Context) (*api.Snapshot, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			close(slowStarted)
			<-slowRelease
			return &api.Snapshot{Servers: []string{"issued-first"}}, nil
		}
		return &api.Snapshot{Servers: []string{"issued-second"}}, nil
	}}
	s := New(Options{Backend: backend})

	done := make(chan struct{})
	go func() {
		_ = s.FetchSnapshot(context.Background())
		close(done)
	}()
	<-slowStarted

	require.NoError(t, s.FetchSnapshot(context.Background()))
	assert.Equal(t, []string{"issued-second"}, s.Snapshot().Servers)
	assert.True(t, s.Loading(), "first fetch still in flight")

	close(slowRelease)
	<-done
	assert.Equal(t, []string{"issued-first"}, s.Snapshot().Servers)
	assert.False(t, s.Loading())
}

func TestStore_AutoRefresh(t *testing.T) {
	backend := &fakeBackend{}
	s := New(Options{Backend: backend, Logger: logger.NewBufferLogger()})

	assert.False(t, s.AutoRefreshEnabled())
	assert.True(t, s.StartAutoRefresh(10*time.Millisecond))
	assert.False(t, s.StartAutoRefresh(10*time.Millisecond), "second start is a no-op")
	assert.True(t, s.AutoRefreshEnabled())

	require.Eventually(t, func() bool { return backend.fetchCount() >= 3 }, time.Second, 5*time.Millisecond)

	s.StopAutoRefresh()
	assert.False(t, s.AutoRefreshEnabled())

	// Let any tick that raced with stop land, then make sure nothing follows.
	time.Sleep(30 * time.Millisecond)
	settled := backend.fetchCount()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, backend.fetchCount())
}

func TestStore_StopWhenNotRunning(t *testing.T) {
	s := New(Options{Backend: &fakeBackend{}})
	assert.NotPanics(t, func() {
		s.StopAutoRefresh()
		s.StopAutoRefresh()
	})
	assert.False(t, s.AutoRefreshEnabled())
}

func TestStore_ToggleAutoRefresh(t *testing.T) {
	s := New(Options{Backend: &fakeBackend{}})

	assert.True(t, s.ToggleAutoRefresh(time.Hour))
	assert.True(t, s.AutoRefreshEnabled())
	assert.False(t, s.ToggleAutoRefresh(time.Hour))
	assert.False(t, s.AutoRefreshEnabled())
}

func TestStore_StopDoesNotCancelInflight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	backend := &fakeBackend{aggregate: func(ctx context.Context) (*api.Snapshot, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-release:
			return &api.Snapshot{Servers: []string{"late"}}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}}
	s := New(Options{Backend: backend})

	s.StartAutoRefresh(5 * time.Millisecond)
	<-started
	s.StopAutoRefresh()
	close(release)

	require.Eventually(t, func() bool {
		return len(s.Snapshot().Servers) == 1 && !s.Loading()
	}, time.Second, 5*time.Millisecond)
	assert.Empty(t, s.Error())
}

func TestStore_Changes(t *testing.T) {
	s := New(Options{Backend: &fakeBackend{}})

	require.NoError(t, s.FetchSnapshot(context.Background()))
	select {
	case <-s.Changes():
	default:
		t.Fatal("expected a change notification")
	}

	// Coalesced: several mutations leave at most one pending signal.
	s.setError("a")
	s.setError("b")
	<-s.Changes()
	select {
	case <-s.Changes():
		t.Fatal("notifications should coalesce")
	default:
	}
}

func TestStore_TriggerOne(t *testing.T) {
	backend := &fakeBackend{aggregate: func(context.Context) (*api.Snapshot, error) {
		return twoServerSnapshot(), nil
	}}
	s := New(Options{Backend: backend})
	require.NoError(t, s.FetchSnapshot(context.Background()))

	require.NoError(t, s.TriggerOne(context.Background(), "s1@east", "c1"))
	assert.Equal(t, []api.TriggerRequest{{Server: "s1@east", CheckKey: "c1", CheckType: "http"}}, backend.triggered())
	assert.Equal(t, 2, backend.fetchCount(), "success refetches once")
}

func TestStore_TriggerOneFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "backend", err: &api.StatusError{StatusCode: 404, Detail: "check not found"}, wantMsg: "Trigger error: check not found"},
		{name: "transport", err: &api.TransportError{Method: "POST", URL: "u", Err: io.EOF}, wantMsg: "Trigger error: failed to connect to server"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{trigger: func(api.TriggerRequest) error { return tt.err }}
			s := New(Options{Backend: backend})

			err := s.TriggerOne(context.Background(), "s1", "missing")
			require.Error(t, err)

			var te *TriggerError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "s1", te.Server)
			assert.Equal(t, tt.wantMsg, s.Error())
			assert.Equal(t, 0, backend.fetchCount(), "no refetch after failure")
			assert.Equal(t, "", backend.triggered()[0].CheckType, "unknown check has no type")
		})
	}
}

func TestStore_TriggerOnAllServers(t *testing.T) {
	backend := &fakeBackend{aggregate: func(context.Context) (*api.Snapshot, error) {
		return twoServerSnapshot(), nil
	}}
	s := New(Options{Backend: backend})
	require.NoError(t, s.FetchSnapshot(context.Background()))
	check := s.Snapshot().Checks[0]

	require.NoError(t, s.TriggerOnAllServers(context.Background(), check))

	var servers []string
	for _, req := range backend.triggered() {
		servers = append(servers, req.Server)
		assert.Equal(t, "c1", req.CheckKey)
	}
	// s3@north has a null history and is skipped; s2@west has an empty one.
	assert.ElementsMatch(t, []string{"s1@east", "s2@west"}, servers)
	assert.Equal(t, 2, backend.fetchCount(), "exactly one refetch")
}

func TestStore_TriggerOnAllServersWaitsForAll(t *testing.T) {
	var inflight, peak int32
	backend := &fakeBackend{
		aggregate: func(context.Context) (*api.Snapshot, error) {
			return twoServerSnapshot(), nil
		},
		trigger: func(req api.TriggerRequest) error {
			n := atomic.AddInt32(&inflight, 1)
			for {
				p := atomic.LoadInt32(&peak)
				if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			atomic.AddInt32(&inflight, -1)
			if req.Server == "s1@east" {
				return &api.StatusError{StatusCode: 500, Detail: "s1 exploded"}
			}
			return nil
		},
	}
	s := New(Options{Backend: backend})
	require.NoError(t, s.FetchSnapshot(context.Background()))

	err := s.TriggerOnAllServers(context.Background(), s.Snapshot().Checks[0])
	require.Error(t, err)

	assert.Len(t, backend.triggered(), 2, "failure does not short-circuit")
	assert.Equal(t, int32(2), atomic.LoadInt32(&peak), "requests run concurrently")
	assert.Equal(t, 2, backend.fetchCount(), "refetch happens regardless of failures")
	// The refetch succeeded, which clears the trigger error.
	assert.Empty(t, s.Error())
}

func TestStore_TriggerMerged(t *testing.T) {
	var order []string
	var mu sync.Mutex
	backend := &fakeBackend{
		aggregate: func(context.Context) (*api.Snapshot, error) {
			mu.Lock()
			order = append(order, "fetch")
			mu.Unlock()
			return twoServerSnapshot(), nil
		},
		trigger: func(req api.TriggerRequest) error {
			mu.Lock()
			order = append(order, "trigger "+req.CheckKey)
			mu.Unlock()
			return nil
		},
	}
	s := New(Options{Backend: backend})
	require.NoError(t, s.FetchSnapshot(context.Background()))
	checks := s.Snapshot().Checks

	require.NoError(t, s.TriggerMerged(context.Background(), checks))

	assert.Equal(t, []string{
		"fetch",
		"trigger c1", "trigger c1", "fetch",
		"trigger c2", "fetch",
		"fetch",
	}, order)
}

func TestStore_EndToEnd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"checks":[{"key":"c1","checkStatuses":{"s1":[{"time":"2024-01-01 00:00:00","status":true,"duration":100}]}}],"servers":["s1"]}`)
	}))
	defer srv.Close()

	s := New(Options{Backend: api.NewClient(api.Options{BaseURL: srv.URL})})
	require.NoError(t, s.FetchSnapshot(context.Background()))

	snap := s.Snapshot()
	entries := aggregate.StatusesFor(snap.Checks, "s1")
	require.Len(t, entries, 1)
	assert.Equal(t, "c1", entries[0].Check.Key)
	assert.Equal(t, "2024-01-01 00:00:00", entries[0].Status.Time)
	assert.True(t, entries[0].Status.Status)
	assert.Equal(t, int64(100), entries[0].Status.Duration)
}

func TestStore_EndToEndTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"checks":[{"key":"c1","checkStatuses":{}}],"servers":["s1"]}`)
	}))
	url := srv.URL

	s := New(Options{Backend: api.NewClient(api.Options{BaseURL: url})})
	require.NoError(t, s.FetchSnapshot(context.Background()))
	before := s.Snapshot()

	srv.Close()

	require.Error(t, s.FetchSnapshot(context.Background()))
	assert.Equal(t, "Error loading data from server: failed to connect to server", s.Error())
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, []string{"s1"}, s.Snapshot().Servers)
}
