package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/config"
	"github.com/rileyhilliard/statuspage/internal/errors"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

const testAggregate = `{
  "checks": [
    {
      "key": "c1",
      "name": "homepage",
      "type": "http",
      "description": "Homepage",
      "namespace": "web",
      "endpoint": "https://example.com",
      "canaryName": "web-canary",
      "checkStatuses": {
        "s1@east": [
          {"time": "2024-01-01 00:00:10", "status": true, "duration": 100},
          {"time": "2024-01-01 00:00:00", "status": false, "duration": 300, "message": "boom"}
        ]
      },
      "health": {"s1@east": {"latency": "120ms", "uptime": "99%"}}
    },
    {
      "key": "c2",
      "name": "postgres",
      "type": "tcp",
      "description": "Postgres",
      "namespace": "db",
      "endpoint": "db:5432",
      "canaryName": "db-canary",
      "checkStatuses": {
        "s2@west": [{"time": "2024-01-01 00:00:05", "status": true, "duration": 20}]
      }
    }
  ],
  "servers": ["s2@west", "s1@east"]
}`

const testGraph = `{
  "success": [{"time": 1704067200, "value": "3"}, {"time": 1704067260, "value": "5"}],
  "failed": [],
  "latency": [{"time": 1704067200, "value": 120.4}]
}`

// fakeBackend records requests made against the status API.
type fakeBackend struct {
	mu            sync.Mutex
	aggregates    int
	triggers      []api.TriggerRequest
	graphs        []api.GraphRequest
	triggerStatus int
}

func newFakeBackend(t *testing.T) (*fakeBackend, *httptest.Server) {
	t.Helper()
	fb := &fakeBackend{triggerStatus: http.StatusOK}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		defer fb.mu.Unlock()

		switch r.URL.Path {
		case "/api/aggregate":
			fb.aggregates++
			_, _ = io.WriteString(w, testAggregate)
		case "/api/triggerCheck":
			var req api.TriggerRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			fb.triggers = append(fb.triggers, req)
			if fb.triggerStatus != http.StatusOK {
				http.Error(w, "no such check", fb.triggerStatus)
			}
		case "/api/prometheus/graph":
			var req api.GraphRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			fb.graphs = append(fb.graphs, req)
			_, _ = io.WriteString(w, testGraph)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return fb, srv
}

// useSettings points the package settings at server with a clean working
// directory and home, restoring the globals afterwards.
func useSettings(t *testing.T, server string) {
	t.Helper()
	oldSettings, oldCfgFile, oldMode, oldTerminal := settings, cfgFile, machineMode, isTerminal
	t.Cleanup(func() {
		settings, cfgFile, machineMode, isTerminal = oldSettings, oldCfgFile, oldMode, oldTerminal
	})

	settings = config.NewViper()
	if server != "" {
		settings.Set("server", server)
	}
	cfgFile = ""
	machineMode = false
	isTerminal = func(*os.File) bool { return false }

	t.Chdir(t.TempDir())
	t.Setenv("HOME", t.TempDir())
}

func decodeEnvelope(t *testing.T, buf *bytes.Buffer, data interface{}) JSONEnvelope {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *JSONError      `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &raw))
	if data != nil {
		require.NoError(t, json.Unmarshal(raw.Data, data))
	}
	return JSONEnvelope{Success: raw.Success, Error: raw.Error}
}

func TestChecksCommand_JSON(t *testing.T) {
	_, srv := newFakeBackend(t)
	useSettings(t, srv.URL)
	machineMode = true

	var buf bytes.Buffer
	require.NoError(t, checksCommand(context.Background(), &buf, ""))

	var out checksOutput
	env := decodeEnvelope(t, &buf, &out)
	assert.True(t, env.Success)
	assert.Equal(t, "s1@east", out.Server, "first server of the picklist")
	require.Len(t, out.Groups, 2)

	db := out.Groups[0]
	assert.Equal(t, "db", db.Namespace)
	assert.Equal(t, "Postgres", db.Name)
	assert.Equal(t, rowNoData, db.Status)

	web := out.Groups[1]
	assert.Equal(t, "Homepage", web.Name)
	assert.Equal(t, []string{"c1"}, web.Checks)
	assert.Equal(t, rowPass, web.Status)
	assert.Equal(t, int64(100), web.Duration)
	assert.Equal(t, "120ms", web.Latency)
	assert.Equal(t, "99%", web.Uptime)
}

func TestChecksCommand_ServerByLabel(t *testing.T) {
	_, srv := newFakeBackend(t)
	useSettings(t, srv.URL)
	machineMode = true

	var buf bytes.Buffer
	require.NoError(t, checksCommand(context.Background(), &buf, "s2"))

	var out checksOutput
	decodeEnvelope(t, &buf, &out)
	assert.Equal(t, "s2@west", out.Server)
	assert.Equal(t, rowPass, out.Groups[0].Status)
	assert.Equal(t, rowNoData, out.Groups[1].Status)
}

func TestChecksCommand_Table(t *testing.T) {
	_, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	var buf bytes.Buffer
	require.NoError(t, checksCommand(context.Background(), &buf, ""))

	out := buf.String()
	assert.Contains(t, out, "2 groups on s1")
	assert.Contains(t, out, "Homepage")
	assert.Contains(t, out, ui.SymbolSuccess+" pass")
	assert.Contains(t, out, "120ms")
}

func TestChecksCommand_UnknownServer(t *testing.T) {
	_, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	err := checksCommand(context.Background(), io.Discard, "nope")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
	assert.Contains(t, err.Error(), "Known servers: s1, s2")
}

func TestChecksCommand_BackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	useSettings(t, url)

	err := checksCommand(context.Background(), io.Discard, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConnect))
	assert.Contains(t, err.Error(), "Error loading data from server: failed to connect to server")
}

func TestChecksCommand_BackendRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "aggregate unavailable", http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	useSettings(t, srv.URL)

	err := checksCommand(context.Background(), io.Discard, "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBackend))
	assert.Contains(t, err.Error(), "Error loading data from server: aggregate unavailable")
}

func TestServersCommand(t *testing.T) {
	_, srv := newFakeBackend(t)
	useSettings(t, srv.URL)
	machineMode = true

	var buf bytes.Buffer
	require.NoError(t, serversCommand(context.Background(), &buf))

	var rows []serverRow
	decodeEnvelope(t, &buf, &rows)
	assert.Equal(t, []serverRow{
		{Label: "s1", Value: "s1@east"},
		{Label: "s2", Value: "s2@west"},
	}, rows)
}

func TestServersCommand_Table(t *testing.T) {
	_, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	var buf bytes.Buffer
	require.NoError(t, serversCommand(context.Background(), &buf))
	assert.Contains(t, buf.String(), "s1@east")
	assert.Less(t, strings.Index(buf.String(), "s1@east"), strings.Index(buf.String(), "s2@west"))
}

func TestTriggerCommand_OneServer(t *testing.T) {
	fb, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	var buf bytes.Buffer
	require.NoError(t, triggerCommand(context.Background(), &buf, "c1", "s1", false))

	assert.Equal(t, []api.TriggerRequest{{Server: "s1@east", CheckKey: "c1", CheckType: "http"}}, fb.triggers)
	assert.Equal(t, 2, fb.aggregates, "initial fetch plus refetch")
	assert.Contains(t, buf.String(), "Triggered homepage on s1")
}

func TestTriggerCommand_All(t *testing.T) {
	fb, srv := newFakeBackend(t)
	useSettings(t, srv.URL)
	machineMode = true

	var buf bytes.Buffer
	require.NoError(t, triggerCommand(context.Background(), &buf, "c1", "", true))

	require.Len(t, fb.triggers, 1, "c1 only ran on s1")
	assert.Equal(t, "s1@east", fb.triggers[0].Server)

	var out triggerOutput
	decodeEnvelope(t, &buf, &out)
	assert.Equal(t, triggerOutput{Check: "c1", Name: "homepage", Servers: []string{"s1@east"}}, out)
}

func TestTriggerCommand_UnknownCheck(t *testing.T) {
	fb, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	err := triggerCommand(context.Background(), io.Discard, "missing", "s1", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
	assert.Empty(t, fb.triggers)
}

func TestTriggerCommand_NoServerWithoutTerminal(t *testing.T) {
	fb, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	err := triggerCommand(context.Background(), io.Discard, "c1", "", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
	assert.Contains(t, err.Error(), "--all")
	assert.Empty(t, fb.triggers)
}

func TestTriggerCommand_PicksOnTerminal(t *testing.T) {
	fb, srv := newFakeBackend(t)
	useSettings(t, srv.URL)
	isTerminal = func(*os.File) bool { return true }

	oldPick := pickServer
	t.Cleanup(func() { pickServer = oldPick })
	var offered []aggregate.ServerOption
	pickServer = func(title string, servers []aggregate.ServerOption, includeAll bool) (string, error) {
		offered = servers
		assert.True(t, includeAll)
		assert.Contains(t, title, "homepage")
		return ui.AllServers, nil
	}

	require.NoError(t, triggerCommand(context.Background(), io.Discard, "c1", "", false))
	assert.Equal(t, []aggregate.ServerOption{{Label: "s1", Value: "s1@east"}}, offered)
	assert.Len(t, fb.triggers, 1)
}

func TestTriggerCommand_Rejected(t *testing.T) {
	fb, srv := newFakeBackend(t)
	fb.triggerStatus = http.StatusInternalServerError
	useSettings(t, srv.URL)

	err := triggerCommand(context.Background(), io.Discard, "c1", "s1@east", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrTrigger))
	assert.Contains(t, err.Error(), "Trigger error: no such check")
	assert.Equal(t, 1, fb.aggregates, "no refetch after a rejected trigger")
}

func TestGraphCommand(t *testing.T) {
	fb, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	var buf bytes.Buffer
	require.NoError(t, graphCommand(context.Background(), &buf, graphOptions{CheckKey: "c1", Timeframe: "1d"}))

	require.Len(t, fb.graphs, 1)
	assert.Equal(t, api.GraphRequest{
		CheckType:  "http",
		CanaryName: "web-canary",
		CheckKey:   "c1",
		Timeframe:  86400,
	}, fb.graphs[0], "type and canary come from the snapshot")

	out := buf.String()
	assert.Contains(t, out, "c1 over 1D")
	assert.Contains(t, out, "last 5  min 3  max 5")
	assert.Contains(t, out, "no data")
}

func TestGraphCommand_ExplicitSkipsSnapshot(t *testing.T) {
	fb, srv := newFakeBackend(t)
	useSettings(t, srv.URL)
	machineMode = true

	var buf bytes.Buffer
	require.NoError(t, graphCommand(context.Background(), &buf, graphOptions{
		CheckKey: "other", CheckType: "dns", CanaryName: "edge",
	}))

	assert.Zero(t, fb.aggregates)
	var out graphOutput
	decodeEnvelope(t, &buf, &out)
	assert.Equal(t, "1H", out.Timeframe)
	assert.Equal(t, int64(3600), out.Seconds)
	require.NotNil(t, out.Graph)
	assert.Len(t, out.Graph.Success, 2)
}

func TestGraphCommand_BadTimeframe(t *testing.T) {
	useSettings(t, "")
	err := graphCommand(context.Background(), io.Discard, graphOptions{CheckKey: "c1", Timeframe: "2h"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
}

func TestParseTimeframe(t *testing.T) {
	tests := []struct {
		flag string
		want string
	}{
		{"", "1H"},
		{"1h", "1H"},
		{"12H", "12H"},
		{"3d", "3D"},
		{"168h", "1W"},
	}
	for _, tt := range tests {
		t.Run(tt.flag, func(t *testing.T) {
			tf, err := ParseTimeframe(tt.flag)
			require.NoError(t, err)
			assert.Equal(t, tt.want, tf.Label)
		})
	}

	_, err := ParseTimeframe("5m")
	assert.Error(t, err)
}

func TestFormatCommand_Elastic(t *testing.T) {
	useSettings(t, "")
	input := `[{"Object": {"index": "logs", "health": "green",
		"primaries": {"docs": {"count": 12}, "store": {"size_in_bytes": 2048}, "indexing": {"index_failed": 0}}}}]`

	var buf bytes.Buffer
	require.NoError(t, formatCommand(strings.NewReader(input), &buf, "elastic-indices", ""))
	out := buf.String()
	assert.Contains(t, out, "logs")
	assert.Contains(t, out, "documents=12")
	assert.Contains(t, out, "size=2.0 KiB")
}

func TestFormatCommand_ConditionsJSON(t *testing.T) {
	useSettings(t, "")
	machineMode = true
	input := `[{"metadata": {"name": "web"}, "status": {"conditions": [
		{"type": "Ready", "status": "False", "reason": "Crash", "lastTransitionTime": "2024-01-01T00:00:00Z"}
	]}}]`

	var buf bytes.Buffer
	require.NoError(t, formatCommand(strings.NewReader(input), &buf, "k8s-conditions", ""))

	var rows []conditionRow
	decodeEnvelope(t, &buf, &rows)
	assert.Equal(t, []conditionRow{{
		Name:    "web",
		Ready:   false,
		Message: "Ready",
		Error:   "2024-01-01T00:00:00Z: Ready is Crash",
	}}, rows)
}

func TestFormatCommand_AlertsFromFile(t *testing.T) {
	useSettings(t, "")
	path := filepath.Join(t.TempDir(), "alerts.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"alertname": "Watchdog", "severity": "none"}]`), 0o644))

	var buf bytes.Buffer
	require.NoError(t, formatCommand(strings.NewReader(""), &buf, "k8s-alerts", path))
	assert.Contains(t, buf.String(), "Watchdog")
	assert.Contains(t, buf.String(), ui.SymbolSuccess)
}

func TestFormatCommand_Errors(t *testing.T) {
	useSettings(t, "")

	err := formatCommand(strings.NewReader("[]"), io.Discard, "yaml", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "k8s-alerts")

	err = formatCommand(strings.NewReader(`{"not": "a list"}`), io.Discard, "elastic-nodes", "")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))

	err = formatCommand(strings.NewReader(""), io.Discard, "elastic-nodes", "/does/not/exist.json")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInput))
}

func TestFormatKinds(t *testing.T) {
	assert.Equal(t, []string{
		"elastic-indices",
		"elastic-nodes",
		"k8s-alerts",
		"k8s-conditions",
		"k8s-node-metrics",
		"k8s-node-topology",
	}, formatKinds())
}

func TestConfigCommands(t *testing.T) {
	useSettings(t, "http://canary:8080")

	var buf bytes.Buffer
	require.NoError(t, configInitCommand(&buf, "", false))
	assert.Contains(t, buf.String(), "Wrote "+config.ConfigFileName)

	err := configInitCommand(io.Discard, "", false)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig), "refuses to overwrite")
	require.NoError(t, configInitCommand(io.Discard, "", true))

	buf.Reset()
	require.NoError(t, configSetCommand(&buf, "bars.max_height", "30"))
	assert.Contains(t, buf.String(), "Set bars.max_height = 30")

	cfg, err := config.Load(config.ConfigFileName)
	require.NoError(t, err)
	assert.Equal(t, "http://canary:8080", cfg.Server)
	assert.Equal(t, float64(30), cfg.Bars.MaxHeight)

	buf.Reset()
	require.NoError(t, configShowCommand(&buf))
	assert.Contains(t, buf.String(), config.ConfigFileName)
	assert.Contains(t, buf.String(), "max_height: 30")
}

func TestConfigSet_RejectsInvalidValue(t *testing.T) {
	useSettings(t, "")
	require.NoError(t, configInitCommand(io.Discard, "", false))

	err := configSetCommand(io.Discard, "base_path", "api")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrConfig))
}

func TestConfigSet_NoFile(t *testing.T) {
	useSettings(t, "")
	err := configSetCommand(io.Discard, "server", "http://x")
	require.Error(t, err)
	assert.Equal(t, ErrCodeConfigNotFound, ErrorToJSON(err).Code)
}

func TestTriggerCommand_SuggestsNearMiss(t *testing.T) {
	_, srv := newFakeBackend(t)
	useSettings(t, srv.URL)

	err := triggerCommand(context.Background(), io.Discard, "c3", "s1", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Did you mean: c1, c2?")
}
