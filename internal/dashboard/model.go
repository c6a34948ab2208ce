package dashboard

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/logger"
	"github.com/rileyhilliard/statuspage/internal/store"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

// Grapher fetches Prometheus series for the graph view.
type Grapher interface {
	PrometheusGraph(ctx context.Context, req api.GraphRequest) (*api.GraphResponse, error)
}

// Options configures a dashboard Model.
type Options struct {
	Store *store.Store
	// Grapher may be nil, which disables the graph view.
	Grapher  Grapher
	Interval time.Duration
	Bars     aggregate.BarConfig
	Logger   logger.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// clockInterval re-renders relative times ("3 minutes ago").
const clockInterval = time.Second

// Model is the Bubble Tea model for the status dashboard. It only reads the
// snapshot; every state change goes through the store.
type Model struct {
	store    *store.Store
	grapher  Grapher
	interval time.Duration
	bars     aggregate.BarConfig
	log      logger.Logger
	now      func() time.Time

	// View model derived from the last snapshot seen.
	groups  []aggregate.Group
	servers []aggregate.ServerOption

	selected  int
	server    int
	timeframe int
	viewMode  ViewMode
	showHelp  bool
	quitting  bool
	width     int
	height    int

	// notice is a transient line under the header (trigger results, pause).
	notice string

	graph        *api.GraphResponse
	graphErr     string
	graphLoading bool
	graphFor     graphKey

	spinner spinner.Model

	// Detail view viewport for scrollable content
	detailViewport viewport.Model
	viewportReady  bool
}

// changeMsg signals that the store state changed.
type changeMsg struct{}

// clockMsg signals a periodic re-render.
type clockMsg time.Time

// triggerDoneMsg reports a finished trigger command.
type triggerDoneMsg struct {
	label string
	err   error
}

// graphKey identifies which graph a response belongs to.
type graphKey struct {
	checkKey  string
	timeframe int
}

// graphMsg carries a Prometheus graph response.
type graphMsg struct {
	key  graphKey
	resp *api.GraphResponse
	err  error
}

// NewModel creates a dashboard over st. Call Init through a tea.Program.
func NewModel(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = logger.Noop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = store.DefaultRefreshInterval
	}

	m := Model{
		store:    opts.Store,
		grapher:  opts.Grapher,
		interval: interval,
		bars:     opts.Bars,
		log:      log,
		now:      now,
		spinner:  ui.NewSpinner(),
	}
	m.syncFromStore()
	return m
}

// Init triggers the initial fetch and starts auto refresh.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchCmd(),
		m.startAutoRefreshCmd(),
		m.waitForChange(),
		m.clockCmd(),
		m.spinner.Tick,
	)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		handled, cmd := m.HandleKeyMsg(msg)
		if handled {
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Reserve space for header and footer
		headerHeight := 4
		footerHeight := 2
		viewportHeight := m.height - headerHeight - footerHeight
		if viewportHeight < 1 {
			viewportHeight = 1
		}

		if !m.viewportReady {
			m.detailViewport = viewport.New(m.width, viewportHeight)
			m.detailViewport.YPosition = headerHeight
			m.viewportReady = true
		} else {
			m.detailViewport.Width = m.width
			m.detailViewport.Height = viewportHeight
		}
		if m.viewMode == ViewDetail {
			m.updateDetailViewportContent()
		}

	case changeMsg:
		m.syncFromStore()
		if m.viewMode == ViewDetail {
			m.updateDetailViewportContent()
		}
		return m, m.waitForChange()

	case clockMsg:
		return m, m.clockCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case triggerDoneMsg:
		if msg.err != nil {
			m.log.Warn("trigger %s: %v", msg.label, msg.err)
			m.notice = ""
		} else {
			m.notice = "triggered " + msg.label
		}

	case graphMsg:
		// Drop responses for a graph the user already left.
		if msg.key != m.graphFor {
			return m, nil
		}
		m.graphLoading = false
		if msg.err != nil {
			m.graph = nil
			m.graphErr = api.Detail(msg.err)
		} else {
			m.graph = msg.resp
			m.graphErr = ""
		}
	}

	return m, nil
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.showHelp {
		return m.renderHelpOverlay()
	}
	switch m.viewMode {
	case ViewDetail:
		return m.renderDetailView()
	case ViewGraph:
		return m.renderGraphView()
	default:
		return m.renderDashboard()
	}
}

// syncFromStore rebuilds the view model from the store snapshot, keeping
// the selected group and server when they still exist.
func (m *Model) syncFromStore() {
	prevGroup, hadGroup := m.SelectedGroup()
	prevServer := m.SelectedServer()

	snap := m.store.Snapshot()
	var groups []aggregate.Group
	for _, ns := range aggregate.GroupChecks(snap.Checks) {
		groups = append(groups, ns.Groups...)
	}
	m.groups = groups
	m.servers = aggregate.OrderedServers(snap.Servers)

	m.selected = clamp(m.selected, len(m.groups))
	if hadGroup {
		for i, g := range m.groups {
			if sameGroup(g, prevGroup) {
				m.selected = i
				break
			}
		}
	}

	m.server = clamp(m.server, len(m.servers))
	for i, s := range m.servers {
		if s.Value == prevServer {
			m.server = i
			break
		}
	}
}

func sameGroup(a, b aggregate.Group) bool {
	return a.Namespace == b.Namespace && a.CheckName == b.CheckName &&
		a.Type == b.Type && a.Label == b.Label
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

// SelectedGroup returns the group under the cursor.
func (m Model) SelectedGroup() (aggregate.Group, bool) {
	if m.selected >= 0 && m.selected < len(m.groups) {
		return m.groups[m.selected], true
	}
	return aggregate.Group{}, false
}

// SelectedServer returns the identifier of the selected server.
func (m Model) SelectedServer() string {
	if m.server >= 0 && m.server < len(m.servers) {
		return m.servers[m.server].Value
	}
	return ""
}

// Timeframe returns the selected graph timeframe.
func (m Model) Timeframe() Timeframe {
	return Timeframes[m.timeframe]
}

// waitForChange blocks until the store signals a change.
func (m Model) waitForChange() tea.Cmd {
	changes := m.store.Changes()
	return func() tea.Msg {
		<-changes
		return changeMsg{}
	}
}

func (m Model) clockCmd() tea.Cmd {
	return tea.Tick(clockInterval, func(t time.Time) tea.Msg {
		return clockMsg(t)
	})
}

// fetchCmd refetches the snapshot. Failures land in the store error.
func (m Model) fetchCmd() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		_ = st.FetchSnapshot(context.Background())
		return nil
	}
}

func (m Model) startAutoRefreshCmd() tea.Cmd {
	st, interval := m.store, m.interval
	return func() tea.Msg {
		st.StartAutoRefresh(interval)
		return nil
	}
}

// triggerSelectedCmd re-runs every member of the selected group that ran on
// the selected server, one after another. A failed member doesn't stop the
// rest.
func (m *Model) triggerSelectedCmd() tea.Cmd {
	group, ok := m.SelectedGroup()
	server := m.SelectedServer()
	if !ok || server == "" {
		return nil
	}

	var keys []string
	for _, c := range group.Checks {
		if c.RanOn(server) {
			keys = append(keys, c.Key)
		}
	}
	if len(keys) == 0 {
		m.notice = group.Name + " never ran on " + aggregate.ServerLabel(server)
		return nil
	}

	label := group.Name + " on " + aggregate.ServerLabel(server)
	m.notice = "triggering " + label + "..."
	st := m.store
	return func() tea.Msg {
		var errs []error
		for _, key := range keys {
			if err := st.TriggerOne(context.Background(), server, key); err != nil {
				errs = append(errs, err)
			}
		}
		return triggerDoneMsg{label: label, err: errors.Join(errs...)}
	}
}

// triggerAllCmd re-runs the selected group on every server it ran on.
func (m *Model) triggerAllCmd() tea.Cmd {
	group, ok := m.SelectedGroup()
	if !ok {
		return nil
	}

	label := group.Name + " on all servers"
	m.notice = "triggering " + label + "..."
	st := m.store
	checks := group.Checks
	return func() tea.Msg {
		err := st.TriggerMerged(context.Background(), checks)
		return triggerDoneMsg{label: label, err: err}
	}
}

// graphCmd fetches the graph of the selected group's first check for the
// selected timeframe.
func (m *Model) graphCmd() tea.Cmd {
	group, ok := m.SelectedGroup()
	if !ok || m.grapher == nil {
		if m.grapher == nil {
			m.graphErr = "graphs are not available"
		}
		return nil
	}

	check := group.Checks[0]
	key := graphKey{checkKey: check.Key, timeframe: m.timeframe}
	if key == m.graphFor && (m.graph != nil || m.graphLoading) {
		return nil
	}
	m.graphFor = key
	m.graph = nil
	m.graphErr = ""
	m.graphLoading = true

	req := api.GraphRequest{
		CheckType:  check.Type,
		CanaryName: check.CanaryName,
		CheckKey:   check.Key,
		Timeframe:  int64(m.Timeframe().Duration.Seconds()),
	}
	grapher := m.grapher
	return func() tea.Msg {
		resp, err := grapher.PrometheusGraph(context.Background(), req)
		return graphMsg{key: key, resp: resp, err: err}
	}
}
