package dashboard

import tea "github.com/charmbracelet/bubbletea"

// ViewMode defines the current display mode of the dashboard.
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewGraph
)

// Key bindings as constants for consistency.
const (
	KeyQuit          = "q"
	KeyQuitAlt       = "ctrl+c"
	KeyRefresh       = "r"
	KeyPause         = "p"
	KeyTrigger       = "t"
	KeyTriggerAll    = "T"
	KeyNextServer    = "tab"
	KeyPrevServer    = "shift+tab"
	KeyGraph         = "g"
	KeyPrevTimeframe = "["
	KeyNextTimeframe = "]"
	KeySelectPrev    = "up"
	KeySelectPrevK   = "k"
	KeySelectNext    = "down"
	KeySelectNextJ   = "j"
	KeySelectFirst   = "home"
	KeySelectLast    = "end"
	KeyExpand        = "enter"
	KeyCollapse      = "esc"
	KeyToggleHelp    = "?"
)

// HandleKeyMsg processes keyboard input and returns the command to run.
// Returns true if the key was handled, false otherwise.
func (m *Model) HandleKeyMsg(msg tea.KeyMsg) (bool, tea.Cmd) {
	key := msg.String()

	// Help toggle takes priority
	if key == KeyToggleHelp {
		m.showHelp = !m.showHelp
		return true, nil
	}

	// If help is showing, Esc closes it
	if m.showHelp && key == KeyCollapse {
		m.showHelp = false
		return true, nil
	}

	switch key {
	case KeyQuit, KeyQuitAlt:
		m.quitting = true
		m.store.StopAutoRefresh()
		return true, tea.Quit

	case KeyCollapse:
		if m.viewMode != ViewList {
			m.viewMode = ViewList
			return true, nil
		}
		m.store.ClearError()
		m.notice = ""
		return true, nil

	case KeyRefresh:
		return true, m.fetchCmd()

	case KeyPause:
		if m.store.ToggleAutoRefresh(m.interval) {
			m.notice = "auto refresh every " + m.interval.String()
		} else {
			m.notice = "auto refresh paused"
		}
		return true, nil

	case KeyTrigger:
		return true, m.triggerSelectedCmd()

	case KeyTriggerAll:
		return true, m.triggerAllCmd()

	case KeyNextServer:
		m.moveServer(1)
		return true, m.afterSelectionChange()

	case KeyPrevServer:
		m.moveServer(-1)
		return true, m.afterSelectionChange()

	case KeyGraph:
		if _, ok := m.SelectedGroup(); !ok {
			return true, nil
		}
		m.viewMode = ViewGraph
		return true, m.graphCmd()

	case KeyPrevTimeframe:
		m.moveTimeframe(-1)
		if m.viewMode == ViewGraph {
			return true, m.graphCmd()
		}
		return true, nil

	case KeyNextTimeframe:
		m.moveTimeframe(1)
		if m.viewMode == ViewGraph {
			return true, m.graphCmd()
		}
		return true, nil

	case KeySelectPrev, KeySelectPrevK:
		if m.viewMode == ViewDetail {
			m.detailViewport.ScrollUp(1)
			return true, nil
		}
		if m.selected > 0 {
			m.selected--
		}
		return true, m.afterSelectionChange()

	case KeySelectNext, KeySelectNextJ:
		if m.viewMode == ViewDetail {
			m.detailViewport.ScrollDown(1)
			return true, nil
		}
		if m.selected < len(m.groups)-1 {
			m.selected++
		}
		return true, m.afterSelectionChange()

	case KeySelectFirst:
		m.selected = 0
		return true, m.afterSelectionChange()

	case KeySelectLast:
		if len(m.groups) > 0 {
			m.selected = len(m.groups) - 1
		}
		return true, m.afterSelectionChange()

	case KeyExpand:
		if m.viewMode == ViewList && len(m.groups) > 0 {
			m.viewMode = ViewDetail
			m.updateDetailViewportContent()
		}
		return true, nil
	}

	return false, nil
}

func (m *Model) moveServer(delta int) {
	n := len(m.servers)
	if n == 0 {
		return
	}
	m.server = ((m.server+delta)%n + n) % n
}

func (m *Model) moveTimeframe(delta int) {
	n := len(Timeframes)
	m.timeframe = ((m.timeframe+delta)%n + n) % n
}

// afterSelectionChange refreshes whichever secondary view depends on the
// selected group or server.
func (m *Model) afterSelectionChange() tea.Cmd {
	switch m.viewMode {
	case ViewDetail:
		m.updateDetailViewportContent()
	case ViewGraph:
		return m.graphCmd()
	}
	return nil
}
