package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/format"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

// renderDashboard renders the list view.
func (m Model) renderDashboard() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderServers())
	b.WriteString("\n\n")
	b.WriteString(m.renderGroups())
	b.WriteString("\n")
	if health := m.renderHealth(); health != "" {
		b.WriteString("\n")
		b.WriteString(health)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())

	return b.String()
}

// renderHeader renders the summary line plus the error banner or notice.
func (m Model) renderHeader() string {
	snap := m.store.Snapshot()

	refreshed := "never"
	if last := m.store.LastRefreshed(); !last.IsZero() {
		refreshed = format.TimeAgo(last, m.now())
	}

	title := TitleStyle.Render("statuspage")
	stats := LabelStyle.Render(fmt.Sprintf(" | %d checks | %d servers | refreshed %s",
		len(snap.Checks), len(snap.Servers), refreshed))

	auto := " | " + LabelStyle.Render("auto "+m.interval.String())
	if !m.store.AutoRefreshEnabled() {
		auto = " | " + PausedStyle.Render(ui.SymbolPaused+" paused")
	}

	loading := ""
	if m.store.Loading() {
		loading = " " + m.spinner.View()
	}

	lines := []string{HeaderStyle.Render(title + stats + auto + loading)}
	if errMsg := m.store.Error(); errMsg != "" {
		lines = append(lines, ErrorBannerStyle.Render(ui.SymbolFail+" "+errMsg))
	} else if m.notice != "" {
		lines = append(lines, NoticeStyle.Render(m.notice))
	}
	return strings.Join(lines, "\n")
}

// renderServers renders the server picker row.
func (m Model) renderServers() string {
	if len(m.servers) == 0 {
		return LabelStyle.Render(" no servers")
	}
	parts := make([]string, len(m.servers))
	for i, s := range m.servers {
		if i == m.server {
			parts[i] = SelectedStyle.Render("[" + s.Label + "]")
		} else {
			parts[i] = LabelStyle.Render(" " + s.Label + " ")
		}
	}
	return " " + strings.Join(parts, " ")
}

// renderGroups renders namespaces with one row per group.
func (m Model) renderGroups() string {
	if len(m.groups) == 0 {
		if m.store.Loading() {
			return LabelStyle.Render(" loading checks...")
		}
		return LabelStyle.Render(" no checks")
	}

	server := m.SelectedServer()
	width := m.stripWidth()

	var lines []string
	namespace := ""
	for i, g := range m.groups {
		if i == 0 || g.Namespace != namespace {
			namespace = g.Namespace
			if i > 0 {
				lines = append(lines, "")
			}
			lines = append(lines, NamespaceStyle.Render(" "+displayNamespace(namespace)))
		}
		lines = append(lines, m.renderGroupRow(g, i == m.selected, server, width))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderGroupRow(g aggregate.Group, selected bool, server string, width int) string {
	cursor := "  "
	nameStyle := GroupNameStyle
	if selected {
		cursor = SelectedStyle.Render("> ")
		nameStyle = SelectedStyle
	}

	name := format.Truncate(g.Name, groupNameWidth-2)
	if g.Merged() {
		name = format.Truncate(g.Name, groupNameWidth-6) + fmt.Sprintf(" (%d)", len(g.Checks))
	}

	symbol := LabelStyle.Render(ui.SymbolPending)
	if groupRanOn(g, server) {
		healthy := aggregate.GroupHealthy(g, server)
		symbol = ui.StatusStyle(healthy).Render(ui.StatusSymbol(healthy))
	}

	return " " + cursor + symbol + " " +
		ui.PadRight(nameStyle.Render(name), groupNameWidth) +
		renderStrip(g, server, m.bars, width)
}

// renderHealth shows latency and uptime of the selected group on the
// selected server.
func (m Model) renderHealth() string {
	g, ok := m.SelectedGroup()
	server := m.SelectedServer()
	if !ok || server == "" {
		return ""
	}

	var lines []string
	for _, c := range g.Checks {
		h, ok := c.Health[server]
		if !ok || (h.Latency == "" && h.Uptime == "") {
			continue
		}
		prefix := ""
		if len(g.Checks) > 1 {
			prefix = ValueStyle.Render(format.Truncate(c.Endpoint, 40)) + "  "
		}
		lines = append(lines, "   "+prefix+
			LabelStyle.Render("latency ")+ValueStyle.Render(orDash(h.Latency))+
			LabelStyle.Render("  uptime ")+ValueStyle.Render(orDash(h.Uptime)))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

// renderFooter renders the keyboard help footer.
func (m Model) renderFooter() string {
	hints := []string{
		"q quit",
		"r refresh",
		"p pause",
		"t trigger",
		"T trigger all",
		"tab server",
		"enter history",
		"g graph",
		"? help",
	}
	return FooterStyle.Render(strings.Join(hints, " | "))
}

// stripWidth fits the strip in whatever is left after the name column.
func (m Model) stripWidth() int {
	if m.width == 0 {
		return stripWidth
	}
	w := m.width - groupNameWidth - 8
	if w < 5 {
		return 5
	}
	return w
}

func groupRanOn(g aggregate.Group, server string) bool {
	for _, c := range g.Checks {
		if len(c.CheckStatuses[server]) > 0 {
			return true
		}
	}
	return false
}

func displayNamespace(ns string) string {
	if ns == "" {
		return "(default)"
	}
	return ns
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// padBlock left-pads every line of s.
func padBlock(s string, n int) string {
	return lipgloss.NewStyle().PaddingLeft(n).Render(s)
}
