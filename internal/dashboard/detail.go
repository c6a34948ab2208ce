package dashboard

import (
	"strings"

	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/format"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

// renderDetailView renders the status history of the selected group on the
// selected server.
func (m Model) renderDetailView() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderDetailTitle())
	b.WriteString("\n\n")

	if m.viewportReady {
		b.WriteString(m.detailViewport.View())
	} else {
		b.WriteString(m.renderDetailContent())
	}

	b.WriteString("\n")
	b.WriteString(FooterStyle.Render("esc back | up/down scroll | tab server | t trigger"))
	return b.String()
}

func (m Model) renderDetailTitle() string {
	g, ok := m.SelectedGroup()
	if !ok {
		return LabelStyle.Render(" No group selected")
	}
	title := " " + TitleStyle.Render(g.Name)
	if server := m.SelectedServer(); server != "" {
		title += LabelStyle.Render(" on ") + ValueStyle.Render(server)
	}
	return title
}

// renderDetailContent lists the windowed statuses, newest first.
func (m Model) renderDetailContent() string {
	g, ok := m.SelectedGroup()
	if !ok {
		return ""
	}
	server := m.SelectedServer()
	entries := aggregate.StatusesFor(g.Checks, server)
	if len(entries) == 0 {
		return padBlock(LabelStyle.Render("No statuses on this server"), 1)
	}

	now := m.now()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		pass := e.Status.Status
		line := ui.StatusStyle(pass).Render(ui.StatusSymbol(pass)) + " " +
			ui.PadRight(ValueStyle.Render(format.StatusAge(e.Status.Time, now)), 18) +
			ui.PadRight(LabelStyle.Render(format.Duration(e.Status.Duration)), 9)
		if g.Merged() || len(g.Checks) > 1 {
			line += ui.PadRight(LabelStyle.Render(format.Truncate(e.Check.Endpoint, 30)), 34)
		}
		if e.Status.Message != "" {
			line += format.Truncate(e.Status.Message, messageWidth)
		}
		lines = append(lines, line)
	}
	return padBlock(strings.Join(lines, "\n"), 1)
}

// updateDetailViewportContent refreshes the viewport after data or
// selection changes.
func (m *Model) updateDetailViewportContent() {
	if !m.viewportReady {
		return
	}
	m.detailViewport.SetContent(m.renderDetailContent())
}
