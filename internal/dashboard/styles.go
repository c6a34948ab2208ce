package dashboard

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/statuspage/internal/ui"
)

// Dashboard-only colors. Status colors come from the ui package.
const (
	ColorAccent = lipgloss.Color("5") // Magenta
	ColorBorder = lipgloss.Color("8")
)

// Base styles for the dashboard
var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary).
			Bold(true).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted).
			Padding(0, 1)

	NamespaceStyle = lipgloss.NewStyle().
			Foreground(ui.ColorSecondary).
			Bold(true)

	GroupNameStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary)

	SelectedStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ui.ColorMuted)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ui.ColorPrimary)

	ErrorBannerStyle = lipgloss.NewStyle().
				Foreground(ui.ColorError).
				Bold(true).
				Padding(0, 1)

	NoticeStyle = lipgloss.NewStyle().
			Foreground(ui.ColorInfo).
			Padding(0, 1)

	PausedStyle = lipgloss.NewStyle().
			Foreground(ui.ColorWarning)

	SectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)
)

// Layout constants.
const (
	// groupNameWidth is the column reserved for group names in the list.
	groupNameWidth = 28
	// stripWidth is the default number of statuses drawn per strip.
	stripWidth = 40
	// messageWidth truncates status messages in the detail view.
	messageWidth = 80
)
