package cli

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/rileyhilliard/statuspage/internal/dashboard"
	"github.com/rileyhilliard/statuspage/internal/errors"
	"github.com/rileyhilliard/statuspage/internal/logger"
)

// isTerminal reports whether f is attached to a terminal.
var isTerminal = func(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

// dashboardCommand runs the full-screen dashboard, or prints the checks
// table once when stdout is not a terminal.
func dashboardCommand(ctx context.Context) error {
	if machineMode || !isTerminal(os.Stdout) {
		return checksCommand(ctx, os.Stdout, "")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// The dashboard owns the terminal, so logs only go to log_file.
	a, err := newApp(ctx, cfg, io.Discard)
	if err != nil {
		return err
	}
	defer a.Close()

	model := dashboard.NewModel(dashboard.Options{
		Store:    a.store,
		Grapher:  a.client,
		Interval: cfg.RefreshInterval,
		Bars:     barConfig(cfg),
		Logger:   logger.Named(a.log, "dashboard"),
	})

	a.log.Info("dashboard started against %s", a.client.URL(""))
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrInput,
			"Dashboard crashed",
			"Run 'statuspage checks' for a plain table, or set log_file to capture details")
	}
	return nil
}
