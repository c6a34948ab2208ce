package dashboard

import (
	"github.com/rileyhilliard/statuspage/internal/aggregate"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

// renderStrip draws the status strip of group on server: the windowed
// statuses oldest to newest, at most width of them.
func renderStrip(group aggregate.Group, server string, cfg aggregate.BarConfig, width int) string {
	entries := aggregate.StatusesFor(group.Checks, server)
	if len(entries) == 0 {
		return LabelStyle.Render(ui.SymbolPending + " no data")
	}
	if width > 0 && len(entries) > width {
		entries = entries[:width]
	}

	heights := aggregate.BarHeights(entries, cfg)
	bars := make([]ui.Bar, len(entries))
	// Entries are newest first; the strip reads left to right in time.
	for i, e := range entries {
		bars[len(entries)-1-i] = ui.Bar{Height: heights[i], Pass: e.Status.Status}
	}
	return ui.RenderBars(bars, maxHeight(cfg))
}

func maxHeight(cfg aggregate.BarConfig) float64 {
	if cfg.MaxHeight <= 0 {
		return aggregate.DefaultBarConfig().MaxHeight
	}
	return cfg.MaxHeight
}
