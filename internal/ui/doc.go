// Package ui provides terminal building blocks shared by the dashboard and
// the one-shot CLI commands.
//
// # Color Scheme
//
// Colors are ANSI codes for broad terminal compatibility:
//
//	ColorSuccess   (green)  - passing statuses
//	ColorError     (red)    - failing statuses and error banners
//	ColorWarning   (yellow) - paused auto refresh
//	ColorInfo      (cyan)   - latency series
//	ColorMuted     (gray)   - secondary text, timings
//	ColorSecondary (blue)   - spinner
//
// # Strips and Sparklines
//
// RenderBars draws a status strip from precomputed bar heights, one block
// glyph per status:
//
//	ui.RenderBars([]ui.Bar{{Height: 0.5, Pass: true}, {Height: 20}}, 20) // ▁█
//
// RenderSparkline draws a min/max scaled series for the Prometheus graph.
//
// # Prompts
//
// PickServer wraps a huh select for choosing a trigger target.
package ui
