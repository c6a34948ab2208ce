package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Sparkline block characters representing 8 vertical levels (lowest to highest).
const sparklineBlocks = "▁▂▃▄▅▆▇█"

// sparklineBlockRunes provides indexed access to block characters.
var sparklineBlockRunes = []rune(sparklineBlocks)

// RenderSparkline creates a sparkline from values, keeping the most recent
// width points. Values map to 8 vertical levels over the min/max range and
// the whole line is drawn in color.
func RenderSparkline(data []float64, width int, color lipgloss.Color) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}

	// Use only the most recent 'width' data points
	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(data) * 3)

	numLevels := len(sparklineBlockRunes)
	valueRange := maxVal - minVal

	for _, v := range data {
		var level int
		if valueRange == 0 {
			// All values are the same, use middle level
			level = numLevels / 2
		} else {
			level = blockLevel((v - minVal) / valueRange)
		}
		sb.WriteRune(sparklineBlockRunes[level])
	}

	return lipgloss.NewStyle().Foreground(color).Render(sb.String())
}

// Bar is one column of a status strip.
type Bar struct {
	Height float64
	Pass   bool
}

// RenderBars draws a status strip: one block glyph per bar, scaled against
// maxHeight, green when passing and red when failing. Bars are separated by
// nothing so long histories stay compact.
func RenderBars(bars []Bar, maxHeight float64) string {
	if len(bars) == 0 || maxHeight <= 0 {
		return ""
	}

	pass := lipgloss.NewStyle().Foreground(ColorSuccess)
	fail := lipgloss.NewStyle().Foreground(ColorError)

	var sb strings.Builder
	for _, b := range bars {
		glyph := string(sparklineBlockRunes[blockLevel(b.Height/maxHeight)])
		if b.Pass {
			sb.WriteString(pass.Render(glyph))
		} else {
			sb.WriteString(fail.Render(glyph))
		}
	}
	return sb.String()
}

// blockLevel maps a 0..1 fraction to a block index, clamped.
func blockLevel(fraction float64) int {
	numLevels := len(sparklineBlockRunes)
	level := int(fraction * float64(numLevels-1))
	if level < 0 {
		return 0
	}
	if level >= numLevels {
		return numLevels - 1
	}
	return level
}
