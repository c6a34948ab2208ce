package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/statuspage/internal/api"
	"github.com/rileyhilliard/statuspage/internal/format"
	"github.com/rileyhilliard/statuspage/internal/ui"
)

// Timeframe is a selectable graph window.
type Timeframe struct {
	Label    string
	Duration time.Duration
}

// Timeframes are the graph windows, shortest first. The first is the default.
var Timeframes = []Timeframe{
	{Label: "1H", Duration: time.Hour},
	{Label: "3H", Duration: 3 * time.Hour},
	{Label: "6H", Duration: 6 * time.Hour},
	{Label: "12H", Duration: 12 * time.Hour},
	{Label: "1D", Duration: 24 * time.Hour},
	{Label: "3D", Duration: 3 * 24 * time.Hour},
	{Label: "1W", Duration: 7 * 24 * time.Hour},
}

// graphSeries names the response fields in display order.
var graphSeries = []struct {
	title string
	color lipgloss.Color
	pick  func(*api.GraphResponse) []api.Point
}{
	{"success", ui.ColorSuccess, func(r *api.GraphResponse) []api.Point { return r.Success }},
	{"failed", ui.ColorError, func(r *api.GraphResponse) []api.Point { return r.Failed }},
	{"latency", ui.ColorInfo, func(r *api.GraphResponse) []api.Point { return r.Latency }},
}

// renderGraphView renders the Prometheus series of the selected group.
func (m Model) renderGraphView() string {
	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderDetailTitle())
	b.WriteString("  ")
	b.WriteString(m.renderTimeframes())
	b.WriteString("\n\n")
	b.WriteString(m.renderGraphBody())
	b.WriteString("\n\n")
	b.WriteString(FooterStyle.Render("esc back | [ ] timeframe | up/down check"))
	return b.String()
}

func (m Model) renderTimeframes() string {
	parts := make([]string, len(Timeframes))
	for i, tf := range Timeframes {
		if i == m.timeframe {
			parts[i] = SelectedStyle.Render("[" + tf.Label + "]")
		} else {
			parts[i] = LabelStyle.Render(tf.Label)
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) renderGraphBody() string {
	switch {
	case m.graphErr != "":
		return padBlock(ErrorBannerStyle.Render(ui.SymbolFail+" "+m.graphErr), 1)
	case m.graphLoading:
		return padBlock(m.spinner.View()+LabelStyle.Render(" loading graph..."), 1)
	case m.graph == nil:
		return ""
	}

	width := DefaultGraphWidth
	if m.width > 0 {
		width = max(10, m.width-30)
	}
	return padBlock(RenderGraph(m.graph, width, m.Timeframe().Duration), 1)
}

// DefaultGraphWidth is the sparkline width when the terminal size is unknown.
const DefaultGraphWidth = 60

// RenderGraph draws the success, failed and latency series of resp, each
// resampled to width columns.
func RenderGraph(resp *api.GraphResponse, width int, timeframe time.Duration) string {
	sections := make([]string, 0, len(graphSeries))
	for _, s := range graphSeries {
		sections = append(sections, renderSeries(s.title, s.pick(resp), width, s.color, timeframe))
	}
	return strings.Join(sections, "\n\n")
}

// renderSeries draws one titled sparkline with its time span and last,
// min and max values, all rounded to integers.
func renderSeries(title string, points []api.Point, width int, color lipgloss.Color, timeframe time.Duration) string {
	header := ValueStyle.Render(title)
	if len(points) == 0 {
		return header + "\n" + LabelStyle.Render("no data")
	}

	values := make([]float64, len(points))
	minVal, maxVal := math.Inf(1), math.Inf(-1)
	for i, p := range points {
		v := math.Round(p.Value)
		values[i] = v
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}

	stats := LabelStyle.Render(fmt.Sprintf("  last %d  min %d  max %d",
		int64(values[len(values)-1]), int64(minVal), int64(maxVal)))
	span := LabelStyle.Render(format.GraphLabel(points[0].Time, timeframe) + " - " +
		format.GraphLabel(points[len(points)-1].Time, timeframe))

	line := ui.RenderSparkline(resample(values, width), width, color)
	return header + stats + "\n" + line + "\n" + span
}

// resample fits data to at most targetSize columns, keeping the max of each
// bucket so spikes stay visible.
func resample(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) <= targetSize {
		// Short series draw one column per point.
		return data
	}

	result := make([]float64, targetSize)
	bucketSize := float64(len(data)) / float64(targetSize)
	for i := 0; i < targetSize; i++ {
		start := int(float64(i) * bucketSize)
		end := int(float64(i+1) * bucketSize)
		if end > len(data) {
			end = len(data)
		}
		if start >= end {
			start = end - 1
		}

		maxVal := data[start]
		for j := start + 1; j < end; j++ {
			if data[j] > maxVal {
				maxVal = data[j]
			}
		}
		result[i] = maxVal
	}
	return result
}
