package tui

import (
	"fmt"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/equipviz/internal/dataset"
)

const typeChartHeight = 8

// renderTypeChart draws equipment counts per type as vertical bars.
func renderTypeChart(s dataset.DatasetSummary, width int) string {
	names := s.TypeNames()
	if len(names) == 0 {
		return mutedStyle.Render("No equipment types.")
	}
	if width < 12 {
		width = 12
	}
	data := make([]barchart.BarData, 0, len(names))
	for i, name := range names {
		data = append(data, barchart.BarData{
			Label: shortLabel(name, 6),
			Values: []barchart.BarValue{{
				Name:  name,
				Value: float64(s.TypeCounts[name]),
				Style: lipgloss.NewStyle().Foreground(typeColor(i)),
			}},
		})
	}
	bc := barchart.New(width, typeChartHeight)
	bc.PushAll(data)
	bc.Draw()

	var legend []string
	for i, name := range names {
		swatch := lipgloss.NewStyle().Foreground(typeColor(i)).Render("■")
		legend = append(legend, fmt.Sprintf("%s %s %d", swatch, name, s.TypeCounts[name]))
	}
	return bc.View() + "\n" + truncate(strings.Join(legend, "  "), width)
}

// renderParamBars draws each parameter's [min, max] span with the average
// marked on it.
func renderParamBars(s dataset.DatasetSummary, width int) string {
	const labelWidth = 12
	barWidth := width - labelWidth - 24
	if barWidth < 10 {
		barWidth = 10
	}
	var lines []string
	for _, p := range dataset.Parameters {
		r := s.Ranges.Get(p)
		avg := s.Averages.Get(p)
		bar := spanBar(r, avg, barWidth)
		line := fmt.Sprintf("%s %s %s %s",
			labelStyle.Render(padRight(p.Label(), labelWidth)),
			lipgloss.NewStyle().Foreground(colorMin).Render(fmt.Sprintf("%8.2f", r.Min)),
			bar,
			lipgloss.NewStyle().Foreground(colorMax).Render(fmt.Sprintf("%-8.2f", r.Max)),
		)
		lines = append(lines, line)
	}
	legend := lipgloss.NewStyle().Foreground(colorMin).Render("min") + "  " +
		lipgloss.NewStyle().Foreground(colorAvg).Render("● avg") + "  " +
		lipgloss.NewStyle().Foreground(colorMax).Render("max")
	return strings.Join(lines, "\n") + "\n" + mutedStyle.Render(strings.Repeat(" ", labelWidth+1)) + legend
}

// spanBar places the average marker proportionally within the range. A
// degenerate or inverted range puts the marker at the start.
func spanBar(r dataset.Range, avg float64, width int) string {
	pos := 0
	if span := r.Max - r.Min; span > 0 {
		pos = int((avg - r.Min) / span * float64(width-1))
	}
	if pos < 0 {
		pos = 0
	}
	if pos > width-1 {
		pos = width - 1
	}
	line := lipgloss.NewStyle().Foreground(colorSurface2)
	return line.Render(strings.Repeat("━", pos)) +
		lipgloss.NewStyle().Foreground(colorAvg).Bold(true).Render("●") +
		line.Render(strings.Repeat("━", width-1-pos))
}

func shortLabel(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
