package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/equipviz/internal/dataset"
)

var cardStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorSurface1).
	Padding(0, 1)

func card(label, value string, color lipgloss.Color, width int) string {
	return cardStyle.Width(width).Render(
		labelStyle.Render(label) + "\n" + valueStyle.Foreground(color).Render(value),
	)
}

// renderCards lays out the headline numbers of a summary.
func renderCards(s dataset.DatasetSummary, width int) string {
	cw := (width - 8) / 5
	if cw < 14 {
		cw = 14
	}
	cards := []string{
		card("Total Equipment", fmt.Sprintf("%d", s.TotalCount), colorBrand, cw),
		card("Equipment Types", fmt.Sprintf("%d", len(s.TypeCounts)), colorMauve, cw),
	}
	for i, p := range dataset.Parameters {
		cards = append(cards, card("Avg "+p.Label(), fmt.Sprintf("%.2f", s.Averages.Get(p)), typeColor(i+2), cw))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func renderDatasetHeader(rec dataset.DatasetRecord, m Model) string {
	uploaded := rec.UploadedAt.In(m.loc).Format(m.dateFormat)
	line := valueStyle.Render(rec.Name) + mutedStyle.Render(fmt.Sprintf("  uploaded %s  id %s", uploaded, dataset.ShortID(rec.ID)))
	return line
}

func renderWarnings(issues []dataset.Issue, width int) string {
	if len(issues) == 0 {
		return ""
	}
	noun := "issue"
	if len(issues) > 1 {
		noun = "issues"
	}
	lines := []string{warningStyle.Render(fmt.Sprintf("⚠ %d data-quality %s", len(issues), noun))}
	for i, is := range issues {
		if i == 3 {
			lines = append(lines, mutedStyle.Render(fmt.Sprintf("  … %d more in the log", len(issues)-3)))
			break
		}
		lines = append(lines, mutedStyle.Render("  "+truncate(is.String(), width-2)))
	}
	return strings.Join(lines, "\n")
}

// renderWelcome is shown until a dataset is loaded.
func renderWelcome(width int) string {
	var b strings.Builder
	b.WriteString(valueStyle.Render("Upload a CSV file to see summary statistics"))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Expected format:"))
	b.WriteString("\n")
	for _, line := range strings.Split(strings.TrimRight(dataset.ExampleCSV, "\n"), "\n") {
		b.WriteString("  " + codeStyle.Render(truncate(line, width-4)) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(mutedStyle.Render("Pick a file in the upload pane and press enter, or load a dataset from history."))
	return b.String()
}

var tableColumns = []struct {
	title string
	min   int
}{
	{"Equipment Name", 16},
	{"Type", 12},
	{"Flowrate", 10},
	{"Pressure", 10},
	{"Temperature", 12},
}

func tableColumnsFor(width int) []table.Column {
	total := 0
	for _, c := range tableColumns {
		total += c.min
	}
	extra := width - total - 2*len(tableColumns)
	if extra < 0 {
		extra = 0
	}
	cols := make([]table.Column, 0, len(tableColumns))
	for i, c := range tableColumns {
		w := c.min
		if i < 2 {
			w += extra / 2
		}
		cols = append(cols, table.Column{Title: c.title, Width: w})
	}
	return cols
}

// tableRows formats rows with two decimals, in file order.
func tableRows(rows []dataset.EquipmentRow) []table.Row {
	out := make([]table.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, table.Row{
			r.Name,
			r.Type,
			fmt.Sprintf("%.2f", r.Flowrate),
			fmt.Sprintf("%.2f", r.Pressure),
			fmt.Sprintf("%.2f", r.Temperature),
		})
	}
	return out
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Foreground(colorSubtext0).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(colorSurface2).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(colorBase).
		Background(colorAccent).
		Bold(false)
	return s
}
