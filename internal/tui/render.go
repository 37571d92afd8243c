package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/jask/equipviz/internal/notify"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(colorBrand).Bold(true)

	headerBarStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorMantle).
			Padding(0, 2)

	headerAppStyle = lipgloss.NewStyle().
			Foreground(colorBrand).
			Background(colorMantle).
			Bold(true)

	headerSubStyle = lipgloss.NewStyle().
			Foreground(colorOverlay1).
			Background(colorMantle)

	activeTabStyle = lipgloss.NewStyle().
			Foreground(colorAccent).
			Background(colorSurface0).
			Bold(true).
			Padding(0, 1)

	inactiveTabStyle = lipgloss.NewStyle().
				Foreground(colorOverlay1).
				Background(colorMantle).
				Padding(0, 1)

	tabSepStyle = lipgloss.NewStyle().
			Foreground(colorOverlay0).
			Background(colorMantle)

	footerStyle = lipgloss.NewStyle().
			Foreground(colorSubtext0).
			Background(colorMantle).
			Padding(0, 2)

	statusBarStyle = lipgloss.NewStyle().
			Foreground(colorSubtext1).
			Background(colorSurface0).
			Padding(0, 2)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorSurface1).
			Padding(0, 1)

	focusedBoxStyle = boxStyle.BorderForeground(colorFocus)

	helpKeyStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	helpDescStyle = lipgloss.NewStyle().Foreground(colorSubtext0)

	mutedStyle   = lipgloss.NewStyle().Foreground(colorOverlay1)
	labelStyle   = lipgloss.NewStyle().Foreground(colorSubtext0)
	valueStyle   = lipgloss.NewStyle().Foreground(colorText).Bold(true)
	cursorStyle  = lipgloss.NewStyle().Foreground(colorAccent).Bold(true)
	warningStyle = lipgloss.NewStyle().Foreground(colorWarning).Bold(true)
	codeStyle    = lipgloss.NewStyle().Foreground(colorTeal)
)

var tabNames = []string{"Summary & Charts", "Data Table"}

func renderHeader(version string, activeTab, width int) string {
	name := headerAppStyle.Render("EquipViz")
	sub := headerSubStyle.Render(" Chemical Equipment Parameter Visualizer")
	if version != "" {
		sub += headerSubStyle.Render(" " + version)
	}

	var tabs []string
	for i, tab := range tabNames {
		if i == activeTab {
			tabs = append(tabs, activeTabStyle.Render(tab))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(tab))
		}
	}
	tabBar := tabSepStyle.Render(" ") + strings.Join(tabs, tabSepStyle.Render("│"))

	line := name + sub + tabSepStyle.Render("  ") + tabBar
	if width <= 0 {
		return headerBarStyle.Render(line)
	}
	return headerBarStyle.Width(width).Render(truncate(line, width-4))
}

// renderBox draws a titled box; focused boxes get the focus border.
func renderBox(title, content string, width int, focused bool) string {
	style := boxStyle
	if focused {
		style = focusedBoxStyle
	}
	inner := width - 4
	if inner < 8 {
		inner = 8
	}
	header := titleStyle.Render(title)
	sep := lipgloss.NewStyle().Foreground(colorSurface2).Render(strings.Repeat("─", inner))
	return style.Width(inner + 2).Render(header + "\n" + sep + "\n" + content)
}

func renderFooter(bindings []key.Binding, width int) string {
	bg := colorMantle
	keyStyle := helpKeyStyle.Background(bg)
	descStyle := helpDescStyle.Background(bg)
	space := lipgloss.NewStyle().Background(bg).Render(" ")
	sep := lipgloss.NewStyle().Background(bg).Render("  ")

	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		if h.Key == "" && h.Desc == "" {
			continue
		}
		parts = append(parts, keyStyle.Render(h.Key)+space+descStyle.Render(h.Desc))
	}
	content := strings.Join(parts, sep)
	if width <= 0 {
		return footerStyle.Render(content)
	}
	return footerStyle.Width(width).Render(content)
}

// renderStatus shows the notification banner, or idle text when none is visible.
func renderStatus(n *notify.Notification, idle string, width int) string {
	text := idle
	style := statusBarStyle
	if n != nil {
		text = n.Text
		switch n.Kind {
		case notify.Success:
			style = style.Foreground(colorSuccess).Bold(true)
		case notify.Error:
			style = style.Foreground(colorError).Bold(true)
		default:
			style = style.Foreground(colorInfo)
		}
	}
	flat := strings.ReplaceAll(text, "\n", " ")
	if width <= 0 {
		return style.Render(flat)
	}
	return style.Width(width).Render(truncate(flat, width-4))
}

func placeWithFooter(body, statusLine, footer string, width, height int) string {
	if height == 0 {
		return body + "\n\n" + statusLine + "\n" + footer
	}
	contentHeight := height - 2
	if contentHeight < 1 {
		contentHeight = 1
	}
	if lipgloss.Height(body) >= contentHeight {
		lines := splitLines(body)
		body = strings.Join(lines[:contentHeight], "\n")
		return body + "\n" + statusLine + "\n" + footer
	}
	main := lipgloss.Place(width, contentHeight, lipgloss.Left, lipgloss.Top, body)
	// full-width lines so stale cells from the previous frame are overwritten
	lines := splitLines(main)
	for i, line := range lines {
		lines[i] = padRight(line, width)
	}
	return strings.Join(lines, "\n") + "\n" + statusLine + "\n" + footer
}

func splitLines(s string) []string {
	if s == "" {
		return []string{""}
	}
	return strings.Split(s, "\n")
}

// padRight pads s with spaces so its visual width equals width.
func padRight(s string, width int) string {
	if width <= 0 {
		return s
	}
	w := ansi.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// truncate shortens s to width cells, appending an ellipsis if cut.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
