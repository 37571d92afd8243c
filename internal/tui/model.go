// Package tui is the terminal front end: an upload pane, the history list and
// the summary/table view of the selected dataset. All state changes go through
// session.Session; this package only owns cursors, focus and layout.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jask/equipviz/internal/dataset"
	"github.com/jask/equipviz/internal/logger"
	"github.com/jask/equipviz/internal/session"
)

const (
	defaultDateFormat = "2006-01-02 15:04"
	defaultWidth      = 120
	sidebarWidth      = 40
	maxFileRows       = 6
	maxHistoryRows    = 8
)

type pane int

const (
	paneFiles pane = iota
	paneHistory
	paneData
	paneCount
)

const (
	tabSummary = iota
	tabTable
)

// Options configures a Model.
type Options struct {
	Session    session.Session
	UploadDir  string
	DateFormat string
	Location   *time.Location
	Version    string
	Logger     *logger.Logger
}

// Model is the bubbletea model for the whole screen.
type Model struct {
	sess session.Session
	keys *KeyRegistry
	log  *logger.Logger

	spinner spinner.Model
	filter  textinput.Model
	table   table.Model

	focus      pane
	activeTab  int
	uploadDir  string
	files      []csvFile
	filesErr   error
	fileCursor int
	histCursor int
	filtering  bool
	query      string
	tableKey   string

	dateFormat string
	loc        *time.Location
	version    string
	width      int
	height     int
}

// New builds the model around an idle session.
func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	dir := strings.TrimSpace(opts.UploadDir)
	if dir == "" {
		dir = "."
	}
	format := opts.DateFormat
	if format == "" {
		format = defaultDateFormat
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	fi := textinput.New()
	fi.Prompt = "/ "
	fi.Placeholder = "filter by name"
	fi.CharLimit = 64
	fi.Cursor.SetMode(cursor.CursorStatic)

	tb := table.New(
		table.WithColumns(tableColumnsFor(defaultWidth-sidebarWidth-6)),
		table.WithHeight(12),
	)
	tb.SetStyles(tableStyles())

	return Model{
		sess:       opts.Session,
		keys:       NewKeyRegistry(),
		log:        log.With("component", "tui"),
		spinner:    sp,
		filter:     fi,
		table:      tb,
		uploadDir:  dir,
		dateFormat: format,
		loc:        loc,
		version:    opts.Version,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.sess.Init(), loadFilesCmd(m.uploadDir))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTable()
		return m, nil
	case filesLoadedMsg:
		m.files = msg.files
		m.filesErr = msg.err
		if msg.err != nil {
			m.log.Warn("scan upload dir failed", "dir", msg.dir, "error", msg.err)
		}
		m.fileCursor = clampCursor(m.fileCursor, len(m.files))
		return m, nil
	case spinner.TickMsg:
		if !m.sess.Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateKey(msg)
	}

	next, cmd, ok := m.sess.Update(msg)
	if !ok {
		return m, nil
	}
	m.sess = next
	m.histCursor = clampCursor(m.histCursor, len(m.visibleHistory()))
	m.syncTable()
	return m, cmd
}

func (m Model) scope() string {
	if m.filtering {
		return scopeFilter
	}
	switch m.focus {
	case paneFiles:
		return scopeFiles
	case paneHistory:
		return scopeHistory
	default:
		return scopeData
	}
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keyName := msg.String()
	b := m.keys.Lookup(keyName, m.scope())
	if b == nil {
		return m, nil
	}
	switch b.Action {
	case actionQuit:
		return m, tea.Quit
	case actionNextPane:
		m.setFocus((m.focus + 1) % paneCount)
	case actionPrevPane:
		m.setFocus((m.focus + paneCount - 1) % paneCount)
	case actionSummaryTab:
		m.activeTab = tabSummary
	case actionTableTab:
		m.activeTab = tabTable
	case actionNavigate:
		m.moveCursor(navDelta(keyName))
	case actionUp:
		m.table.MoveUp(1)
	case actionDown:
		m.table.MoveDown(1)
	case actionRescan:
		return m, loadFilesCmd(m.uploadDir)
	case actionRefresh:
		var cmd tea.Cmd
		m.sess, cmd = m.sess.Refresh()
		return m, cmd
	case actionUpload:
		return m.upload()
	case actionSelect:
		entries := m.visibleHistory()
		if len(entries) == 0 {
			return m, nil
		}
		var cmd tea.Cmd
		m.sess, cmd = m.sess.Select(entries[m.histCursor].ID)
		m.syncTable()
		return m, cmd
	case actionReport:
		id := m.reportTarget()
		if id == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.sess, cmd = m.sess.GenerateReport(id)
		return m, cmd
	case actionFilter:
		m.filtering = true
		m.filter.SetValue(m.query)
		m.filter.CursorEnd()
		cmd := m.filter.Focus()
		return m, cmd
	case actionClear:
		m.clearFilter()
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}
	if b := m.keys.Lookup(msg.String(), scopeFilter); b != nil && b.Scope == scopeFilter {
		switch b.Action {
		case actionConfirm:
			m.filtering = false
			m.filter.Blur()
		case actionCancel:
			m.clearFilter()
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if q := m.filter.Value(); q != m.query {
		m.query = q
		m.histCursor = 0
	}
	return m, cmd
}

func (m *Model) clearFilter() {
	m.filtering = false
	m.query = ""
	m.filter.SetValue("")
	m.filter.Blur()
	m.histCursor = 0
}

// upload starts the highlighted file. The spinner only ticks when the session
// accepted the upload.
func (m Model) upload() (tea.Model, tea.Cmd) {
	if len(m.files) == 0 {
		return m, nil
	}
	next, cmd := m.sess.Upload(m.files[m.fileCursor].path)
	m.sess = next
	if cmd == nil {
		return m, nil
	}
	return m, tea.Batch(cmd, m.spinner.Tick)
}

// reportTarget is the highlighted history entry, or the dataset on screen when
// the data pane is focused.
func (m Model) reportTarget() string {
	if m.focus == paneHistory {
		entries := m.visibleHistory()
		if len(entries) == 0 {
			return ""
		}
		return entries[m.histCursor].ID
	}
	if cur := m.sess.View().Current; cur != nil {
		return cur.ID
	}
	return ""
}

func (m *Model) setFocus(p pane) {
	m.focus = p
	if p == paneData {
		m.table.Focus()
	} else {
		m.table.Blur()
	}
}

func (m *Model) moveCursor(delta int) {
	switch m.focus {
	case paneFiles:
		m.fileCursor = clampCursor(m.fileCursor+delta, len(m.files))
	case paneHistory:
		m.histCursor = clampCursor(m.histCursor+delta, len(m.visibleHistory()))
	}
}

func navDelta(keyName string) int {
	switch keyName {
	case "k", "up":
		return -1
	case "j", "down":
		return 1
	}
	return 0
}

func clampCursor(cursor, n int) int {
	if n == 0 || cursor < 0 {
		return 0
	}
	if cursor >= n {
		return n - 1
	}
	return cursor
}

func (m Model) visibleHistory() []dataset.HistoryEntry {
	return m.sess.Filter(m.query)
}

// syncTable reloads table rows when the dataset on screen changes.
func (m *Model) syncTable() {
	cur := m.sess.View().Current
	key := ""
	if cur != nil {
		key = fmt.Sprintf("%s/%d/%t", cur.ID, len(cur.Rows), cur.HasRows())
	}
	if key == m.tableKey {
		return
	}
	m.tableKey = key
	if cur == nil {
		m.table.SetRows(nil)
		return
	}
	m.table.SetRows(tableRows(cur.Rows))
	m.table.SetCursor(0)
}

func (m *Model) resizeTable() {
	w := m.mainWidth() - 4
	m.table.SetColumns(tableColumnsFor(w - 2))
	m.table.SetWidth(w)
	h := m.height - 12
	if h < 5 {
		h = 5
	}
	m.table.SetHeight(h)
}

func (m Model) screenWidth() int {
	if m.width <= 0 {
		return defaultWidth
	}
	return m.width
}

func (m Model) mainWidth() int {
	w := m.screenWidth() - sidebarWidth - 1
	if w < 40 {
		w = 40
	}
	return w
}

func (m Model) View() string {
	vm := m.sess.View()
	width := m.screenWidth()

	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderFilesPane(vm),
		m.renderHistoryPane(vm),
	)
	right := m.renderMain(vm)
	body := renderHeader(m.version, m.activeTab, m.width) + "\n" +
		lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right)

	status := renderStatus(vm.Notification, idleText(vm), m.width)
	footer := renderFooter(m.keys.HelpBindings(m.scope()), m.width)
	return placeWithFooter(body, status, footer, width, m.height)
}

func idleText(vm session.ViewModel) string {
	switch {
	case vm.ReportsInFlight == 1:
		return "Generating 1 report…"
	case vm.ReportsInFlight > 1:
		return fmt.Sprintf("Generating %d reports…", vm.ReportsInFlight)
	case vm.Busy:
		return "Uploading…"
	}
	return "Ready"
}

func (m Model) renderFilesPane(vm session.ViewModel) string {
	inner := sidebarWidth - 4
	var lines []string
	lines = append(lines, mutedStyle.Render(truncate(m.uploadDir, inner)))
	switch {
	case m.filesErr != nil:
		lines = append(lines, warningStyle.Render(truncate(m.filesErr.Error(), inner)))
	case len(m.files) == 0:
		lines = append(lines, mutedStyle.Render("No CSV files found."))
	default:
		start, end := window(m.fileCursor, len(m.files), maxFileRows)
		for i := start; i < end; i++ {
			f := m.files[i]
			size := humanSize(f.size)
			name := truncate(f.name, inner-len(size)-3)
			line := padRight(name, inner-len(size)-2) + mutedStyle.Render(size)
			if i == m.fileCursor && m.focus == paneFiles {
				line = cursorStyle.Render("> ") + line
			} else {
				line = "  " + line
			}
			lines = append(lines, line)
		}
	}
	if vm.Busy {
		lines = append(lines, "", m.spinner.View()+" "+valueStyle.Render("Uploading…"))
	}
	return renderBox("Upload CSV", strings.Join(lines, "\n"), sidebarWidth, m.focus == paneFiles)
}

func (m Model) renderHistoryPane(vm session.ViewModel) string {
	inner := sidebarWidth - 4
	var lines []string
	if m.filtering || m.query != "" {
		if m.filtering {
			lines = append(lines, m.filter.View())
		} else {
			lines = append(lines, mutedStyle.Render("/ "+m.query))
		}
	}
	entries := m.visibleHistory()
	if len(entries) == 0 {
		if m.query != "" {
			lines = append(lines, mutedStyle.Render("No matching datasets."))
		} else {
			lines = append(lines, mutedStyle.Render("No datasets yet."))
		}
	}
	start, end := window(m.histCursor, len(entries), maxHistoryRows)
	for i := start; i < end; i++ {
		e := entries[i]
		marker := "  "
		if i == m.histCursor && m.focus == paneHistory {
			marker = cursorStyle.Render("> ")
		}
		name := e.Name
		if vm.Current != nil && vm.Current.ID == e.ID {
			name = valueStyle.Render(truncate(name, inner-2))
		} else {
			name = truncate(name, inner-2)
		}
		lines = append(lines, marker+name)
		detail := fmt.Sprintf("%s · %d records · %d types",
			e.UploadedAt.In(m.loc).Format(m.dateFormat), e.Summary.TotalCount, len(e.Summary.TypeCounts))
		lines = append(lines, "  "+mutedStyle.Render(truncate(detail, inner-2)))
	}
	return renderBox(fmt.Sprintf("Recent Uploads (%d)", len(vm.History)), strings.Join(lines, "\n"), sidebarWidth, m.focus == paneHistory)
}

func (m Model) renderMain(vm session.ViewModel) string {
	width := m.mainWidth()
	focused := m.focus == paneData
	if vm.Current == nil {
		return renderBox("Welcome", renderWelcome(width-4), width, focused)
	}
	rec := *vm.Current
	summary := dataset.Sanitize(rec.Summary)
	inner := width - 4

	parts := []string{renderDatasetHeader(rec, m)}
	if w := renderWarnings(vm.Warnings, inner); w != "" {
		parts = append(parts, w)
	}
	if m.activeTab == tabTable {
		if !rec.HasRows() {
			parts = append(parts, "", mutedStyle.Render("Row detail is only available for datasets uploaded in this session."))
		} else {
			parts = append(parts, "", m.table.View())
		}
		return renderBox(tabNames[tabTable], strings.Join(parts, "\n"), width, focused)
	}

	parts = append(parts,
		renderCards(summary, inner),
		titleStyle.Render("Equipment Type Distribution"),
		renderTypeChart(summary, inner),
		"",
		titleStyle.Render("Parameter Ranges"),
		renderParamBars(summary, inner),
	)
	return renderBox(tabNames[tabSummary], strings.Join(parts, "\n"), width, focused)
}

// window returns the [start, end) slice of n items that keeps cursor visible.
func window(cursor, n, size int) (int, int) {
	if n <= size {
		return 0, n
	}
	start := cursor - size/2
	if start < 0 {
		start = 0
	}
	if start+size > n {
		start = n - size
	}
	return start, start + size
}
