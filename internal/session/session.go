// Package session owns the client-side view state: the dataset on screen, the
// history list, the upload busy flag and the notification banner.
//
// Session is a value mutated only from the bubbletea Update loop. Network work
// runs inside tea.Cmd closures that capture what they need and report back
// with a message, so no locking is required.
package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jask/equipviz/internal/dataset"
	"github.com/jask/equipviz/internal/gateway"
	"github.com/jask/equipviz/internal/history"
	"github.com/jask/equipviz/internal/logger"
	"github.com/jask/equipviz/internal/notify"
	"github.com/jask/equipviz/internal/reports"
)

const (
	msgUploadOK      = "File uploaded and analyzed successfully!"
	msgUploadFailed  = "Upload failed: "
	msgLoaded        = "Loaded dataset: "
	msgReportOK      = "PDF report saved to "
	msgReportFailed  = "Failed to generate PDF report: "
	msgHistoryFailed = "Failed to load history. Make sure backend is running."
)

// Deps are the collaborators a Session drives.
type Deps struct {
	Gateway   gateway.Gateway
	Sink      reports.Sink
	Logger    *logger.Logger
	NotifyTTL time.Duration
	// Context is passed to every backend call. Defaults to Background.
	Context context.Context
	// ReadFile loads the CSV to upload. Defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)
}

// Session is the single owner of view state.
type Session struct {
	gw       gateway.Gateway
	sink     reports.Sink
	log      *logger.Logger
	ctx      context.Context
	readFile func(string) ([]byte, error)

	current  *dataset.DatasetRecord
	history  history.Cache
	busy     bool
	notice   notify.Channel
	reports  int
	warnings []dataset.Issue
}

// New builds an idle Session with no dataset selected.
func New(deps Deps) Session {
	log := deps.Logger
	if log == nil {
		log = logger.Nop()
	}
	ctx := deps.Context
	if ctx == nil {
		ctx = context.Background()
	}
	read := deps.ReadFile
	if read == nil {
		read = os.ReadFile
	}
	sink := deps.Sink
	if sink == nil {
		sink = reports.NewMemory()
	}
	return Session{
		gw:       deps.Gateway,
		sink:     sink,
		log:      log.With("component", "session"),
		ctx:      ctx,
		readFile: read,
		notice:   notify.New(deps.NotifyTTL),
	}
}

// Init loads the history list once at startup.
func (s Session) Init() tea.Cmd {
	return s.refreshCmd(RefreshStartup)
}

// Upload sends the CSV at path for analysis. It is rejected while another
// upload is in flight: no backend call, no state change, nil command.
func (s Session) Upload(path string) (Session, tea.Cmd) {
	if s.busy {
		s.log.Debug("upload rejected while busy", "path", path)
		return s, nil
	}
	s.busy = true
	s.notice.Clear()
	s.log.Info("upload started", "path", path)

	gw, ctx, read := s.gw, s.ctx, s.readFile
	return s, func() tea.Msg {
		data, err := read(path)
		if err != nil {
			return UploadDoneMsg{Path: path, Err: fmt.Errorf("read %s: %w", filepath.Base(path), err)}
		}
		rec, err := gw.Ingest(ctx, filepath.Base(path), data)
		return UploadDoneMsg{Path: path, Record: rec, Err: err}
	}
}

// Select shows a history entry. The cached summary is used as is; rows are
// not re-fetched, but rows already held for the same dataset are kept.
// Unknown ids are ignored.
func (s Session) Select(id string) (Session, tea.Cmd) {
	entry, ok := s.history.Find(id)
	if !ok {
		s.log.Debug("select ignored: unknown dataset", "dataset_id", id)
		return s, nil
	}
	rec := entry.Record()
	if s.current != nil && s.current.ID == id && s.current.HasRows() {
		rec.Rows = s.current.Rows
	}
	s.current = &rec
	s.warnings = s.validate(rec)
	return s, s.notice.Notify(msgLoaded+rec.Name, notify.Success)
}

// GenerateReport renders the report for id and saves it to the sink. It runs
// regardless of an in-flight upload or other reports.
func (s Session) GenerateReport(id string) (Session, tea.Cmd) {
	s.reports++
	gw, sink, ctx := s.gw, s.sink, s.ctx
	filename := dataset.ReportFilename(id)
	s.log.Info("report requested", "dataset_id", id, "filename", filename)
	return s, func() tea.Msg {
		data, err := gw.RenderReport(ctx, id)
		if err != nil {
			return ReportDoneMsg{ID: id, Filename: filename, Err: err}
		}
		loc, err := sink.Save(ctx, filename, data)
		if err != nil {
			return ReportDoneMsg{ID: id, Filename: filename, Err: fmt.Errorf("save report: %w", err)}
		}
		return ReportDoneMsg{ID: id, Filename: filename, Location: loc}
	}
}

// Refresh reloads the history list. Refreshes are not coalesced; whichever
// response arrives last wins.
func (s Session) Refresh() (Session, tea.Cmd) {
	return s, s.refreshCmd(RefreshManual)
}

func (s Session) refreshCmd(reason RefreshReason) tea.Cmd {
	gw, ctx := s.gw, s.ctx
	return func() tea.Msg {
		entries, err := gw.ListHistory(ctx)
		return HistoryLoadedMsg{Reason: reason, Entries: entries, Err: err}
	}
}

// Update applies a completion message. The bool reports whether msg belonged
// to the session.
func (s Session) Update(msg tea.Msg) (Session, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case UploadDoneMsg:
		next, cmd := s.handleUploadDone(msg)
		return next, cmd, true
	case HistoryLoadedMsg:
		next, cmd := s.handleHistoryLoaded(msg)
		return next, cmd, true
	case ReportDoneMsg:
		next, cmd := s.handleReportDone(msg)
		return next, cmd, true
	case notify.ExpiredMsg:
		s.notice.Expire(msg)
		return s, nil, true
	}
	return s, nil, false
}

func (s Session) handleUploadDone(msg UploadDoneMsg) (Session, tea.Cmd) {
	s.busy = false
	if msg.Err != nil {
		s.log.Warn("upload failed", "path", msg.Path, "error", msg.Err)
		return s, s.notice.Notify(msgUploadFailed+gateway.Message(msg.Err), notify.Error)
	}
	rec := msg.Record
	s.current = &rec
	s.warnings = s.validate(rec)
	s.log.Info("upload complete", "dataset_id", rec.ID, "name", rec.Name, "rows", len(rec.Rows))

	// state is already updated; the refresh result lands in a later Update
	notice := s.notice.Notify(msgUploadOK, notify.Success)
	return s, tea.Batch(notice, s.refreshCmd(RefreshAfterUpload))
}

func (s Session) handleHistoryLoaded(msg HistoryLoadedMsg) (Session, tea.Cmd) {
	if msg.Err != nil {
		s.log.Warn("history refresh failed", "reason", msg.Reason.String(), "error", msg.Err)
		if msg.Reason == RefreshAfterUpload {
			// the upload already succeeded; keep its banner
			return s, nil
		}
		return s, s.notice.Notify(msgHistoryFailed, notify.Error)
	}
	// entries already cached or on screen were checked when they arrived
	for _, e := range msg.Entries {
		if _, seen := s.history.Find(e.ID); seen || (s.current != nil && s.current.ID == e.ID) {
			continue
		}
		s.validate(e.Record())
	}
	s.history.Replace(msg.Entries)
	s.log.Debug("history replaced", "reason", msg.Reason.String(), "entries", len(msg.Entries))
	return s, nil
}

func (s Session) handleReportDone(msg ReportDoneMsg) (Session, tea.Cmd) {
	if s.reports > 0 {
		s.reports--
	}
	if msg.Err != nil {
		s.log.Warn("report failed", "dataset_id", msg.ID, "error", msg.Err)
		return s, s.notice.Notify(msgReportFailed+reportReason(msg.Err), notify.Error)
	}
	s.log.Info("report saved", "dataset_id", msg.ID, "location", msg.Location)
	return s, s.notice.Notify(msgReportOK+msg.Location, notify.Success)
}

func reportReason(err error) string {
	var nf *gateway.NotFoundError
	if errors.As(err, &nf) {
		return "dataset not found"
	}
	return gateway.Message(err)
}

// validate logs integrity issues and returns them. The record is kept either way.
func (s Session) validate(rec dataset.DatasetRecord) []dataset.Issue {
	issues := dataset.ValidateRecord(rec)
	for _, is := range issues {
		s.log.Warn("data integrity warning", "dataset_id", rec.ID, "field", is.Field, "issue", is.Message)
	}
	return issues
}

// Filter returns history entries matching query, for the search box.
func (s Session) Filter(query string) []dataset.HistoryEntry {
	return s.history.Filter(query)
}
