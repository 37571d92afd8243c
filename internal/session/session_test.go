package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/jask/equipviz/internal/dataset"
	"github.com/jask/equipviz/internal/fixtures"
	"github.com/jask/equipviz/internal/gateway"
	"github.com/jask/equipviz/internal/logger"
	"github.com/jask/equipviz/internal/notify"
	"github.com/jask/equipviz/internal/reports"
)

const testTTL = 5 * time.Millisecond

type fakeGateway struct {
	mu sync.Mutex

	ingestCalls  int
	historyCalls int
	reportCalls  []string

	ingestRec    dataset.DatasetRecord
	ingestErr    error
	history      []dataset.HistoryEntry
	historyErr   error
	reportErr    error
	addOnIngest  bool
	ingestedName string
}

func (g *fakeGateway) Ingest(_ context.Context, filename string, _ []byte) (dataset.DatasetRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.ingestCalls++
	g.ingestedName = filename
	if g.ingestErr != nil {
		return dataset.DatasetRecord{}, g.ingestErr
	}
	if g.addOnIngest {
		g.history = append([]dataset.HistoryEntry{g.ingestRec.Entry()}, g.history...)
	}
	return g.ingestRec, nil
}

func (g *fakeGateway) ListHistory(context.Context) ([]dataset.HistoryEntry, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.historyCalls++
	if g.historyErr != nil {
		return nil, g.historyErr
	}
	return append([]dataset.HistoryEntry(nil), g.history...), nil
}

func (g *fakeGateway) RenderReport(_ context.Context, id string) ([]byte, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.reportCalls = append(g.reportCalls, id)
	if g.reportErr != nil {
		return nil, g.reportErr
	}
	return fixtures.ReportBytes(id), nil
}

func (g *fakeGateway) calls() (ingest, history, report int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ingestCalls, g.historyCalls, len(g.reportCalls)
}

func newTestSession(gw *fakeGateway, sink reports.Sink) Session {
	return New(Deps{
		Gateway:   gw,
		Sink:      sink,
		NotifyTTL: testTTL,
		ReadFile:  func(string) ([]byte, error) { return []byte(fixtures.SampleCSV), nil },
	})
}

// drain runs cmd and feeds every resulting message back into the session.
// Expiry messages are collected instead of applied so banners stay visible.
func drain(t *testing.T, s Session, cmd tea.Cmd) (Session, []notify.ExpiredMsg) {
	t.Helper()
	var expired []notify.ExpiredMsg
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		if steps > 64 {
			t.Fatal("command chain exceeded max depth")
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case nil:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case notify.ExpiredMsg:
			expired = append(expired, msg)
		default:
			var more tea.Cmd
			var ok bool
			s, more, ok = s.Update(msg)
			require.True(t, ok, "unhandled %T", msg)
			queue = append(queue, more)
		}
	}
	return s, expired
}

func banner(t *testing.T, s Session) notify.Notification {
	t.Helper()
	vm := s.View()
	require.NotNil(t, vm.Notification)
	return *vm.Notification
}

func seeded(t *testing.T, gw *fakeGateway, s Session) Session {
	t.Helper()
	s, _ = drain(t, s, s.Init())
	require.Len(t, s.View().History, len(gw.history))
	return s
}

func TestInitLoadsHistory(t *testing.T) {
	t.Parallel()
	a := fixtures.SampleRecord("a.csv", time.Now())
	b := fixtures.SampleRecord("b.csv", time.Now().Add(-time.Hour))
	gw := &fakeGateway{history: []dataset.HistoryEntry{a.Entry(), b.Entry()}}
	s := seeded(t, gw, newTestSession(gw, nil))

	vm := s.View()
	require.Equal(t, a.ID, vm.History[0].ID)
	require.Equal(t, b.ID, vm.History[1].ID)
	require.Nil(t, vm.Current)
	require.False(t, vm.Busy)
	require.Nil(t, vm.Notification)
}

func TestInitFailureNotifies(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{historyErr: &gateway.TransportError{Op: "list history", Err: errors.New("connection refused")}}
	s := newTestSession(gw, nil)
	s, _ = drain(t, s, s.Init())

	n := banner(t, s)
	require.Equal(t, "Failed to load history. Make sure backend is running.", n.Text)
	require.Equal(t, notify.Error, n.Kind)
	require.Empty(t, s.View().History)
}

func TestUploadScenario(t *testing.T) {
	t.Parallel()
	rec := fixtures.SampleRecord("sample_equipment_data.csv", time.Now())
	gw := &fakeGateway{ingestRec: rec, addOnIngest: true}
	s := seeded(t, gw, newTestSession(gw, nil))
	require.Empty(t, s.View().History)

	s, cmd := s.Upload("/data/sample_equipment_data.csv")
	require.True(t, s.View().Busy)
	require.NotNil(t, cmd)

	s, _ = drain(t, s, cmd)
	vm := s.View()
	require.False(t, vm.Busy)
	require.NotNil(t, vm.Current)
	require.Equal(t, rec.ID, vm.Current.ID)
	require.Equal(t, 5, vm.Current.Summary.TotalCount)
	require.Equal(t, map[string]int{"Reactor": 2, "Mixer": 1, "Separator": 1, "Pump": 1}, vm.Current.Summary.TypeCounts)
	require.Len(t, vm.Current.Rows, 5)
	require.Empty(t, vm.Warnings)

	require.Len(t, vm.History, 1)
	require.Equal(t, rec.ID, vm.History[0].ID)
	require.Equal(t, "sample_equipment_data.csv", gw.ingestedName)

	n := banner(t, s)
	require.Equal(t, "File uploaded and analyzed successfully!", n.Text)
	require.Equal(t, notify.Success, n.Kind)

	ingest, history, _ := gw.calls()
	require.Equal(t, 1, ingest)
	require.Equal(t, 2, history)
}

func TestUploadStateUpdatedBeforeRefresh(t *testing.T) {
	t.Parallel()
	rec := fixtures.SampleRecord("x.csv", time.Now())
	gw := &fakeGateway{ingestRec: rec}
	s := newTestSession(gw, nil)

	s, cmd := s.Upload("x.csv")
	done := cmd()
	s, follow, ok := s.Update(done)
	require.True(t, ok)
	// current is set while the refresh is still only a pending command
	require.Equal(t, rec.ID, s.View().Current.ID)
	_, history, _ := gw.calls()
	require.Zero(t, history)
	require.NotNil(t, follow)
}

func TestUploadWhileBusyIsRejected(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{ingestRec: fixtures.SampleRecord("a.csv", time.Now())}
	s := newTestSession(gw, nil)

	s, first := s.Upload("a.csv")
	require.True(t, s.Busy())
	before := s.View()

	s2, second := s.Upload("b.csv")
	require.Nil(t, second)
	require.Equal(t, before, s2.View())

	s2, _ = drain(t, s2, first)
	require.False(t, s2.Busy())
	ingest, _, _ := gw.calls()
	require.Equal(t, 1, ingest)
}

func TestFailedUploadLeavesStateUntouched(t *testing.T) {
	t.Parallel()
	prev := fixtures.SampleRecord("prev.csv", time.Now())
	gw := &fakeGateway{
		ingestRec: prev,
		history:   []dataset.HistoryEntry{prev.Entry()},
	}
	s := seeded(t, gw, newTestSession(gw, nil))
	s, _ = drain(t, s, mustCmd(s.Upload("prev.csv")))
	before := s.View()

	gw.mu.Lock()
	gw.ingestErr = &gateway.ValidationError{Op: "ingest dataset", Status: 400, Message: "Missing required columns: Pressure"}
	gw.mu.Unlock()

	s, cmd := s.Upload("bad.csv")
	require.True(t, s.Busy())
	s, _ = drain(t, s, cmd)

	after := s.View()
	require.False(t, after.Busy)
	require.Equal(t, before.Current, after.Current)
	require.Equal(t, before.History, after.History)
	n := banner(t, s)
	require.Equal(t, "Upload failed: Missing required columns: Pressure", n.Text)
	require.Equal(t, notify.Error, n.Kind)
}

func TestUploadTransportFailureMessage(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{ingestErr: &gateway.TransportError{Op: "ingest dataset", Status: 500, Err: errors.New("request failed with status code 500")}}
	s := newTestSession(gw, nil)
	s, _ = drain(t, s, mustCmd(s.Upload("x.csv")))
	require.Equal(t, "Upload failed: request failed with status code 500", banner(t, s).Text)
	require.Nil(t, s.View().Current)
}

func TestUploadReadFailure(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	s := New(Deps{
		Gateway:   gw,
		NotifyTTL: testTTL,
		ReadFile:  func(string) ([]byte, error) { return nil, errors.New("permission denied") },
	})
	s, _ = drain(t, s, mustCmd(s.Upload("/root/x.csv")))
	require.Equal(t, "Upload failed: read x.csv: permission denied", banner(t, s).Text)
	ingest, _, _ := gw.calls()
	require.Zero(t, ingest)
	require.False(t, s.Busy())
}

func TestUploadClearsNotificationImmediately(t *testing.T) {
	t.Parallel()
	a := fixtures.SampleRecord("a.csv", time.Now())
	gw := &fakeGateway{history: []dataset.HistoryEntry{a.Entry()}, ingestRec: a}
	s := seeded(t, gw, newTestSession(gw, nil))
	s, _ = s.Select(a.ID)
	require.NotNil(t, s.View().Notification)

	s, _ = s.Upload("a.csv")
	require.Nil(t, s.View().Notification)
}

func TestRefreshFailureAfterUploadDoesNotFailUpload(t *testing.T) {
	t.Parallel()
	rec := fixtures.SampleRecord("a.csv", time.Now())
	old := fixtures.SampleRecord("old.csv", time.Now().Add(-time.Hour))
	gw := &fakeGateway{ingestRec: rec, history: []dataset.HistoryEntry{old.Entry()}}
	s := seeded(t, gw, newTestSession(gw, nil))

	gw.mu.Lock()
	gw.historyErr = errors.New("boom")
	gw.mu.Unlock()

	s, _ = drain(t, s, mustCmd(s.Upload("a.csv")))
	vm := s.View()
	require.Equal(t, rec.ID, vm.Current.ID)
	require.False(t, vm.Busy)
	require.Len(t, vm.History, 1)
	require.Equal(t, old.ID, vm.History[0].ID)
	require.NotNil(t, vm.Notification)
	require.Equal(t, notify.Success, vm.Notification.Kind)
	require.Equal(t, msgUploadOK, vm.Notification.Text)
}

func TestSelectIsLocalAndIdempotent(t *testing.T) {
	t.Parallel()
	a := fixtures.SampleRecord("a.csv", time.Now())
	b := fixtures.SampleRecord("b.csv", time.Now().Add(-time.Hour))
	gw := &fakeGateway{history: []dataset.HistoryEntry{a.Entry(), b.Entry()}}
	s := seeded(t, gw, newTestSession(gw, nil))
	_, historyBefore, _ := gw.calls()

	s, cmd1 := s.Select(b.ID)
	require.NotNil(t, cmd1)
	first := s.View()
	n1 := banner(t, s)

	s, cmd2 := s.Select(b.ID)
	require.NotNil(t, cmd2)
	second := s.View()
	n2 := banner(t, s)

	require.Equal(t, first.Current, second.Current)
	require.Equal(t, b.ID, second.Current.ID)
	require.False(t, second.Current.HasRows())
	require.Equal(t, "Loaded dataset: b.csv", n1.Text)
	require.Equal(t, n1.Text, n2.Text)
	require.NotEqual(t, n1.Gen, n2.Gen)

	ingest, history, report := gw.calls()
	require.Zero(t, ingest)
	require.Equal(t, historyBefore, history)
	require.Zero(t, report)
}

func TestSelectJustUploadedKeepsRows(t *testing.T) {
	t.Parallel()
	rec := fixtures.SampleRecord("a.csv", time.Now())
	other := fixtures.SampleRecord("b.csv", time.Now().Add(-time.Hour))
	gw := &fakeGateway{ingestRec: rec, addOnIngest: true, history: []dataset.HistoryEntry{other.Entry()}}
	s := seeded(t, gw, newTestSession(gw, nil))

	s, cmd := s.Upload("a.csv")
	s, _ = drain(t, s, cmd)
	require.Len(t, s.View().History, 2)

	s, _ = s.Select(rec.ID)
	vm := s.View()
	require.Equal(t, rec.ID, vm.Current.ID)
	require.Len(t, vm.Current.Rows, len(rec.Rows))
	require.Equal(t, rec.Rows[0].Name, vm.Current.Rows[0].Name)

	s, _ = s.Select(other.ID)
	require.False(t, s.View().Current.HasRows())
	s, _ = s.Select(rec.ID)
	require.False(t, s.View().Current.HasRows())
}

func TestSelectUnknownIsNoop(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{}
	s := newTestSession(gw, nil)
	before := s.View()
	s, cmd := s.Select("nope")
	require.Nil(t, cmd)
	require.Equal(t, before, s.View())
}

func TestNotificationExpiry(t *testing.T) {
	t.Parallel()
	a := fixtures.SampleRecord("a.csv", time.Now())
	gw := &fakeGateway{history: []dataset.HistoryEntry{a.Entry()}}
	s := seeded(t, gw, newTestSession(gw, nil))

	s, cmd := s.Select(a.ID)
	require.NotNil(t, s.View().Notification)
	_, expired := drain(t, s, cmd)
	require.Len(t, expired, 1)

	s2, _, ok := s.Update(expired[0])
	require.True(t, ok)
	require.Nil(t, s2.View().Notification)
}

func TestIntervenedNotificationSupersedesTimer(t *testing.T) {
	t.Parallel()
	a := fixtures.SampleRecord("a.csv", time.Now())
	gw := &fakeGateway{history: []dataset.HistoryEntry{a.Entry()}, reportErr: &gateway.NotFoundError{Op: "render report", ID: a.ID}}
	s := seeded(t, gw, newTestSession(gw, nil))

	s, selectCmd := s.Select(a.ID)
	s, reportCmd := s.GenerateReport(a.ID)
	s, _ = drain(t, s, reportCmd)
	require.Equal(t, "Failed to generate PDF report: dataset not found", banner(t, s).Text)

	// the select timer fires after the newer banner replaced it
	_, expired := drain(t, s, selectCmd)
	require.Len(t, expired, 1)
	s, _, _ = s.Update(expired[0])
	require.Equal(t, "Failed to generate PDF report: dataset not found", banner(t, s).Text)
}

func TestGenerateReportSavesToSink(t *testing.T) {
	t.Parallel()
	id := "abc123de-1111-2222-3333-444455556666"
	gw := &fakeGateway{}
	sink := reports.NewMemory()
	s := newTestSession(gw, sink)

	s, cmd := s.GenerateReport(id)
	require.Equal(t, 1, s.View().ReportsInFlight)
	s, _ = drain(t, s, cmd)

	saves := sink.Saves()
	require.Len(t, saves, 1)
	require.Equal(t, "equipment_report_abc123de.pdf", saves[0].Filename)
	require.Equal(t, fixtures.ReportBytes(id), saves[0].Data)
	require.Equal(t, "PDF report saved to memory://equipment_report_abc123de.pdf", banner(t, s).Text)
	require.Zero(t, s.View().ReportsInFlight)
}

func TestGenerateReportFailureSkipsSink(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{reportErr: &gateway.TransportError{Op: "render report", Err: errors.New("connection refused")}}
	sink := reports.NewMemory()
	s := newTestSession(gw, sink)

	s, _ = drain(t, s, mustCmd(s.GenerateReport("abc123de-x")))
	require.Empty(t, sink.Saves())
	n := banner(t, s)
	require.Equal(t, "Failed to generate PDF report: connection refused", n.Text)
	require.Equal(t, notify.Error, n.Kind)
}

func TestGenerateReportSinkFailure(t *testing.T) {
	t.Parallel()
	sink := reports.NewMemory()
	sink.Err = errors.New("disk full")
	s := newTestSession(&fakeGateway{}, sink)
	s, _ = drain(t, s, mustCmd(s.GenerateReport("abc123de-x")))
	require.Equal(t, "Failed to generate PDF report: save report: disk full", banner(t, s).Text)
}

func TestReportsIndependentOfBusy(t *testing.T) {
	t.Parallel()
	gw := &fakeGateway{ingestRec: fixtures.SampleRecord("a.csv", time.Now())}
	sink := reports.NewMemory()
	s := newTestSession(gw, sink)

	s, upload := s.Upload("a.csv")
	s, r1 := s.GenerateReport("11111111-a")
	s, r2 := s.GenerateReport("22222222-b")
	vm := s.View()
	require.True(t, vm.Busy)
	require.Equal(t, 2, vm.ReportsInFlight)

	// completions arrive out of order
	s, _ = drain(t, s, r2)
	require.True(t, s.Busy())
	s, _ = drain(t, s, r1)
	s, _ = drain(t, s, upload)
	require.False(t, s.Busy())
	require.Zero(t, s.View().ReportsInFlight)

	var names []string
	for _, sv := range sink.Saves() {
		names = append(names, sv.Filename)
	}
	require.Equal(t, []string{"equipment_report_22222222.pdf", "equipment_report_11111111.pdf"}, names)
}

func TestConcurrentRefreshLastWriteWins(t *testing.T) {
	t.Parallel()
	a := fixtures.SampleRecord("a.csv", time.Now())
	b := fixtures.SampleRecord("b.csv", time.Now())
	s := newTestSession(&fakeGateway{}, nil)

	s, _, _ = s.Update(HistoryLoadedMsg{Reason: RefreshManual, Entries: []dataset.HistoryEntry{a.Entry(), b.Entry()}})
	s, _, _ = s.Update(HistoryLoadedMsg{Reason: RefreshManual, Entries: []dataset.HistoryEntry{b.Entry()}})
	vm := s.View()
	require.Len(t, vm.History, 1)
	require.Equal(t, b.ID, vm.History[0].ID)

	s, _, _ = s.Update(HistoryLoadedMsg{Reason: RefreshManual, Err: errors.New("down")})
	require.Len(t, s.View().History, 1)
}

func TestIntegrityWarningsAreAdvisory(t *testing.T) {
	t.Parallel()
	rec := fixtures.SampleRecord("odd.csv", time.Now())
	rec.Summary.TypeCounts["Reactor"] = 7
	rec.Summary.Averages.Pressure = 99
	gw := &fakeGateway{ingestRec: rec}
	s := newTestSession(gw, nil)

	s, _ = drain(t, s, mustCmd(s.Upload("odd.csv")))
	vm := s.View()
	require.NotNil(t, vm.Current)
	require.Equal(t, rec.ID, vm.Current.ID)
	fields := map[string]bool{}
	for _, is := range vm.Warnings {
		fields[is.Field] = true
	}
	require.True(t, fields["equipment_types"], fmt.Sprint(vm.Warnings))
	require.True(t, fields["pressure"], fmt.Sprint(vm.Warnings))
	require.Equal(t, "File uploaded and analyzed successfully!", banner(t, s).Text)
}

func TestIntegrityWarningsLoggedOncePerDataset(t *testing.T) {
	t.Parallel()
	odd := fixtures.SampleRecord("odd.csv", time.Now())
	odd.Summary.TypeCounts["Reactor"] = 7
	gw := &fakeGateway{history: []dataset.HistoryEntry{odd.Entry()}}
	core, logs := observer.New(zapcore.DebugLevel)
	s := New(Deps{
		Gateway:   gw,
		Logger:    &logger.Logger{SugaredLogger: zap.New(core).Sugar()},
		NotifyTTL: testTTL,
	})

	s, _ = drain(t, s, s.Init())
	warned := logs.FilterMessage("data integrity warning").Len()
	require.Positive(t, warned)

	s, cmd := s.Refresh()
	s, _ = drain(t, s, cmd)
	s, cmd = s.Refresh()
	_, _ = drain(t, s, cmd)
	require.Equal(t, warned, logs.FilterMessage("data integrity warning").Len())
	_, history, _ := gw.calls()
	require.Equal(t, 3, history)
}

func TestViewIsACopy(t *testing.T) {
	t.Parallel()
	rec := fixtures.SampleRecord("a.csv", time.Now())
	gw := &fakeGateway{ingestRec: rec}
	s := newTestSession(gw, nil)
	s, _ = drain(t, s, mustCmd(s.Upload("a.csv")))

	vm := s.View()
	vm.Current.Rows[0].Name = "changed"
	vm.Current.Summary.TypeCounts["Reactor"] = 99
	again := s.View()
	require.Equal(t, "Reactor-001", again.Current.Rows[0].Name)
	require.Equal(t, 2, again.Current.Summary.TypeCounts["Reactor"])
}

func TestUnrelatedMessagesAreNotHandled(t *testing.T) {
	t.Parallel()
	s := newTestSession(&fakeGateway{}, nil)
	_, cmd, ok := s.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	require.False(t, ok)
	require.Nil(t, cmd)
}

func mustCmd(_ Session, cmd tea.Cmd) tea.Cmd { return cmd }
