package session

import (
	"github.com/jask/equipviz/internal/dataset"
	"github.com/jask/equipviz/internal/notify"
)

// ViewModel is a read-only snapshot for rendering. Mutating it has no effect
// on the Session.
type ViewModel struct {
	Current         *dataset.DatasetRecord
	History         []dataset.HistoryEntry
	Busy            bool
	Notification    *notify.Notification
	ReportsInFlight int
	Warnings        []dataset.Issue
}

// View projects the session state.
func (s Session) View() ViewModel {
	vm := ViewModel{
		History:         s.history.Entries(),
		Busy:            s.busy,
		ReportsInFlight: s.reports,
		Warnings:        append([]dataset.Issue(nil), s.warnings...),
	}
	if s.current != nil {
		rec := *s.current
		if s.current.Rows != nil {
			rec.Rows = make([]dataset.EquipmentRow, len(s.current.Rows))
			copy(rec.Rows, s.current.Rows)
		}
		rec.Summary.TypeCounts = cloneCounts(s.current.Summary.TypeCounts)
		vm.Current = &rec
	}
	if n, ok := s.notice.Current(); ok {
		vm.Notification = &n
	}
	return vm
}

// Busy reports whether an upload is in flight.
func (s Session) Busy() bool { return s.busy }

func cloneCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
