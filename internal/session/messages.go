package session

import (
	"github.com/jask/equipviz/internal/dataset"
)

// UploadDoneMsg completes an Upload.
type UploadDoneMsg struct {
	Path   string
	Record dataset.DatasetRecord
	Err    error
}

// RefreshReason records what triggered a history load.
type RefreshReason int

const (
	RefreshStartup RefreshReason = iota
	RefreshManual
	RefreshAfterUpload
)

func (r RefreshReason) String() string {
	switch r {
	case RefreshStartup:
		return "startup"
	case RefreshAfterUpload:
		return "after_upload"
	default:
		return "manual"
	}
}

// HistoryLoadedMsg completes a history refresh.
type HistoryLoadedMsg struct {
	Reason  RefreshReason
	Entries []dataset.HistoryEntry
	Err     error
}

// ReportDoneMsg completes a GenerateReport.
type ReportDoneMsg struct {
	ID       string
	Filename string
	Location string
	Err      error
}
