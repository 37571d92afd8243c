package fixtures

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jask/equipviz/internal/dataset"
)

const (
	Username = "admin"
	Password = "password123"

	// historyLimit mirrors the backend's retention of the newest five datasets.
	historyLimit = 5
)

// Server is an in-process stand-in for the analysis backend. It never parses
// CSV: ingest answers with the record produced by OnIngest.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	datasets []dataset.DatasetRecord // newest first
	calls    map[string]int
	uploads  []Upload

	// OnIngest decides the ingest response. The default returns SampleRecord.
	OnIngest func(filename string, data []byte) (dataset.DatasetRecord, int, string)
	// HistoryStatus, when non-zero, makes /api/history/ fail with that status.
	HistoryStatus int
	// ReportStatus, when non-zero, makes report rendering fail with that status.
	ReportStatus int
	// Now stamps ingested datasets.
	Now func() time.Time
}

// Upload records one multipart upload received by the server.
type Upload struct {
	Filename string
	Data     []byte
}

// NewServer starts a fake backend and closes it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{calls: map[string]int{}, Now: time.Now}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Seed prepends records to the history, newest first.
func (s *Server) Seed(records ...dataset.DatasetRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasets = append(append([]dataset.DatasetRecord{}, records...), s.datasets...)
	s.trim()
}

// Calls reports how many requests hit the named operation: ingest, history or report.
func (s *Server) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// Uploads returns the uploads received so far.
func (s *Server) Uploads() []Upload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Upload(nil), s.uploads...)
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	user, pass, ok := r.BasicAuth()
	if !ok || user != Username || pass != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid username/password."})
		return
	}
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/api/datasets/":
		s.ingest(w, r)
	case r.Method == http.MethodGet && r.URL.Path == "/api/history/":
		s.history(w)
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/datasets/") && strings.HasSuffix(r.URL.Path, "/generate_report/"):
		id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/datasets/"), "/generate_report/")
		s.report(w, id)
	default:
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
	}
}

func (s *Server) ingest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls["ingest"]++
	s.mu.Unlock()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "No file provided"})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.uploads = append(s.uploads, Upload{Filename: header.Filename, Data: data})
	hook := s.OnIngest
	now := s.Now()
	s.mu.Unlock()

	rec := SampleRecord(header.Filename, now)
	status := http.StatusCreated
	if hook != nil {
		var msg string
		rec, status, msg = hook(header.Filename, data)
		if msg != "" {
			writeJSON(w, status, map[string]string{"error": msg})
			return
		}
	}
	if status >= 300 {
		w.WriteHeader(status)
		return
	}

	s.mu.Lock()
	s.datasets = append([]dataset.DatasetRecord{rec}, s.datasets...)
	s.trim()
	s.mu.Unlock()
	writeJSON(w, status, rec)
}

func (s *Server) history(w http.ResponseWriter) {
	s.mu.Lock()
	s.calls["history"]++
	status := s.HistoryStatus
	list := append([]dataset.DatasetRecord(nil), s.datasets...)
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if list == nil {
		list = []dataset.DatasetRecord{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) report(w http.ResponseWriter, id string) {
	s.mu.Lock()
	s.calls["report"]++
	status := s.ReportStatus
	var found *dataset.DatasetRecord
	for i := range s.datasets {
		if s.datasets[i].ID == id {
			found = &s.datasets[i]
			break
		}
	}
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if found == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="report_`+found.Name+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(ReportBytes(id))
}

// ReportBytes is the payload the fake backend returns for id.
func ReportBytes(id string) []byte {
	return []byte("%PDF-1.4\n% equipment report " + id + "\n%%EOF\n")
}

func (s *Server) trim() {
	if len(s.datasets) > historyLimit {
		s.datasets = s.datasets[:historyLimit]
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
