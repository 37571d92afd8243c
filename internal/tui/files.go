package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// csvFile is one candidate upload in the upload directory.
type csvFile struct {
	name    string
	path    string
	size    int64
	modTime time.Time
}

type filesLoadedMsg struct {
	dir   string
	files []csvFile
	err   error
}

// loadFilesCmd scans dir for CSV files, newest first.
func loadFilesCmd(dir string) tea.Cmd {
	return func() tea.Msg {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return filesLoadedMsg{dir: dir, err: fmt.Errorf("read dir: %w", err)}
		}
		var files []csvFile
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			if !strings.HasSuffix(strings.ToLower(name), ".csv") {
				continue
			}
			f := csvFile{name: name, path: filepath.Join(dir, name)}
			if info, err := entry.Info(); err == nil {
				f.size = info.Size()
				f.modTime = info.ModTime()
			}
			files = append(files, f)
		}
		sort.SliceStable(files, func(i, j int) bool {
			if !files[i].modTime.Equal(files[j].modTime) {
				return files[i].modTime.After(files[j].modTime)
			}
			return files[i].name < files[j].name
		})
		return filesLoadedMsg{dir: dir, files: files}
	}
}

func humanSize(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
