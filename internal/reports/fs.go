package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Filesystem writes reports into a directory.
type Filesystem struct {
	dir string
}

// NewFilesystem returns a sink rooted at dir. The directory is created on the
// first save.
func NewFilesystem(dir string) *Filesystem {
	if dir == "" {
		dir = "./reports"
	}
	return &Filesystem{dir: dir}
}

func (f *Filesystem) Driver() Driver { return DriverFilesystem }

// Dir returns the target directory.
func (f *Filesystem) Dir() string { return f.dir }

// Save writes data through a temp file and renames it into place, so readers
// never observe a partial PDF.
func (f *Filesystem) Save(ctx context.Context, filename string, data []byte) (string, error) {
	name, err := cleanName(filename)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("mkdir reports dir: %w", err)
	}
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return "", err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	dest := filepath.Join(f.dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", err
	}
	if abs, err := filepath.Abs(dest); err == nil {
		dest = abs
	}
	return dest, nil
}
