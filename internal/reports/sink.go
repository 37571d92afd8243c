// Package reports saves rendered PDF reports somewhere the operator can open them.
package reports

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Driver identifies a Sink implementation.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverMemory     Driver = "memory"
	DriverS3         Driver = "s3"
)

// ContentType is attached to stored reports where the backend supports it.
const ContentType = "application/pdf"

// Sink receives report bytes and returns a human-readable location.
// Saving under an existing name replaces the previous report.
type Sink interface {
	Save(ctx context.Context, filename string, data []byte) (string, error)
	Driver() Driver
}

// cleanName rejects names that would escape the sink's root.
func cleanName(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" {
		return "", fmt.Errorf("empty report name")
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", fmt.Errorf("invalid report name %q", filename)
	}
	return path.Clean(name), nil
}
