package sensor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// File reads the distance from a file on every call.
type File struct {
	path string
}

// NewFile creates a reader for the file at path.
func NewFile(path string) *File {
	return &File{path: filepath.Clean(path)}
}

// ReadDistance reads and parses the file.
func (f *File) ReadDistance(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	contents, err := os.ReadFile(f.path)
	if err != nil {
		return 0, fmt.Errorf("read distance file: %w", err)
	}

	return ParseReading(string(contents))
}

// Close is a no-op.
func (*File) Close() error {
	return nil
}
