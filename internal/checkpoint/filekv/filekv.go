// Package filekv stores a single value in a plain text file.
package filekv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileKV keeps one value in one file. Keys are ignored: the file is the key.
type FileKV struct {
	path string
}

// New creates a FileKV backed by path. The parent directory is created if needed.
func New(path string) (*FileKV, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid checkpoint path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileKV{path: absPath}, nil
}

// Path returns the absolute file path.
func (f *FileKV) Path() string {
	return f.path
}

// Get reads the file. A missing file means no value.
func (f *FileKV) Get(_ context.Context, _ string) (string, bool, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return strings.TrimSpace(string(data)), true, nil
}

// Set replaces the file contents via write-to-temp and rename, so readers
// never observe a partially written value.
func (f *FileKV) Set(_ context.Context, _ string, value string) error {
	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op after a successful rename

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		return fmt.Errorf("replace checkpoint file: %w", err)
	}
	return nil
}
