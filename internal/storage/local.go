package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local stores blobs on the local filesystem under a base directory.
type Local struct {
	baseDir string
}

func NewLocal(baseDir string) (*Local, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", baseDir, err)
	}
	return &Local{baseDir: baseDir}, nil
}

func (l *Local) Write(_ context.Context, path string, data []byte) error {
	fullPath := filepath.Join(l.baseDir, filepath.FromSlash(path))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func (l *Local) Read(_ context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(l.baseDir, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return data, nil
}

func (l *Local) Delete(_ context.Context, path string) error {
	err := os.Remove(filepath.Join(l.baseDir, filepath.FromSlash(path)))
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return err
}
