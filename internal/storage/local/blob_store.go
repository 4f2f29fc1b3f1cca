// Package local implements a filesystem BlobStore for archived reports.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the local filesystem blob store.
type Config struct {
	// BaseDir is the root directory where archived objects are written.
	BaseDir string
}

// BlobStore writes objects below a base directory.
type BlobStore struct {
	baseDir string
}

// New creates the base directory if needed and checks that it is writable.
func New(cfg Config) (*BlobStore, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("archive.base_dir is required")
	}
	baseDir := filepath.Clean(cfg.BaseDir)

	info, err := os.Stat(baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory %s is not a directory", baseDir)
	}

	probe, err := os.CreateTemp(baseDir, ".writable-*")
	if err != nil {
		return nil, fmt.Errorf("base directory is not writable: %w", err)
	}
	_ = probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return nil, fmt.Errorf("remove probe file: %w", err)
	}

	return &BlobStore{baseDir: baseDir}, nil
}

// PutObject writes the reader to baseDir/path and returns a file:// URI. The object
// is staged in a temp file and renamed so readers never observe a partial write.
func (s *BlobStore) PutObject(ctx context.Context, path string, _ string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	fullPath := filepath.Join(s.baseDir, filepath.FromSlash(path))
	if !strings.HasPrefix(fullPath, s.baseDir+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes base directory", path)
	}
	dir := filepath.Dir(fullPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create parent directories: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), fullPath); err != nil {
		return "", fmt.Errorf("rename %s: %w", path, err)
	}
	return "file://" + fullPath, nil
}
