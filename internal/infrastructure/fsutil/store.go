package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"kilometers.ai/libbundle/internal/core/ports"
)

// LocalFileStore implements ports.FileStore on the local filesystem
type LocalFileStore struct{}

// NewLocalFileStore creates a new local file store
func NewLocalFileStore() *LocalFileStore {
	return &LocalFileStore{}
}

// CopyFile copies src (following symlinks) to dst. The data is written to a temporary file
// in dst's directory and renamed, so dst is either absent or complete.
func (s *LocalFileStore) CopyFile(src, dst string, mode uint32) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("source is a directory: %s", src)
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, in); err != nil {
		cleanup()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	if err := os.Chmod(tmpName, os.FileMode(mode)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to set permissions on %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", dst, err)
	}
	return nil
}

// Exists reports whether path is present without following symlinks
func (s *LocalFileStore) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// EnsureDir creates dir and any missing parents
func (s *LocalFileStore) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

var _ ports.FileStore = (*LocalFileStore)(nil)
