// Package local implements a filesystem-backed crawl artifact store. Each
// bucket maps to a directory under the base path; useful when running the
// worker against a local stack without object storage.
package local

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config captures the parameters for the filesystem store.
type Config struct {
	// BaseDir is the root directory bucket directories are created under.
	BaseDir string `mapstructure:"base_dir"`
}

// Store writes crawl artifacts to directories on the local filesystem.
type Store struct {
	baseDir string
}

// New validates the base directory and returns a Store.
func New(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.BaseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}

	info, err := os.Stat(cfg.BaseDir)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(cfg.BaseDir, 0o750); mkErr != nil {
				return nil, fmt.Errorf("create base directory: %w", mkErr)
			}
		} else {
			return nil, fmt.Errorf("stat base directory: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("base directory path is not a directory")
	}

	return &Store{baseDir: cfg.BaseDir}, nil
}

// bucketDir resolves a bucket to a directory and rejects names that would
// escape the base directory.
func (s *Store) bucketDir(bucket string) (string, error) {
	if strings.TrimSpace(bucket) == "" {
		return "", fmt.Errorf("bucket name is required")
	}
	dir := filepath.Join(s.baseDir, bucket)
	cleanBase := filepath.Clean(s.baseDir)
	if !strings.HasPrefix(filepath.Clean(dir), cleanBase+string(filepath.Separator)) {
		return "", fmt.Errorf("bucket name %q escapes the base directory", bucket)
	}
	return dir, nil
}

// EnsureBucket creates the bucket directory when absent and empties it when
// present.
func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("purge bucket %s: %w", bucket, err)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	return nil
}

// PutObject writes data to a file and returns its storage path.
func (s *Store) PutObject(_ context.Context, bucket, object, _ string, data []byte) (string, error) {
	if strings.TrimSpace(object) == "" {
		return "", fmt.Errorf("object name is required")
	}
	dir, err := s.bucketDir(bucket)
	if err != nil {
		return "", err
	}

	fullPath := filepath.Join(dir, object)
	if !strings.HasPrefix(filepath.Clean(fullPath), filepath.Clean(dir)+string(filepath.Separator)) {
		return "", fmt.Errorf("object name %q escapes the bucket directory", object)
	}
	if err := os.WriteFile(fullPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return fmt.Sprintf("%s/%s", bucket, object), nil
}

// Close implements storage.Store; there is nothing to release.
func (s *Store) Close() error { return nil }
