package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalSink writes octoweave artifacts under a base directory on the local
// filesystem, used for single-machine runs and for tests that exercise the
// export path without a real cloud credential.
type LocalSink struct {
	basePath string
}

// NewLocalSink creates a new LocalSink instance.
func NewLocalSink(basePath string) (*LocalSink, error) {
	if basePath == "" {
		basePath = "./output"
	}

	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalSink{basePath: basePath}, nil
}

// UploadFile copies a local artifact to key's path under the sink's base
// directory.
func (s *LocalSink) UploadFile(ctx context.Context, key string, localPath string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	fullPath := s.getFullPath(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(fullPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to copy file: %w", err)
	}

	return nil
}

// GetURL returns the file path for local storage.
func (s *LocalSink) GetURL(key string) string {
	return s.getFullPath(key)
}

// getFullPath returns the full filesystem path for the given key.
func (s *LocalSink) getFullPath(key string) string {
	return filepath.Join(s.basePath, key)
}

// GetBasePath returns the base path for the local storage.
func (s *LocalSink) GetBasePath() string {
	return s.basePath
}
