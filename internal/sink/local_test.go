package sink

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/octoweave/octoweave/internal/octoconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLocalSink(t *testing.T) {
	t.Run("CreateWithDefaultPath", func(t *testing.T) {
		tempDir := t.TempDir()
		defaultPath := filepath.Join(tempDir, "storage")

		storage, err := NewLocalSink(defaultPath)
		require.NoError(t, err)
		require.NotNil(t, storage)

		// Verify directory was created
		info, err := os.Stat(defaultPath)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("CreateWithEmptyPath", func(t *testing.T) {
		// Save and restore current directory
		origDir, err := os.Getwd()
		require.NoError(t, err)
		defer os.Chdir(origDir)

		tempDir := t.TempDir()
		os.Chdir(tempDir)

		storage, err := NewLocalSink("")
		require.NoError(t, err)
		require.NotNil(t, storage)

		// Default path should be ./output
		assert.Equal(t, "./output", storage.GetBasePath())
	})
}

func TestLocalSink_UploadFile(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalSink(tempDir)
	require.NoError(t, err)

	t.Run("UploadLocalFile", func(t *testing.T) {
		// Create source file
		srcFile := filepath.Join(tempDir, "source.txt")
		content := []byte("source file content")
		require.NoError(t, os.WriteFile(srcFile, content, 0644))

		// Upload
		err := storage.UploadFile(context.Background(), "dest/file.txt", srcFile)
		require.NoError(t, err)

		// Verify destination
		destPath := filepath.Join(tempDir, "dest", "file.txt")
		data, err := os.ReadFile(destPath)
		require.NoError(t, err)
		assert.Equal(t, content, data)
	})

	t.Run("UploadNonExistentFile", func(t *testing.T) {
		err := storage.UploadFile(context.Background(), "dest.txt", "/nonexistent/path.txt")
		assert.Error(t, err)
	})

	t.Run("UploadWithCanceledContext", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		srcFile := filepath.Join(tempDir, "source.txt")
		err := storage.UploadFile(ctx, "canceled.txt", srcFile)
		assert.Error(t, err)
	})
}

func TestLocalSink_GetURL(t *testing.T) {
	tempDir := t.TempDir()
	storage, err := NewLocalSink(tempDir)
	require.NoError(t, err)

	url := storage.GetURL("path/to/file.txt")
	expected := filepath.Join(tempDir, "path/to/file.txt")
	assert.Equal(t, expected, url)
}

func TestNew(t *testing.T) {
	t.Run("CreateLocalSink", func(t *testing.T) {
		tempDir := t.TempDir()
		cfg := &octoconfig.SinkConfig{
			Type:      string(TypeLocal),
			LocalPath: tempDir,
		}

		up, err := New(cfg)
		require.NoError(t, err)
		require.NotNil(t, up)

		_, ok := up.(*LocalSink)
		assert.True(t, ok)
	})
}
