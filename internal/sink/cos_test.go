package sink

import (
	"testing"

	"github.com/octoweave/octoweave/internal/octoconfig"
	"github.com/stretchr/testify/assert"
)

func TestNewCOSSink_Validation(t *testing.T) {
	t.Run("MissingBucket", func(t *testing.T) {
		cfg := &COSConfig{
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		up, err := NewCOSSink(cfg)
		assert.Error(t, err)
		assert.Nil(t, up)
		assert.Contains(t, err.Error(), "bucket and region are required")
	})

	t.Run("MissingRegion", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket:    "test-bucket",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		up, err := NewCOSSink(cfg)
		assert.Error(t, err)
		assert.Nil(t, up)
		assert.Contains(t, err.Error(), "bucket and region are required")
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket: "test-bucket",
			Region: "ap-guangzhou",
		}

		up, err := NewCOSSink(cfg)
		assert.Error(t, err)
		assert.Nil(t, up)
		assert.Contains(t, err.Error(), "credentials are required")
	})

	t.Run("ValidConfig", func(t *testing.T) {
		cfg := &COSConfig{
			Bucket:    "test-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}

		up, err := NewCOSSink(cfg)
		assert.NoError(t, err)
		assert.NotNil(t, up)
	})
}

func TestCOSSink_GetURL(t *testing.T) {
	cfg := &COSConfig{
		Bucket:    "my-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "test-id",
		SecretKey: "test-key",
	}

	up, err := NewCOSSink(cfg)
	assert.NoError(t, err)

	url := up.GetURL("path/to/file.txt")
	expected := "https://my-bucket.cos.ap-guangzhou.myqcloud.com/path/to/file.txt"
	assert.Equal(t, expected, url)
}

func TestArtifactContentType(t *testing.T) {
	tests := []struct {
		key      string
		expected string
	}{
		{"runs/latest/leaves.csv", "text/csv"},
		{"runs/latest/levels.json", "application/json"},
		{"runs/latest/slice.pgm", "image/x-portable-graymap"},
		{"runs/latest/slice.svg", "image/svg+xml"},
		{"runs/latest/leaves.csv.gz", "application/gzip"},
		{"runs/latest/leaves.csv.zst", "application/zstd"},
		{"runs/latest/blob", "application/octet-stream"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, artifactContentType(tt.key))
		})
	}
}

func TestNew_COS(t *testing.T) {
	cfg := &octoconfig.SinkConfig{
		Type:      "cos",
		Bucket:    "test-bucket",
		Region:    "ap-guangzhou",
		SecretID:  "test-id",
		SecretKey: "test-key",
	}

	up, err := New(cfg)
	assert.NoError(t, err)
	assert.NotNil(t, up)

	_, ok := up.(*COSSink)
	assert.True(t, ok)
}

func TestValidateConfig(t *testing.T) {
	t.Run("NilConfig", func(t *testing.T) {
		err := ValidateConfig(nil)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "sink config is nil")
	})

	t.Run("InvalidSinkType", func(t *testing.T) {
		cfg := &octoconfig.SinkConfig{Type: "s3"}
		err := ValidateConfig(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "unsupported sink type")
	})

	t.Run("COSMissingBucket", func(t *testing.T) {
		cfg := &octoconfig.SinkConfig{
			Type:      "cos",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}
		err := ValidateConfig(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "COS bucket is required")
	})

	t.Run("COSMissingRegion", func(t *testing.T) {
		cfg := &octoconfig.SinkConfig{
			Type:      "cos",
			Bucket:    "test-bucket",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}
		err := ValidateConfig(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "COS region is required")
	})

	t.Run("COSMissingCredentials", func(t *testing.T) {
		cfg := &octoconfig.SinkConfig{
			Type:   "cos",
			Bucket: "test-bucket",
			Region: "ap-guangzhou",
		}
		err := ValidateConfig(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "COS credentials are required")
	})

	t.Run("LocalMissingPath", func(t *testing.T) {
		cfg := &octoconfig.SinkConfig{Type: "local"}
		err := ValidateConfig(cfg)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "local sink path is required")
	})

	t.Run("ValidCOSConfig", func(t *testing.T) {
		cfg := &octoconfig.SinkConfig{
			Type:      "cos",
			Bucket:    "test-bucket",
			Region:    "ap-guangzhou",
			SecretID:  "test-id",
			SecretKey: "test-key",
		}
		err := ValidateConfig(cfg)
		assert.NoError(t, err)
	})

	t.Run("ValidLocalConfig", func(t *testing.T) {
		cfg := &octoconfig.SinkConfig{
			Type:      "local",
			LocalPath: "/tmp/octoweave-output",
		}
		err := ValidateConfig(cfg)
		assert.NoError(t, err)
	})
}
