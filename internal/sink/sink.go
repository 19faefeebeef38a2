// Package sink provides the upload-destination abstraction for octoweave's
// exported artifacts (leaf CSV, PGM/SVG visualizations).
package sink

import (
	"context"
	"fmt"

	"github.com/octoweave/octoweave/internal/octoconfig"
)

// Uploader is the one-way artifact export destination octoweave's `export`
// command drives: push a local file to key, then report back where it
// landed. There's no read path here because nothing downstream of export
// ever reads an artifact back through the sink - `materialize` and
// `visualize` always read their inputs straight off local disk.
type Uploader interface {
	// UploadFile uploads a local file to the specified key.
	UploadFile(ctx context.Context, key string, localPath string) error

	// GetURL returns the URL (or local path) for the specified key.
	GetURL(key string) string
}

// Type represents the kind of upload destination.
type Type string

const (
	TypeLocal Type = "local"
	TypeCOS   Type = "cos"
)

// New creates a new Uploader based on the configuration.
func New(cfg *octoconfig.SinkConfig) (Uploader, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	switch Type(cfg.Type) {
	case TypeLocal:
		return NewLocalSink(cfg.LocalPath)
	case TypeCOS:
		return NewCOSSink(&COSConfig{
			Bucket:    cfg.Bucket,
			Region:    cfg.Region,
			SecretID:  cfg.SecretID,
			SecretKey: cfg.SecretKey,
			Domain:    cfg.Domain,
			Scheme:    cfg.Scheme,
		})
	default:
		return NewLocalSink(cfg.LocalPath)
	}
}

// ValidateConfig validates the sink configuration.
func ValidateConfig(cfg *octoconfig.SinkConfig) error {
	if cfg == nil {
		return fmt.Errorf("sink config is nil")
	}

	sinkType := Type(cfg.Type)
	if sinkType == "" {
		sinkType = TypeLocal
	}

	if sinkType != TypeCOS && sinkType != TypeLocal {
		return fmt.Errorf("unsupported sink type: %s", cfg.Type)
	}

	if sinkType == TypeCOS {
		if cfg.Bucket == "" {
			return fmt.Errorf("COS bucket is required")
		}
		if cfg.Region == "" {
			return fmt.Errorf("COS region is required")
		}
		if cfg.SecretID == "" || cfg.SecretKey == "" {
			return fmt.Errorf("COS credentials are required")
		}
	}

	if sinkType == TypeLocal {
		if cfg.LocalPath == "" {
			return fmt.Errorf("local sink path is required")
		}
	}

	return nil
}
