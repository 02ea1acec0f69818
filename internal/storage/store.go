// Package storage abstracts the durable object store backing the
// connector's raw snapshots, state documents, and published datasets.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned when a key does not exist in the store.
var ErrNotFound = errors.New("object not found")

// Store is a flat key/value object store. Keys are slash-separated paths
// relative to the configured prefix. Writes replace the whole object;
// partial updates are not supported.
type Store interface {
	// Read returns the full contents of the object at key.
	// Returns ErrNotFound if the key does not exist.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the object at key with data. The write must be
	// atomic: readers never observe a partially written object.
	Write(ctx context.Context, key string, data []byte) error

	// Exists reports whether an object exists at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns all keys under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// URI returns the canonical URI for the given key.
	// For local: file:///path, GCS: gs://bucket/path, S3: s3://bucket/path
	URI(key string) string

	// Close releases any resources.
	Close() error
}

// Config configures the storage backend.
type Config struct {
	Backend string `yaml:"backend" envconfig:"STORAGE_BACKEND"` // "local" | "gcs" | "s3"

	// Local filesystem
	LocalDir string `yaml:"local_dir" envconfig:"STORAGE_LOCAL_DIR"`

	// GCS
	GCSBucket string `yaml:"gcs_bucket" envconfig:"STORAGE_GCS_BUCKET"`

	// S3 (also works for B2, R2, MinIO)
	S3Bucket   string `yaml:"s3_bucket" envconfig:"STORAGE_S3_BUCKET"`
	S3Endpoint string `yaml:"s3_endpoint" envconfig:"STORAGE_S3_ENDPOINT"`
	S3Region   string `yaml:"s3_region" envconfig:"STORAGE_S3_REGION"`

	// Common path prefix within the bucket or local dir.
	Prefix string `yaml:"prefix" envconfig:"STORAGE_PREFIX"`
}

// NewStore creates a storage backend based on configuration.
func NewStore(cfg Config) (Store, error) {
	if cfg.Prefix != "" && !strings.HasSuffix(cfg.Prefix, "/") {
		cfg.Prefix += "/"
	}
	switch cfg.Backend {
	case "local":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("LocalDir required for local backend")
		}
		return NewLocalStore(cfg.LocalDir, cfg.Prefix)
	case "gcs":
		if cfg.GCSBucket == "" {
			return nil, fmt.Errorf("GCSBucket required for gcs backend")
		}
		return NewGCSStore(cfg.GCSBucket, cfg.Prefix)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("S3Bucket required for s3 backend")
		}
		return NewS3Store(cfg.S3Bucket, cfg.Prefix, cfg.S3Endpoint, cfg.S3Region)
	case "memory":
		return NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}
