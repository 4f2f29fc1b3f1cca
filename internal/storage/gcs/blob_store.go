// Package gcs provides a BlobStore backed by Google Cloud Storage.
package gcs

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// Config captures the parameters required to connect to GCS.
type Config struct {
	Bucket string
	// VerifyBucket checks bucket attributes on construction so bad configuration fails at startup.
	VerifyBucket bool
}

// BlobStore writes archived reports to a configured GCS bucket.
type BlobStore struct {
	client *storage.Client
	bucket string
	owned  bool
	logger *zap.Logger
}

// Open creates a client from Application Default Credentials and wraps it in a BlobStore.
// The returned store owns the client and closes it on Close.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*BlobStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}
	store, err := New(ctx, client, cfg, logger)
	if err != nil {
		if closeErr := client.Close(); closeErr != nil && logger != nil {
			logger.Warn("close gcs client after setup failure", zap.Error(closeErr))
		}
		return nil, err
	}
	store.owned = true
	return store, nil
}

// New creates a GCS-backed blob store around an existing client.
func New(ctx context.Context, client *storage.Client, cfg Config, logger *zap.Logger) (*BlobStore, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("archive.gcs_bucket is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.VerifyBucket {
		if _, err := client.Bucket(cfg.Bucket).Attrs(ctx); err != nil {
			return nil, fmt.Errorf("get gcs bucket %q attributes: %w", cfg.Bucket, err)
		}
	}
	return &BlobStore{
		client: client,
		bucket: cfg.Bucket,
		logger: logger,
	}, nil
}

// PutObject uploads data to the configured bucket and returns a gs:// URI.
func (s *BlobStore) PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	writer := s.client.Bucket(s.bucket).Object(path).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, r); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			s.logger.Warn("close gcs writer after copy failure", zap.String("path", path), zap.Error(closeErr))
		}
		return "", fmt.Errorf("copy object %s: %w", path, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer for %s: %w", path, err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, path), nil
}

// Close releases the client when the store created it.
func (s *BlobStore) Close() error {
	if s == nil || !s.owned {
		return nil
	}
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close gcs client: %w", err)
	}
	return nil
}
