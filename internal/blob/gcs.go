package blob

import (
	"context"
	"fmt"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"
)

// GCSStore uploads receipt images to a Google Cloud Storage bucket.
type GCSStore struct {
	client *storage.Client
	bucket string
	logger *zap.Logger
}

func NewGCSStore(ctx context.Context, bucket string, logger *zap.Logger) (*GCSStore, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: bucket, logger: logger}, nil
}

func (s *GCSStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	obj := s.client.Bucket(s.bucket).Object("receipts/" + name)
	w := obj.NewWriter(ctx)
	w.ContentType = contentType
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return "", fmt.Errorf("uploading %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing %s: %w", name, err)
	}
	url := fmt.Sprintf("https://storage.googleapis.com/%s/receipts/%s", s.bucket, name)
	s.logger.Debug("image uploaded", zap.String("url", url), zap.Int("bytes", len(data)))
	return url, nil
}

func (s *GCSStore) Close() error {
	return s.client.Close()
}
