package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// FSStore writes images under a local directory and serves them via the
// configured public base path. Local/dev counterpart of the GCS backend.
type FSStore struct {
	dir     string
	baseURL string
	logger  *zap.Logger
}

func NewFSStore(dir, baseURL string, logger *zap.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &FSStore{dir: dir, baseURL: strings.TrimRight(baseURL, "/"), logger: logger}, nil
}

func (s *FSStore) Upload(ctx context.Context, name string, data []byte, contentType string) (string, error) {
	name = filepath.Base(name) // no path traversal via upload names
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	s.logger.Debug("image stored", zap.String("path", path), zap.Int("bytes", len(data)))
	return s.baseURL + "/" + name, nil
}
