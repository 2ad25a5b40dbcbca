package blob

import "context"

// Store uploads receipt images and returns a URL the UI can render. The
// upload runs concurrently with OCR analysis, so implementations must be
// safe for concurrent use.
type Store interface {
	Upload(ctx context.Context, name string, data []byte, contentType string) (string, error)
}
