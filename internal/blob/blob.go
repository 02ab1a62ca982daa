// Package blob abstracts object storage for rendered certificate artifacts.
package blob

import (
	"context"
	"io"
)

// Uploader stores a blob under a key and returns its retrieval URL. Uploads
// to an existing key overwrite it, so deterministic keys stay duplicate-free.
type Uploader interface {
	Upload(ctx context.Context, key, contentType string, body io.Reader) (string, error)
}
