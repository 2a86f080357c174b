package upload

import (
	"context"
	"io"
)

// Store is the object storage files are uploaded to.
type Store interface {
	// Upload stores body under key and returns the public URL of the object.
	Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error)

	// Delete removes the object stored under key.
	Delete(ctx context.Context, key string) error

	// KeyFromURL maps a public URL produced by Upload back to its object key.
	KeyFromURL(publicURL string) (string, bool)
}
