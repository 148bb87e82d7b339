// Package objectstore stores uploaded test scripts and hands out download links.
package objectstore

import (
	"context"
	"io"
	"time"
)

// DefaultURLExpiry is how long a download link stays valid
const DefaultURLExpiry = 10 * time.Second

// Store puts objects at a path and returns time-limited links to them
type Store interface {
	Put(ctx context.Context, path string, r io.Reader, contentType string) error
	URL(ctx context.Context, path string, expires time.Duration) (string, error)
}
