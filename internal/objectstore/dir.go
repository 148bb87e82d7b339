package objectstore

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/studiowebux/dlts/internal/types"
)

// Dir keeps objects as files under a root directory. Links are file:// URLs
// and never expire.
type Dir struct {
	root string
}

var _ Store = (*Dir)(nil)

// NewDir creates the root directory if needed
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return &Dir{root: abs}, nil
}

// resolve maps an object path to a file inside root
func (d *Dir) resolve(path string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(path))
	if clean == "." || filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", &types.ValidationError{Field: "path", Message: fmt.Sprintf("invalid object path %q", path)}
	}
	return filepath.Join(d.root, clean), nil
}

// Put writes r to the file for path, replacing any previous content
func (d *Dir) Put(ctx context.Context, path string, r io.Reader, contentType string) error {
	target, err := d.resolve(path)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return &types.TransportError{Op: "upload " + path, Err: err}
	}

	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return &types.TransportError{Op: "upload " + path, Err: err}
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return &types.TransportError{Op: "upload " + path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &types.TransportError{Op: "upload " + path, Err: err}
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return &types.TransportError{Op: "upload " + path, Err: err}
	}
	return nil
}

// URL returns a file:// link to an existing object
func (d *Dir) URL(ctx context.Context, path string, expires time.Duration) (string, error) {
	target, err := d.resolve(path)
	if err != nil {
		return "", err
	}
	if _, err := os.Stat(target); err != nil {
		return "", &types.TransportError{Op: "link " + path, Err: err}
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(target)}).String(), nil
}
