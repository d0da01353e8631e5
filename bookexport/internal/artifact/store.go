// CLAUDE:SUMMARY Artifact stores for finished exports: Store interface, local directory store, S3-compatible store, and the dated key layout.
// Package artifact keeps finished export files somewhere durable.
package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"
)

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("artifact: not found")

// Store persists export files by key. Keys use forward slashes.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Location describes where a key lives, for logs and API responses.
	Location(key string) string
}

// Key builds the dated storage key of an export:
// exports/2026/03/<id>/<slug>.<ext>.
func Key(id, slug, ext string, t time.Time) string {
	return path.Join("exports", t.UTC().Format("2006/01"), id, slug+"."+ext)
}

// Options selects and configures a store.
type Options struct {
	Adapter string // none | local | s3
	Root    string
	S3      S3Options
}

// New builds the configured store. Adapter "none" (or empty) returns nil,
// nil: callers treat a nil Store as "keep nothing".
func New(ctx context.Context, opts Options) (Store, error) {
	switch opts.Adapter {
	case "", "none":
		return nil, nil
	case "local":
		return NewLocal(opts.Root)
	case "s3":
		return NewS3(ctx, opts.S3)
	default:
		return nil, fmt.Errorf("artifact: unknown adapter %q", opts.Adapter)
	}
}
