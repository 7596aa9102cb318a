package storage

import (
	"context"
	"io"
	"time"
)

// FileInfo contains metadata about a stored object.
type FileInfo struct {
	Path         string
	Size         int64
	LastModified time.Time
	ContentType  string
}

// Storage is where saved images live. Paths are flat file names such as
// "1700000000000-openai-cinematic.png".
type Storage interface {
	// Upload writes data from reader to path, replacing any existing object.
	Upload(ctx context.Context, path string, reader io.Reader) error

	// Download returns a reader for the object at path. The caller closes it.
	Download(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes the object. Returns nil if it does not exist.
	Delete(ctx context.Context, path string) error

	Exists(ctx context.Context, path string) (bool, error)

	// URL returns the address clients use to fetch the object.
	URL(ctx context.Context, path string) (string, error)

	// List returns metadata for objects whose path starts with prefix,
	// sorted by path.
	List(ctx context.Context, prefix string) ([]FileInfo, error)
}
