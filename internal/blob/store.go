// Package blob defines the blob-store collaborator used by the upload
// verification flow. Vendor integration is out of scope; the interface
// covers the primitives the verifier needs and the in-memory implementation
// serves tests and local development.
package blob

import (
	"context"
	"errors"
)

// ErrNotFound indicates the object does not exist at the given path.
var ErrNotFound = errors.New("blob: object not found")

// ErrUnavailable indicates a transient store failure (network, timeout).
// Callers may retry; it must never be reported as a policy rejection.
var ErrUnavailable = errors.New("blob: store unavailable")

// ObjectInfo describes stored object metadata.
type ObjectInfo struct {
	Size        uint64
	ContentType string
	Public      bool
}

// Store is the set of blob-store primitives the subsystem depends on.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put writes an object.
	Put(ctx context.Context, path, contentType string, data []byte) error
	// Exists reports whether an object is present.
	Exists(ctx context.Context, path string) (bool, error)
	// Head returns object metadata without the body.
	Head(ctx context.Context, path string) (*ObjectInfo, error)
	// Peek returns up to n leading bytes of the object body.
	Peek(ctx context.Context, path string, n int) ([]byte, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, path string) error
	// MakePublic marks the object publicly readable with the given
	// Cache-Control value.
	MakePublic(ctx context.Context, path, cacheControl string) error
	// PublicURL returns the canonical public URL for a path.
	PublicURL(path string) string
}
