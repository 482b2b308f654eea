package blob

import (
	"context"
	"strings"
	"sync"
)

type memoryObject struct {
	data         []byte
	contentType  string
	public       bool
	cacheControl string
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	baseURL string

	mu      sync.RWMutex
	objects map[string]*memoryObject
}

// NewMemoryStore creates an empty in-memory store. baseURL prefixes the
// public URLs it reports.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{
		baseURL: strings.TrimRight(baseURL, "/"),
		objects: make(map[string]*memoryObject),
	}
}

// Put writes an object.
func (s *MemoryStore) Put(ctx context.Context, path, contentType string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects[path] = &memoryObject{data: buf, contentType: contentType}
	return nil
}

// Exists reports whether an object is present.
func (s *MemoryStore) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.objects[path]
	return ok, nil
}

// Head returns object metadata.
func (s *MemoryStore) Head(ctx context.Context, path string) (*ObjectInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	return &ObjectInfo{
		Size:        uint64(len(obj.data)),
		ContentType: obj.contentType,
		Public:      obj.public,
	}, nil
}

// Peek returns up to n leading bytes of the object body.
func (s *MemoryStore) Peek(ctx context.Context, path string, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	if !ok {
		return nil, ErrNotFound
	}
	if n > len(obj.data) {
		n = len(obj.data)
	}
	buf := make([]byte, n)
	copy(buf, obj.data[:n])
	return buf, nil
}

// Delete removes an object. Deleting a missing object is not an error.
func (s *MemoryStore) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path)
	return nil
}

// MakePublic marks the object publicly readable.
func (s *MemoryStore) MakePublic(ctx context.Context, path, cacheControl string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path]
	if !ok {
		return ErrNotFound
	}
	obj.public = true
	obj.cacheControl = cacheControl
	return nil
}

// PublicURL returns the canonical public URL for a path.
func (s *MemoryStore) PublicURL(path string) string {
	return s.baseURL + "/" + strings.TrimLeft(path, "/")
}

// IsPublic reports whether the object at path has been promoted. Test hook.
func (s *MemoryStore) IsPublic(path string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return ok && obj.public
}
