// Package memory contains an in-memory archive store for tests and local
// development.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// Object captures one stored payload.
type Object struct {
	Path        string
	ContentType string
	Data        []byte
}

// ArchiveStore keeps archived payloads in memory.
type ArchiveStore struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// New returns an empty ArchiveStore.
func New() *ArchiveStore {
	return &ArchiveStore{objects: make(map[string]Object)}
}

// PutObject records the payload and returns a mem:// URI.
func (s *ArchiveStore) PutObject(_ context.Context, path string, contentType string, data []byte) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path is required")
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[path] = Object{Path: path, ContentType: contentType, Data: cp}
	return fmt.Sprintf("mem://%s", path), nil
}

// Get returns a stored object by path.
func (s *ArchiveStore) Get(path string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[path]
	return obj, ok
}

// Len reports the number of stored objects.
func (s *ArchiveStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
