package memory

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// BlobStore keeps archived reports in memory and returns memory:// URIs.
type BlobStore struct {
	mu    sync.RWMutex
	data  map[string][]byte
	types map[string]string
}

// NewBlobStore creates a new in-memory blob store.
func NewBlobStore() *BlobStore {
	return &BlobStore{
		data:  make(map[string][]byte),
		types: make(map[string]string),
	}
}

// PutObject stores a copy of the content under path.
func (s *BlobStore) PutObject(_ context.Context, path string, contentType string, r io.Reader) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is required")
	}
	byteData, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read object: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[path] = byteData
	s.types[path] = contentType
	return "memory://" + path, nil
}

// Object returns the stored content and content type for path.
func (s *BlobStore) Object(path string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[path]
	if !ok {
		return nil, "", false
	}
	return append([]byte(nil), data...), s.types[path], true
}

// Paths returns the stored object paths.
func (s *BlobStore) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for p := range s.data {
		out = append(out, p)
	}
	return out
}
