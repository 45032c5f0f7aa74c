// Package memory stores crawl artifacts in-memory for development and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store keeps bucket contents in maps guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string][]byte
	types   map[string]string
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		buckets: make(map[string]map[string][]byte),
		types:   make(map[string]string),
	}
}

// EnsureBucket creates the bucket when absent and empties it when present.
func (s *Store) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets[bucket] = make(map[string][]byte)
	return nil
}

// PutObject stores the content and returns its storage path.
func (s *Store) PutObject(_ context.Context, bucket, object, contentType string, data []byte) (string, error) {
	if object == "" {
		return "", fmt.Errorf("object name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		return "", fmt.Errorf("bucket %s does not exist", bucket)
	}
	objects[object] = append([]byte(nil), data...)
	s.types[bucket+"/"+object] = contentType
	return fmt.Sprintf("%s/%s", bucket, object), nil
}

// Close implements storage.Store; there is nothing to release.
func (s *Store) Close() error { return nil }

// HasBucket reports whether the bucket exists.
func (s *Store) HasBucket(bucket string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.buckets[bucket]
	return ok
}

// Objects returns the sorted object names held by a bucket.
func (s *Store) Objects(bucket string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.buckets[bucket]))
	for name := range s.buckets[bucket] {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Object returns the stored bytes for one object.
func (s *Store) Object(bucket, object string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.buckets[bucket][object]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), data...), true
}

// ContentType returns the content type recorded for an object.
func (s *Store) ContentType(bucket, object string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.types[bucket+"/"+object]
}
