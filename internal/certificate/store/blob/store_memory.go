// Package blob stores rendered document bytes. Names are caller-chosen
// (certificate key plus extension); URLs returned by Put are opaque to the
// core and only meaningful to whoever serves the documents.
package blob

import (
	"context"
	"fmt"
	"sync"

	"veriseal/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{blobs: make(map[string][]byte)}
}

func (s *InMemoryStore) Put(_ context.Context, name string, data []byte, _ string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("blob name is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[name] = append([]byte(nil), data...)
	return "blob://" + name, nil
}

func (s *InMemoryStore) Get(_ context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[name]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", name, sentinel.ErrNotFound)
	}
	return append([]byte(nil), data...), nil
}

// Len reports how many blobs are stored. Test helper.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.blobs)
}
