package cache

import (
	"bytes"
	"context"
	"sync"

	"github.com/knwn/storefront/internal/domain/shared"
)

// MemoryStore implements shared.KeyValueStore in process memory. Values do
// not survive a restart and are not shared between instances.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string][]byte
}

var _ shared.KeyValueStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string][]byte)}
}

// Load returns a copy of the value under key
func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.entries[key]
	if !ok {
		return nil, shared.ErrKeyNotFound
	}
	return bytes.Clone(v), nil
}

// Save stores a copy of value under key
func (s *MemoryStore) Save(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = bytes.Clone(value)
	return nil
}

// Delete removes key
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

// Len returns the number of stored keys
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
