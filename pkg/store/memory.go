package store

import (
	"context"
	"sync"

	"github.com/mazrik/modcat/pkg/observability"
)

// MemoryStore implements Store with an in-process map.
// It is intended for development and tests; nothing is persisted.
type MemoryStore struct {
	name string
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty in-memory partition.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name: name,
		data: make(map[string][]byte),
	}
}

// Name returns the partition name.
func (s *MemoryStore) Name() string { return s.name }

// Get retrieves the raw value stored under key.
// Absent keys yield EmptyObject.
func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()

	if !ok {
		observability.Store().OnGet(ctx, s.name, key, true)
		return EmptyObject, nil
	}
	observability.Store().OnGet(ctx, s.name, key, false)

	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a copy of value under key.
func (s *MemoryStore) Set(ctx context.Context, key string, value []byte) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	s.mu.Lock()
	s.data[key] = stored
	s.mu.Unlock()

	observability.Store().OnSet(ctx, s.name, key, len(value))
	return nil
}

// Delete removes the given keys and returns how many existed.
func (s *MemoryStore) Delete(ctx context.Context, keys ...string) (int, error) {
	s.mu.Lock()
	removed := 0
	for _, key := range keys {
		if _, ok := s.data[key]; ok {
			delete(s.data, key)
			removed++
		}
	}
	s.mu.Unlock()

	observability.Store().OnDelete(ctx, s.name, len(keys), removed)
	return removed, nil
}

// ScanKeys returns every key currently present in the partition.
func (s *MemoryStore) ScanKeys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	keys := make([]string, 0, len(s.data))
	for key := range s.data {
		keys = append(keys, key)
	}
	s.mu.RUnlock()
	return keys, nil
}

// Close does nothing for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
