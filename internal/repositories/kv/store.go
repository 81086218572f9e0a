package kv

import (
	"context"
	"sync"
)

// Record keys used in the backing store. Each key holds a JSON array of the
// corresponding entity.
const (
	KeyCustomers    = "customers"
	KeyOrders       = "orders"
	KeyBookings     = "bookings"
	KeyInventory    = "inventory"
	KeyTransactions = "transactions"
)

// Store is the narrow persistence collaborator contract: opaque values under
// well-known keys. SetMulti must apply every write or none of them.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	SetMulti(ctx context.Context, values map[string][]byte) error
	Close() error
}

// MemoryStore is an in-process Store used by tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string][]byte)}
}

// Get returns the value stored under key and whether it was present.
func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok := s.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = clone(value)
	return nil
}

// SetMulti stores every entry under a single lock acquisition.
func (s *MemoryStore) SetMulti(_ context.Context, values map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, value := range values {
		s.values[key] = clone(value)
	}
	return nil
}

// Close implements Store; MemoryStore holds no external resources.
func (s *MemoryStore) Close() error { return nil }

func clone(value []byte) []byte {
	out := make([]byte, len(value))
	copy(out, value)
	return out
}
