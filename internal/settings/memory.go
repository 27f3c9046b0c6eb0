package settings

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and local development.
// Safe for concurrent use.
type MemoryStore struct {
	mu       sync.Mutex
	snapshot Snapshot
	premium  map[string]bool
}

// NewMemoryStore creates a MemoryStore seeded with defaults.
func NewMemoryStore(defaults Snapshot) *MemoryStore {
	return &MemoryStore{snapshot: defaults, premium: make(map[string]bool)}
}

// Snapshot implements Store.
func (s *MemoryStore) Snapshot(_ context.Context) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot, nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = snap
	return nil
}

// Entitlement implements Store.
func (s *MemoryStore) Entitlement(_ context.Context, userID string) (Entitlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Entitlement{UserID: userID, Premium: s.premium[userID]}, nil
}

// SetPremium implements Store.
func (s *MemoryStore) SetPremium(_ context.Context, userID string, premium bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.premium[userID] = premium
	return nil
}
