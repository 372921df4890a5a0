package custody

import (
	"context"
	"sync"
	"time"

	"caritas/internal/credential"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*Record // by custody id
	owners  map[string]string  // owner id -> custody id
}

// NewInMemoryStore constructs an empty in-memory custody store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		owners:  make(map[string]string),
	}
}

// Create stores a record, enforcing the one-record-per-owner constraint.
func (s *InMemoryStore) Create(_ context.Context, record Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	owner := record.OwnerID()
	if _, exists := s.owners[owner]; exists {
		return ErrDuplicateOwner
	}
	s.records[record.CustodyID] = &record
	s.owners[owner] = record.CustodyID
	return nil
}

// FindByID retrieves a record by custody id or returns ErrNotFound.
func (s *InMemoryStore) FindByID(_ context.Context, custodyID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if record, ok := s.records[custodyID]; ok {
		return *record, nil
	}
	return Record{}, ErrNotFound
}

// FindByOwner retrieves the record owned by ownerID or returns ErrNotFound.
func (s *InMemoryStore) FindByOwner(_ context.Context, ownerID string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if custodyID, ok := s.owners[ownerID]; ok {
		return *s.records[custodyID], nil
	}
	return Record{}, ErrNotFound
}

// UpdateVC replaces the credential sub-record.
func (s *InMemoryStore) UpdateVC(_ context.Context, custodyID string, vc credential.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[custodyID]
	if !ok {
		return ErrNotFound
	}
	record.VC = &vc
	record.UpdatedAt = time.Now().UTC()
	return nil
}
