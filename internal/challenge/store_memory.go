package challenge

import (
	"context"
	"sync"
	"time"
)

// InMemoryStore keeps challenges in a mutex-guarded map. Safe for concurrent
// access within one process; a multi-instance deployment uses the Redis store.
type InMemoryStore struct {
	mu         sync.Mutex
	challenges map[string]*Challenge
}

// NewInMemoryStore constructs an empty in-memory challenge store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{challenges: make(map[string]*Challenge)}
}

// Save stores a challenge by value.
func (s *InMemoryStore) Save(_ context.Context, ch Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[ch.Value] = &ch
	return nil
}

// Consume checks and flips the used flag under one lock hold, so a sweep or a
// concurrent consumer can never interleave with the decision.
func (s *InMemoryStore) Consume(_ context.Context, value string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[value]
	if !ok {
		return ErrInvalidChallenge
	}
	if ch.Used {
		return ErrChallengeUsed
	}
	if now.After(ch.ExpiresAt) {
		delete(s.challenges, value)
		return ErrChallengeExpired
	}
	ch.Used = true
	return nil
}

// DeleteExpired removes challenges past their TTL in one sweep.
func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for value, ch := range s.challenges {
		if now.After(ch.ExpiresAt) {
			delete(s.challenges, value)
			deleted++
		}
	}
	return deleted, nil
}
