// ABOUTME: In-memory session store with TTL-based expiration
// ABOUTME: Used for ephemeral sessions and as a test double for the manager

package store

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// MemoryStore keeps the record in process memory. A zero TTL never expires.
type MemoryStore struct {
	mu        sync.Mutex
	rec       *Record
	expiresAt time.Time
	ttl       time.Duration
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl}
}

// Load returns a copy of the stored record
func (s *MemoryStore) Load(_ context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.rec == nil {
		return nil, nil
	}
	if s.ttl > 0 && time.Now().After(s.expiresAt) {
		s.rec = nil
		slog.Debug("Memory session expired")
		return nil, nil
	}
	rec := *s.rec
	return &rec, nil
}

// Save replaces the stored record
func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if rec == nil {
		return errors.New("nil session record")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	saved := *rec
	saved.SavedAt = time.Now().UTC()
	s.rec = &saved
	s.expiresAt = time.Now().Add(s.ttl)
	return nil
}

// Clear drops the stored record
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rec = nil
	return nil
}
