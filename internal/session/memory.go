// Package session keeps one ledger per dashboard session.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"inventory-dashboard/internal/ledger"
)

// ErrNotFound is returned for unknown or expired sessions
var ErrNotFound = errors.New("session: not found")

type memoryEntry struct {
	ledger  *ledger.Ledger
	lock    sync.Mutex
	touched time.Time
}

// MemoryStore keeps ledgers in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memoryEntry
	now      func() time.Time
}

// NewMemoryStore creates an empty in-process session store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memoryEntry),
		now:      time.Now,
	}
}

// Save stores the ledger under id
func (s *MemoryStore) Save(_ context.Context, id string, l *ledger.Ledger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[id]; ok {
		e.ledger = l
		e.touched = s.now()
		return nil
	}
	s.sessions[id] = &memoryEntry{ledger: l, touched: s.now()}
	return nil
}

// Load returns the ledger for id or ErrNotFound
func (s *MemoryStore) Load(_ context.Context, id string) (*ledger.Ledger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.touched = s.now()
	return e.ledger, nil
}

// Delete removes the session, returning ErrNotFound when absent
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

// Lock serialises load-mutate-save sequences on one session
func (s *MemoryStore) Lock(ctx context.Context, id string) (func(), error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.lock.Lock()
	return e.lock.Unlock, nil
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.sessions)
}

// Evict drops sessions idle for longer than ttl and returns how many were removed
func (s *MemoryStore) Evict(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, e := range s.sessions {
		if e.touched.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// RunJanitor evicts idle sessions every interval until ctx is done
func (s *MemoryStore) RunJanitor(ctx context.Context, interval, ttl time.Duration, onEvict func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Evict(ttl); n > 0 && onEvict != nil {
				onEvict(n)
			}
		}
	}
}
