package memory

import (
	"ImeiGuard/internal/core/ports"
	"context"
	"sync"
	"time"
)

type attemptEntry struct {
	failures    int
	lockedUntil time.Time
}

// attemptStore keeps failure counters in process memory.
// Counters and locks are lost on restart.
type attemptStore struct {
	now     func() time.Time
	entries map[string]*attemptEntry
	mu      sync.Mutex
}

var _ ports.AttemptStore = (*attemptStore)(nil)

// NewAttemptStore creates a volatile attempt store. A nil clock uses time.Now.
func NewAttemptStore(now func() time.Time) ports.AttemptStore {
	if now == nil {
		now = time.Now
	}
	return &attemptStore{now: now, entries: make(map[string]*attemptEntry)}
}

func (s *attemptStore) RecordFailure(ctx context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &attemptEntry{}
		s.entries[key] = e
	}
	e.failures++
	return e.failures, nil
}

func (s *attemptStore) Lock(ctx context.Context, key string, until time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		e = &attemptEntry{}
		s.entries[key] = e
	}
	e.lockedUntil = until
	return nil
}

// LockedUntil also expires a lapsed lock, which resets the counter.
func (s *attemptStore) LockedUntil(ctx context.Context, key string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || e.lockedUntil.IsZero() {
		return time.Time{}, nil
	}
	if !s.now().Before(e.lockedUntil) {
		delete(s.entries, key)
		return time.Time{}, nil
	}
	return e.lockedUntil, nil
}

func (s *attemptStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}
