package memory

import (
	"ImeiGuard/internal/core/ports"
	"context"
	"sync"
)

// sessionStore is a volatile ports.SessionStore.
type sessionStore struct {
	values map[string][]byte
	mu     sync.RWMutex
}

var _ ports.SessionStore = (*sessionStore)(nil)

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() ports.SessionStore {
	return &sessionStore{values: make(map[string][]byte)}
}

func (s *sessionStore) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	return append([]byte(nil), v...), nil
}

func (s *sessionStore) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

func (s *sessionStore) Clear(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}
