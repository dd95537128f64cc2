package memory

import (
	"ImeiGuard/internal/core/domain"
	"ImeiGuard/internal/core/ports"
	"context"
	"sync"
)

// searchRepository is the append-only lookup history, newest first.
type searchRepository struct {
	searches []*domain.ImeiSearch
	mu       sync.RWMutex
}

var _ ports.SearchRepository = (*searchRepository)(nil)

// NewSearchRepository creates an empty in-memory history.
func NewSearchRepository() ports.SearchRepository {
	return &searchRepository{}
}

func (r *searchRepository) Prepend(ctx context.Context, search *domain.ImeiSearch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := cloneSearch(search)
	r.searches = append([]*domain.ImeiSearch{c}, r.searches...)
	return nil
}

func (r *searchRepository) List(ctx context.Context) ([]*domain.ImeiSearch, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.ImeiSearch, 0, len(r.searches))
	for _, s := range r.searches {
		out = append(out, cloneSearch(s))
	}
	return out, nil
}

func cloneSearch(s *domain.ImeiSearch) *domain.ImeiSearch {
	c := *s
	if s.DeviceInfo != nil {
		info := *s.DeviceInfo
		c.DeviceInfo = &info
	}
	return &c
}
