package tracker

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is a Store backed by a map guarded by a single RWMutex.
//
// Entries are never evicted; memory grows with the number of requests created.
type MemoryStore struct {
	mu       sync.RWMutex
	requests map[string]*TrackedRequest
	now      func() time.Time
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests: make(map[string]*TrackedRequest),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(ctx context.Context, kind Kind, metadata map[string]any) (string, error) {
	if kind == "" {
		return "", ErrInvalidKind
	}

	tr := newTrackedRequest(kind, metadata, s.now().UTC())

	s.mu.Lock()
	s.requests[tr.ID] = tr
	s.mu.Unlock()

	return tr.ID, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*TrackedRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	return tr.clone(), nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, status string, result map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	tr.apply(status, result, s.now().UTC())
	return nil
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}
