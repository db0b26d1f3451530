package tracker

import (
	"context"
	"sync"
	"time"

	cache "github.com/Code-Hex/go-generics-cache"
)

// ExpiringStore is a Store that forgets requests ttl after they were last written.
//
// Expiry is handled by go-generics-cache (expired entries are invisible to Get and
// removed by a background janitor). The cache is safe for concurrent use but
// does not provide read-modify-write, so updates are serialized with mu.
type ExpiringStore struct {
	mu    sync.RWMutex
	cache *cache.Cache[string, *TrackedRequest]
	ttl   time.Duration
	now   func() time.Time
}

var _ Store = (*ExpiringStore)(nil)

// NewExpiringStore creates an ExpiringStore.
// The janitor runs until ctx is cancelled.
func NewExpiringStore(ctx context.Context, ttl time.Duration) *ExpiringStore {
	janitorInterval := ttl / 2
	if janitorInterval < time.Second {
		janitorInterval = time.Second
	}

	return &ExpiringStore{
		cache: cache.NewContext(ctx,
			cache.WithJanitorInterval[string, *TrackedRequest](janitorInterval),
		),
		ttl: ttl,
		now: time.Now,
	}
}

func (s *ExpiringStore) Create(ctx context.Context, kind Kind, metadata map[string]any) (string, error) {
	if kind == "" {
		return "", ErrInvalidKind
	}

	tr := newTrackedRequest(kind, metadata, s.now().UTC())

	s.mu.Lock()
	s.cache.Set(tr.ID, tr, cache.WithExpiration(s.ttl))
	s.mu.Unlock()

	return tr.ID, nil
}

func (s *ExpiringStore) Get(ctx context.Context, id string) (*TrackedRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tr, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return tr.clone(), nil
}

// Update applies the status change and restarts the expiry clock for the request.
func (s *ExpiringStore) Update(ctx context.Context, id string, status string, result map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tr, ok := s.cache.Get(id)
	if !ok {
		return ErrNotFound
	}
	tr.apply(status, result, s.now().UTC())
	s.cache.Set(id, tr, cache.WithExpiration(s.ttl))
	return nil
}

// Len returns the number of unexpired requests.
// Expired entries stay in the cache until the janitor runs, so they are skipped here.
func (s *ExpiringStore) Len() int {
	return len(s.cache.Keys())
}
