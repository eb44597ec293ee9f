package diagnosis

import (
	"context"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const tombstonePrefix = "deleted:"

type MemoryResultStore struct {
	mu    sync.Mutex // serialises tombstone checks with writes
	cache *cache.Cache
}

func NewMemoryResultStore(ttl time.Duration) *MemoryResultStore {
	return &MemoryResultStore{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (s *MemoryResultStore) Name() string { return "memory" }

func (s *MemoryResultStore) Put(ctx context.Context, sessionID string, entry Entry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, deleted := s.cache.Get(tombstonePrefix + sessionID); deleted {
		return false, nil
	}
	if err := s.cache.Add(sessionID, entry, cache.DefaultExpiration); err != nil {
		// already has a terminal entry
		return false, nil
	}
	return true, nil
}

func (s *MemoryResultStore) Get(ctx context.Context, sessionID string) (*Entry, error) {
	val, found := s.cache.Get(sessionID)
	if !found {
		return nil, nil
	}
	entry := val.(Entry)
	return &entry, nil
}

func (s *MemoryResultStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cache.Set(tombstonePrefix+sessionID, true, cache.DefaultExpiration)
	s.cache.Delete(sessionID)
	return nil
}
