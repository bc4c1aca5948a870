package session

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"visionchat/internal/metrics"
)

// MemoryStore keeps sessions in process memory. Idle sessions expire after
// ttl; the least recently saved session is dropped once maxLive is reached.
type MemoryStore struct {
	cache *expirable.LRU[string, *Context]
}

func NewMemoryStore(maxLive int, ttl time.Duration) *MemoryStore {
	onEvict := func(string, *Context) {
		metrics.ActiveSessions.Dec()
	}
	return &MemoryStore{cache: expirable.NewLRU[string, *Context](maxLive, onEvict, ttl)}
}

func (s *MemoryStore) Load(_ context.Context, id string) (*Context, error) {
	sc, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	return sc, nil
}

// Save adds the session or refreshes its expiry. History is shared by
// pointer, so there is nothing else to write.
func (s *MemoryStore) Save(_ context.Context, sc *Context) error {
	if sc == nil {
		return nil
	}
	if !s.cache.Contains(sc.ID) {
		metrics.ActiveSessions.Inc()
	}
	s.cache.Add(sc.ID, sc)
	return nil
}

func (s *MemoryStore) Discard(_ context.Context, id string) error {
	s.cache.Remove(id)
	return nil
}

func (s *MemoryStore) Len() int {
	return s.cache.Len()
}
