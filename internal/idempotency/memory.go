package idempotency

import (
	"context"
	"time"

	"github.com/nxtgenia/miniaturia/internal/cache"
)

// process-local store for single instance deployments and tests;
// pending keys live as long as results, well past any poll budget
type MemoryStore struct {
	entries *cache.TTL[string, []byte]
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: cache.New[string, []byte](DefaultResultTTL, 10*time.Minute)}
}

func (s *MemoryStore) Reserve(ctx context.Context, key string) ([]byte, error) {
	if s.entries.SetNX(key, []byte(pendingMarker)) {
		return nil, nil
	}

	val, ok := s.entries.Get(key)
	if !ok {
		return s.Reserve(ctx, key)
	}

	if string(val) == pendingMarker {
		return nil, ErrInFlight
	}

	return val, nil
}

func (s *MemoryStore) Complete(ctx context.Context, key string, result []byte) error {
	s.entries.Set(key, result)
	return nil
}

func (s *MemoryStore) Release(ctx context.Context, key string) error {
	s.entries.Delete(key)
	return nil
}

// stops the background sweep
func (s *MemoryStore) Close() {
	s.entries.Close()
}
