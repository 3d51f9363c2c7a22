package memory

import (
	"context"
	"sync"

	"github.com/dvalchev/storefront/internal/orders/ports"
)

// Store keeps idempotency responses in memory for tests and local runs.
type Store struct {
	mu    sync.RWMutex
	items map[string]ports.StoredResponse
}

func NewStore() *Store {
	return &Store{items: make(map[string]ports.StoredResponse)}
}

func (s *Store) Get(_ context.Context, key string) (*ports.StoredResponse, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	copied := value
	return &copied, nil
}

// Save records the response for a key. The first write wins.
func (s *Store) Save(_ context.Context, key string, response ports.StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		s.items[key] = response
	}
	return nil
}
