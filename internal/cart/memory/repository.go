package memory

import (
	"context"
	"sync"

	"github.com/dvalchev/storefront/internal/cart"
)

// Repository provides an in-memory cart store for local development and tests.
type Repository struct {
	mu    sync.Mutex
	carts map[string]cart.Cart // keyed by user ID
}

func NewRepository() *Repository {
	return &Repository{carts: make(map[string]cart.Cart)}
}

func (r *Repository) GetByUser(_ context.Context, userID string) (*cart.Cart, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.carts[userID]
	if !ok {
		return nil, cart.ErrNotFound
	}

	out := c
	out.Items = append([]cart.Item(nil), c.Items...)
	return &out, nil
}

func (r *Repository) Create(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c.Version = 1
	stored := *c
	stored.Items = append([]cart.Item(nil), c.Items...)
	r.carts[c.UserID] = stored
	return nil
}

func (r *Repository) Save(_ context.Context, c *cart.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.carts[c.UserID]
	if !ok {
		return cart.ErrNotFound
	}
	if stored.Version != c.Version {
		return cart.ErrVersionConflict
	}

	c.Version++
	updated := *c
	updated.Items = append([]cart.Item(nil), c.Items...)
	r.carts[c.UserID] = updated
	return nil
}
