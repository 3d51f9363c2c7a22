package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
)

// Repository is an in-memory order store for tests and local development.
type Repository struct {
	mu     sync.RWMutex
	orders map[string]domain.Order
}

func NewRepository() *Repository {
	return &Repository{orders: make(map[string]domain.Order)}
}

func (r *Repository) Create(_ context.Context, order domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, ports.ErrNotFound
	}

	copied := cloneOrder(order)
	return &copied, nil
}

func (r *Repository) ListByUser(_ context.Context, userID string, filter ports.ListFilter) ([]domain.Order, error) {
	return r.list(filter, func(order domain.Order) bool { return order.UserID == userID }), nil
}

func (r *Repository) ListAll(_ context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return r.list(filter, func(domain.Order) bool { return true }), nil
}

func (r *Repository) list(filter ports.ListFilter, match func(domain.Order) bool) []domain.Order {
	filter = filter.Normalize()

	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]domain.Order, 0)
	for _, order := range r.orders {
		if match(order) {
			matched = append(matched, cloneOrder(order))
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []domain.Order{}
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return matched[start:end]
}

func (r *Repository) CountByUser(_ context.Context, userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, order := range r.orders {
		if order.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *Repository) CountAll(_ context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.orders), nil
}

func (r *Repository) UpdateStatus(_ context.Context, id string, expect, next domain.Status) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return ports.ErrNotFound
	}
	if order.Status != expect {
		return ports.ErrStatusConflict
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()
	r.orders[id] = order
	return nil
}

func cloneOrder(order domain.Order) domain.Order {
	items := make([]domain.Item, len(order.Items))
	copy(items, order.Items)
	order.Items = items
	return order
}
