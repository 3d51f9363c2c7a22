package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/dvalchev/storefront/internal/catalog"
)

// Repository provides an in-memory catalog useful for local development and tests.
type Repository struct {
	mu       sync.RWMutex
	products map[string]catalog.Product
}

func NewRepository() *Repository {
	return &Repository{products: make(map[string]catalog.Product)}
}

func (r *Repository) Create(_ context.Context, product catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[product.ID] = product
	return nil
}

func (r *Repository) GetByID(_ context.Context, id string) (*catalog.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	product, ok := r.products[id]
	if !ok {
		return nil, catalog.ErrNotFound
	}
	out := product
	return &out, nil
}

func (r *Repository) List(_ context.Context, filter catalog.ListFilter) ([]catalog.Product, error) {
	filter = filter.Normalize()

	r.mu.RLock()
	var matched []catalog.Product
	for _, product := range r.products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		matched = append(matched, product)
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	start := (filter.Page - 1) * filter.PageSize
	if start >= len(matched) {
		return []catalog.Product{}, nil
	}
	end := start + filter.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := make([]catalog.Product, end-start)
	copy(page, matched[start:end])
	return page, nil
}

func (r *Repository) Count(_ context.Context, category string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, product := range r.products {
		if category == "" || product.Category == category {
			count++
		}
	}
	return count, nil
}

func (r *Repository) Update(_ context.Context, product catalog.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return catalog.ErrNotFound
	}

	// Stock is owned by the ledger; keep the stored value.
	product.Stock = existing.Stock
	r.products[product.ID] = product
	return nil
}

func (r *Repository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return catalog.ErrNotFound
	}
	delete(r.products, id)
	return nil
}

// SetStock overwrites a product's stock level. Test seeding only.
func (r *Repository) SetStock(id string, stock int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product, ok := r.products[id]; ok {
		product.Stock = stock
		r.products[id] = product
	}
}
