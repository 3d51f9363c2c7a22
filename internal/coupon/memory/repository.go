package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dvalchev/storefront/internal/coupon"
)

// Repository keeps coupons in memory. Redeem is a single locked
// check-and-increment, matching the Postgres conditional update.
type Repository struct {
	mu      sync.Mutex
	coupons map[string]coupon.Coupon
}

func NewRepository() *Repository {
	return &Repository{coupons: make(map[string]coupon.Coupon)}
}

func (r *Repository) Create(_ context.Context, c coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.coupons[coupon.NormalizeCode(c.Code)] = c
	return nil
}

func (r *Repository) GetByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.coupons[coupon.NormalizeCode(code)]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	out := c
	return &out, nil
}

func (r *Repository) List(_ context.Context, page, pageSize int) ([]coupon.Coupon, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	r.mu.Lock()
	all := make([]coupon.Coupon, 0, len(r.coupons))
	for _, c := range r.coupons {
		all = append(all, c)
	}
	r.mu.Unlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	start := (page - 1) * pageSize
	if start >= len(all) {
		return []coupon.Coupon{}, nil
	}
	end := start + pageSize
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], nil
}

func (r *Repository) Count(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.coupons), nil
}

func (r *Repository) Update(_ context.Context, c coupon.Coupon) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := coupon.NormalizeCode(c.Code)
	existing, ok := r.coupons[key]
	if !ok {
		return coupon.ErrNotFound
	}

	// The usage counter only moves through Redeem/Refund.
	c.UsageCount = existing.UsageCount
	c.UpdatedAt = time.Now().UTC()
	r.coupons[key] = c
	return nil
}

func (r *Repository) Delete(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := coupon.NormalizeCode(code)
	if _, ok := r.coupons[key]; !ok {
		return coupon.ErrNotFound
	}
	delete(r.coupons, key)
	return nil
}

func (r *Repository) Redeem(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := coupon.NormalizeCode(code)
	c, ok := r.coupons[key]
	if !ok {
		return coupon.ErrNotFound
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return coupon.ErrLimitReached
	}

	c.UsageCount++
	c.UpdatedAt = time.Now().UTC()
	r.coupons[key] = c
	return nil
}

func (r *Repository) Refund(_ context.Context, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := coupon.NormalizeCode(code)
	c, ok := r.coupons[key]
	if !ok {
		return coupon.ErrNotFound
	}
	if c.UsageCount > 0 {
		c.UsageCount--
		c.UpdatedAt = time.Now().UTC()
		r.coupons[key] = c
	}
	return nil
}
