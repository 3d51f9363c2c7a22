package ports

import (
	"context"
	"errors"

	"github.com/dvalchev/storefront/internal/orders/domain"
)

var (
	// ErrNotFound is returned when the requested order does not exist.
	ErrNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when a conditional status update finds
	// the order no longer in the expected status.
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// OrderRepository exposes persistence operations required by the application layer.
type OrderRepository interface {
	Create(ctx context.Context, order domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	ListByUser(ctx context.Context, userID string, filter ListFilter) ([]domain.Order, error)
	CountByUser(ctx context.Context, userID string) (int, error)
	// ListAll pages through every user's orders for management views.
	ListAll(ctx context.Context, filter ListFilter) ([]domain.Order, error)
	CountAll(ctx context.Context) (int, error)
	// UpdateStatus moves an order from expect to next as a single
	// conditional update, so racing transitions cannot both win.
	UpdateStatus(ctx context.Context, id string, expect, next domain.Status) error
}

// ListFilter narrows list queries by pagination. Pagination is 1-based.
type ListFilter struct {
	Page     int
	PageSize int
}

func (f ListFilter) Normalize() ListFilter {
	if f.Page <= 0 {
		f.Page = 1
	}
	if f.PageSize <= 0 || f.PageSize > 100 {
		f.PageSize = 10
	}
	return f
}
