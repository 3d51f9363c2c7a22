package catalog

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("product not found")

// Reader is the slice of the catalog consumed by carts and checkout.
type Reader interface {
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Repository exposes catalog persistence.
type Repository interface {
	Reader
	Create(ctx context.Context, product Product) error
	List(ctx context.Context, filter ListFilter) ([]Product, error)
	Count(ctx context.Context, category string) (int, error)
	Update(ctx context.Context, product Product) error
	Delete(ctx context.Context, id string) error
}

// ListFilter narrows list queries by category and pagination.
type ListFilter struct {
	Category string
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
