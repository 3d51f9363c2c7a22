package inventory

import (
	"context"
	"errors"
)

var (
	// ErrInsufficientStock is a recoverable condition: the caller must
	// abort (and compensate) the surrounding operation, not crash.
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
)

// Ledger owns per-product stock counts. Reserve and Release must be atomic
// conditional updates so concurrent checkouts cannot lose updates.
type Ledger interface {
	// Reserve decrements stock by quantity iff current stock >= quantity.
	Reserve(ctx context.Context, productID string, quantity int) error
	// Release increments stock by quantity. Compensating action; commutative.
	Release(ctx context.Context, productID string, quantity int) error
}
