package cart

import "context"

// Repository persists carts. Save must apply optimistic concurrency: the
// update succeeds only when the stored version matches the cart's version,
// and the version is bumped on success.
type Repository interface {
	GetByUser(ctx context.Context, userID string) (*Cart, error)
	Create(ctx context.Context, c *Cart) error
	Save(ctx context.Context, c *Cart) error
}
