package coupon

import "context"

// Repository exposes coupon persistence. Redeem and Refund must be atomic
// conditional updates on the usage counter.
type Repository interface {
	Create(ctx context.Context, c Coupon) error
	GetByCode(ctx context.Context, code string) (*Coupon, error)
	List(ctx context.Context, page, pageSize int) ([]Coupon, error)
	Count(ctx context.Context) (int, error)
	Update(ctx context.Context, c Coupon) error
	Delete(ctx context.Context, code string) error

	// Redeem increments usage_count iff the limit has not been reached at
	// the moment of the update. Returns ErrLimitReached otherwise.
	Redeem(ctx context.Context, code string) error
	// Refund decrements usage_count, compensating an aborted checkout.
	Refund(ctx context.Context, code string) error
}
