package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvalchev/storefront/internal/coupon"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, c coupon.Coupon) error {
	query := `
		INSERT INTO coupons (id, code, discount_type, discount_value, min_purchase, max_discount,
			start_date, end_date, usage_limit, usage_count, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	var maxDiscount *string
	if c.MaxDiscount != nil {
		s := c.MaxDiscount.String()
		maxDiscount = &s
	}

	_, err := r.pool.Exec(ctx, query,
		c.ID,
		coupon.NormalizeCode(c.Code),
		c.DiscountType,
		c.DiscountValue.String(),
		c.MinPurchase.String(),
		maxDiscount,
		c.StartDate,
		c.EndDate,
		c.UsageLimit,
		c.UsageCount,
		c.IsActive,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert coupon: %w", err)
	}

	return nil
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	query := selectColumns + ` FROM coupons WHERE code = $1`

	c, err := scanCoupon(r.pool.QueryRow(ctx, query, coupon.NormalizeCode(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("select coupon: %w", err)
	}

	return c, nil
}

func (r *Repository) List(ctx context.Context, page, pageSize int) ([]coupon.Coupon, error) {
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 10
	}

	query := selectColumns + `
		FROM coupons
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.pool.Query(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("query coupons: %w", err)
	}
	defer rows.Close()

	var coupons []coupon.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("scan coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupons: %w", err)
	}

	return coupons, nil
}

func (r *Repository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM coupons`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count coupons: %w", err)
	}
	return count, nil
}

func (r *Repository) Update(ctx context.Context, c coupon.Coupon) error {
	query := `
		UPDATE coupons
		SET discount_type = $2, discount_value = $3, min_purchase = $4, max_discount = $5,
			start_date = $6, end_date = $7, usage_limit = $8, is_active = $9, updated_at = $10
		WHERE code = $1
	`

	var maxDiscount *string
	if c.MaxDiscount != nil {
		s := c.MaxDiscount.String()
		maxDiscount = &s
	}

	result, err := r.pool.Exec(ctx, query,
		coupon.NormalizeCode(c.Code),
		c.DiscountType,
		c.DiscountValue.String(),
		c.MinPurchase.String(),
		maxDiscount,
		c.StartDate,
		c.EndDate,
		c.UsageLimit,
		c.IsActive,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("update coupon: %w", err)
	}
	if result.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}

	return nil
}

func (r *Repository) Delete(ctx context.Context, code string) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM coupons WHERE code = $1`, coupon.NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if result.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Redeem re-checks the usage limit inside the update itself, closing the
// race between a successful validate and the redemption.
func (r *Repository) Redeem(ctx context.Context, code string) error {
	query := `
		UPDATE coupons
		SET usage_count = usage_count + 1, updated_at = now()
		WHERE code = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)
	`

	result, err := r.pool.Exec(ctx, query, coupon.NormalizeCode(code))
	if err != nil {
		return fmt.Errorf("redeem coupon: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := r.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM coupons WHERE code = $1)`, coupon.NormalizeCode(code),
		).Scan(&exists); err != nil {
			return fmt.Errorf("check coupon existence: %w", err)
		}
		if !exists {
			return coupon.ErrNotFound
		}
		return coupon.ErrLimitReached
	}

	return nil
}

func (r *Repository) Refund(ctx context.Context, code string) error {
	query := `
		UPDATE coupons
		SET usage_count = usage_count - 1, updated_at = now()
		WHERE code = $1 AND usage_count > 0
	`

	if _, err := r.pool.Exec(ctx, query, coupon.NormalizeCode(code)); err != nil {
		return fmt.Errorf("refund coupon: %w", err)
	}

	return nil
}

const selectColumns = `
	SELECT id, code, discount_type, discount_value::text, min_purchase::text, max_discount::text,
		start_date, end_date, usage_limit, usage_count, is_active, created_at, updated_at`

func scanCoupon(row pgx.Row) (*coupon.Coupon, error) {
	var (
		c           coupon.Coupon
		value       string
		minPurchase string
		maxDiscount *string
	)
	if err := row.Scan(
		&c.ID,
		&c.Code,
		&c.DiscountType,
		&value,
		&minPurchase,
		&maxDiscount,
		&c.StartDate,
		&c.EndDate,
		&c.UsageLimit,
		&c.UsageCount,
		&c.IsActive,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}

	var err error
	if c.DiscountValue, err = decimal.NewFromString(value); err != nil {
		return nil, fmt.Errorf("parse discount_value %q: %w", value, err)
	}
	if c.MinPurchase, err = decimal.NewFromString(minPurchase); err != nil {
		return nil, fmt.Errorf("parse min_purchase %q: %w", minPurchase, err)
	}
	if maxDiscount != nil {
		parsed, err := decimal.NewFromString(*maxDiscount)
		if err != nil {
			return nil, fmt.Errorf("parse max_discount %q: %w", *maxDiscount, err)
		}
		c.MaxDiscount = &parsed
	}

	return &c, nil
}
