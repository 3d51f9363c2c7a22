package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists orders across the orders and order_items tables.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Create(ctx context.Context, order domain.Order) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	insertOrder := `
		INSERT INTO orders (id, user_id, street, city, state, country, zip_code,
			total_amount, status, coupon_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	var couponCode *string
	if order.CouponCode != "" {
		couponCode = &order.CouponCode
	}

	_, err = tx.Exec(ctx, insertOrder,
		order.ID,
		order.UserID,
		order.Address.Street,
		order.Address.City,
		order.Address.State,
		order.Address.Country,
		order.Address.ZipCode,
		order.TotalAmount.String(),
		order.Status,
		couponCode,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	insertItem := `
		INSERT INTO order_items (order_id, product_id, position, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5)
	`

	for position, item := range order.Items {
		_, err = tx.Exec(ctx, insertItem,
			order.ID,
			item.ProductID,
			position,
			item.Quantity,
			item.UnitPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("insert order item: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

const selectOrderColumns = `
	SELECT id, user_id, street, city, state, country, zip_code,
		total_amount::text, status, coupon_code, created_at, updated_at
`

func (r *Repository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	query := selectOrderColumns + ` FROM orders WHERE id = $1`

	order, err := scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ports.ErrNotFound
		}
		return nil, fmt.Errorf("select order: %w", err)
	}

	if err := r.loadItems(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID string, filter ports.ListFilter) ([]domain.Order, error) {
	filter = filter.Normalize()

	query := selectOrderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	return r.queryOrders(ctx, query, userID, filter.PageSize, (filter.Page-1)*filter.PageSize)
}

func (r *Repository) ListAll(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	filter = filter.Normalize()

	query := selectOrderColumns + `
		FROM orders
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`

	return r.queryOrders(ctx, query, filter.PageSize, (filter.Page-1)*filter.PageSize)
}

func (r *Repository) queryOrders(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}

	return orders, nil
}

func (r *Repository) CountByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func (r *Repository) CountAll(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, id string, expect, next domain.Status) error {
	query := `
		UPDATE orders
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
	`

	tag, err := r.pool.Exec(ctx, query, id, expect, next)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check order existence: %w", err)
		}
		if !exists {
			return ports.ErrNotFound
		}
		return ports.ErrStatusConflict
	}

	return nil
}

func (r *Repository) loadItems(ctx context.Context, order *domain.Order) error {
	query := `
		SELECT product_id, quantity, unit_price::text
		FROM order_items
		WHERE order_id = $1
		ORDER BY position
	`

	rows, err := r.pool.Query(ctx, query, order.ID)
	if err != nil {
		return fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		var (
			item  domain.Item
			price string
		)
		if err := rows.Scan(&item.ProductID, &item.Quantity, &price); err != nil {
			return fmt.Errorf("scan order item: %w", err)
		}
		item.UnitPrice, err = decimal.NewFromString(price)
		if err != nil {
			return fmt.Errorf("parse unit price: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate order items: %w", err)
	}

	order.Items = items
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		order      domain.Order
		total      string
		couponCode *string
	)

	err := row.Scan(
		&order.ID,
		&order.UserID,
		&order.Address.Street,
		&order.Address.City,
		&order.Address.State,
		&order.Address.Country,
		&order.Address.ZipCode,
		&total,
		&order.Status,
		&couponCode,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	order.TotalAmount, err = decimal.NewFromString(total)
	if err != nil {
		return nil, fmt.Errorf("parse total amount: %w", err)
	}
	if couponCode != nil {
		order.CouponCode = *couponCode
	}

	return &order, nil
}
