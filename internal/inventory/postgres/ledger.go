package postgres

import (
	"context"
	"fmt"

	"github.com/dvalchev/storefront/internal/inventory"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger implements stock reservation against the products table using
// conditional updates, so two checkouts racing for the last unit cannot
// both succeed.
type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Reserve(ctx context.Context, productID string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = now()
		WHERE id = $1 AND stock >= $2
	`

	result, err := l.pool.Exec(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("reserve stock: %w", err)
	}

	if result.RowsAffected() == 0 {
		var exists bool
		if err := l.pool.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check product existence: %w", err)
		}
		if !exists {
			return inventory.ErrProductNotFound
		}
		return inventory.ErrInsufficientStock
	}

	return nil
}

func (l *Ledger) Release(ctx context.Context, productID string, quantity int) error {
	query := `
		UPDATE products
		SET stock = stock + $2, updated_at = now()
		WHERE id = $1
	`

	result, err := l.pool.Exec(ctx, query, productID, quantity)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if result.RowsAffected() == 0 {
		return inventory.ErrProductNotFound
	}

	return nil
}
