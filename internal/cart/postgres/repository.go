package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dvalchev/storefront/internal/cart"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository stores one row per user with the line items as a JSONB
// document, so a cart write is a single-row update guarded by a version
// column.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) GetByUser(ctx context.Context, userID string) (*cart.Cart, error) {
	query := `
		SELECT id, user_id, items, version, created_at, updated_at
		FROM carts
		WHERE user_id = $1
	`

	var (
		c        cart.Cart
		rawItems []byte
	)
	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&c.ID,
		&c.UserID,
		&rawItems,
		&c.Version,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrNotFound
		}
		return nil, fmt.Errorf("select cart: %w", err)
	}

	if err := json.Unmarshal(rawItems, &c.Items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}

	return &c, nil
}

func (r *Repository) Create(ctx context.Context, c *cart.Cart) error {
	items, err := encodeItems(c.Items)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO carts (id, user_id, items, version, created_at, updated_at)
		VALUES ($1, $2, $3, 1, $4, $5)
	`

	if _, err := r.pool.Exec(ctx, query, c.ID, c.UserID, items, c.CreatedAt, c.UpdatedAt); err != nil {
		return fmt.Errorf("insert cart: %w", err)
	}

	c.Version = 1
	return nil
}

// Save writes the cart iff the stored version still matches, detecting
// lost updates from concurrent submissions for the same user.
func (r *Repository) Save(ctx context.Context, c *cart.Cart) error {
	items, err := encodeItems(c.Items)
	if err != nil {
		return err
	}

	query := `
		UPDATE carts
		SET items = $3, version = version + 1, updated_at = $4
		WHERE id = $1 AND version = $2
	`

	result, err := r.pool.Exec(ctx, query, c.ID, c.Version, items, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update cart: %w", err)
	}
	if result.RowsAffected() == 0 {
		return cart.ErrVersionConflict
	}

	c.Version++
	return nil
}

func encodeItems(items []cart.Item) ([]byte, error) {
	if items == nil {
		items = []cart.Item{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode cart items: %w", err)
	}
	return encoded, nil
}
