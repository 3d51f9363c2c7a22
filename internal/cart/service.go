package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvalchev/storefront/internal/catalog"
	"github.com/dvalchev/storefront/internal/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service implements the cart aggregate against the live catalog. Stock
// checks here are advisory snapshots; nothing is reserved until checkout.
type Service struct {
	repo     Repository
	products catalog.Reader
}

func NewService(repo Repository, products catalog.Reader) *Service {
	return &Service{repo: repo, products: products}
}

// GetOrCreate returns the user's cart, creating an empty one on first access.
func (s *Service) GetOrCreate(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.repo.GetByUser(ctx, userID)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	c = &Cart{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// AddItem merges quantity into the cart after checking the product exists
// and current stock covers the merged line.
func (s *Service) AddItem(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	if product.Stock < c.Quantity(productID)+quantity {
		return nil, fmt.Errorf("%w: product %s", inventory.ErrInsufficientStock, productID)
	}

	c.Merge(productID, quantity)
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateQuantity replaces a line's quantity outright.
func (s *Service) UpdateQuantity(ctx context.Context, userID, productID string, quantity int) (*Cart, error) {
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Stock < quantity {
		return nil, fmt.Errorf("%w: product %s", inventory.ErrInsufficientStock, productID)
	}

	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !c.SetQuantity(productID, quantity) {
		return nil, ErrItemNotFound
	}

	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// RemoveItem drops a line. Removing an absent product is not an error.
func (s *Service) RemoveItem(ctx context.Context, userID, productID string) (*Cart, error) {
	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.Remove(productID)
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Clear empties the cart.
func (s *Service) Clear(ctx context.Context, userID string) (*Cart, error) {
	c, err := s.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	c.Clear()
	if err := s.save(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Total sums quantity times the current catalog price for every line.
// Cart totals are always quoted live, unlike frozen order totals.
func (s *Service) Total(ctx context.Context, c *Cart) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, item := range c.Items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				// Deleted products no longer contribute to the total.
				continue
			}
			return decimal.Zero, err
		}
		total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}

// ViewItem is a cart line joined with its catalog entry.
type ViewItem struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// View is the API shape of a cart: lines with product details plus the
// live total.
type View struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Items     []ViewItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

func (s *Service) BuildView(ctx context.Context, c *Cart) (*View, error) {
	view := &View{
		ID:        c.ID,
		UserID:    c.UserID,
		Items:     []ViewItem{},
		Total:     decimal.Zero,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}

	for _, item := range c.Items {
		product, err := s.products.GetByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrNotFound) {
				continue
			}
			return nil, err
		}
		view.Items = append(view.Items, ViewItem{Product: *product, Quantity: item.Quantity})
		view.Total = view.Total.Add(product.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}

	return view, nil
}

func (s *Service) save(ctx context.Context, c *Cart) error {
	c.UpdatedAt = time.Now().UTC()
	return s.repo.Save(ctx, c)
}
