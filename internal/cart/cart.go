package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("cart not found")
	ErrItemNotFound    = errors.New("item not found in cart")
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrEmpty           = errors.New("cart is empty")
	ErrVersionConflict = errors.New("cart was modified concurrently")
)

// Item is one line of a cart. A cart holds at most one line per product.
type Item struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// Cart holds a user's pending items. It is created lazily on first access
// and emptied, never deleted. Version backs optimistic concurrency on
// writes; line order is insertion order and matters for display only.
type Cart struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Items     []Item    `json:"items"`
	Version   int       `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Quantity returns the quantity for a product, zero when absent.
func (c *Cart) Quantity(productID string) int {
	for _, item := range c.Items {
		if item.ProductID == productID {
			return item.Quantity
		}
	}
	return 0
}

// Merge adds quantity to an existing line or appends a new one.
func (c *Cart) Merge(productID string, quantity int) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items[i].Quantity += quantity
			return
		}
	}
	c.Items = append(c.Items, Item{ProductID: productID, Quantity: quantity})
}

// SetQuantity replaces a line's quantity outright. Reports whether the
// line existed.
func (c *Cart) SetQuantity(productID string, quantity int) bool {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items[i].Quantity = quantity
			return true
		}
	}
	return false
}

// Remove drops a line if present. Idempotent.
func (c *Cart) Remove(productID string) {
	for i, item := range c.Items {
		if item.ProductID == productID {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			return
		}
	}
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}
