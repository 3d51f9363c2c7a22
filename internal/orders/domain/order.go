package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status captures the lifecycle of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

var ErrInvalidTransition = errors.New("invalid status transition")

// transitions is the only legal movement through the lifecycle.
var transitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, error) {
	status := Status(raw)
	if _, ok := transitions[status]; !ok {
		return "", fmt.Errorf("unknown status %q", raw)
	}
	return status, nil
}

// CanTransition reports whether moving from one status to another is legal.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Address is a shipping destination. All fields are required.
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zip_code"`
}

func (a Address) Validate() error {
	fields := map[string]string{
		"street":   a.Street,
		"city":     a.City,
		"state":    a.State,
		"country":  a.Country,
		"zip_code": a.ZipCode,
	}
	for name, value := range fields {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("shipping address %s is required", name)
		}
	}
	return nil
}

// Item is an order line. UnitPrice is frozen at order creation and never
// recomputed from the catalog.
type Item struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is an immutable purchase record; only Status and UpdatedAt move
// after creation, and only through legal transitions.
type Order struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	Items       []Item          `json:"items"`
	Address     Address         `json:"shipping_address"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
	CouponCode  string          `json:"coupon_code,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.UserID) == "" {
		return errors.New("user_id is required")
	}
	if len(o.Items) == 0 {
		return errors.New("order must contain at least one item")
	}
	for _, item := range o.Items {
		if item.Quantity <= 0 {
			return fmt.Errorf("item %s quantity must be positive", item.ProductID)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("item %s unit price must not be negative", item.ProductID)
		}
	}
	if o.TotalAmount.IsNegative() {
		return errors.New("total_amount must not be negative")
	}
	return o.Address.Validate()
}

// IsTerminal indicates whether the order is in a terminal state.
func (o Order) IsTerminal() bool {
	return len(transitions[o.Status]) == 0
}

// CanCancel reports whether cancellation is still legal.
func (o Order) CanCancel() bool {
	return CanTransition(o.Status, StatusCancelled)
}
