package coupon

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	TypePercentage DiscountType = "percentage"
	TypeFixed      DiscountType = "fixed"
)

var (
	ErrNotFound     = errors.New("coupon not found")
	ErrInactive     = errors.New("coupon is not active")
	ErrExpired      = errors.New("coupon has expired")
	ErrLimitReached = errors.New("coupon usage limit reached")
	ErrBelowMinimum = errors.New("below minimum purchase amount")
)

// Coupon is a discount code. Codes are case-insensitive and stored uppercase.
type Coupon struct {
	ID            string           `json:"id"`
	Code          string           `json:"code"`
	DiscountType  DiscountType     `json:"discount_type"`
	DiscountValue decimal.Decimal  `json:"discount_value"`
	MinPurchase   decimal.Decimal  `json:"min_purchase"`
	MaxDiscount   *decimal.Decimal `json:"max_discount,omitempty"`
	StartDate     time.Time        `json:"start_date"`
	EndDate       *time.Time       `json:"end_date,omitempty"`
	UsageLimit    *int             `json:"usage_limit,omitempty"`
	UsageCount    int              `json:"usage_count"`
	IsActive      bool             `json:"is_active"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// NormalizeCode maps user input onto the stored representation.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate ensures the coupon definition itself is well formed.
func (c Coupon) Validate() error {
	if NormalizeCode(c.Code) == "" {
		return errors.New("code is required")
	}
	if c.DiscountType != TypePercentage && c.DiscountType != TypeFixed {
		return fmt.Errorf("discount_type must be %q or %q", TypePercentage, TypeFixed)
	}
	if c.DiscountType == TypePercentage {
		if c.DiscountValue.IsNegative() || c.DiscountValue.GreaterThan(decimal.NewFromInt(100)) {
			return errors.New("percentage discount_value must be between 0 and 100")
		}
	} else if c.DiscountValue.IsNegative() {
		return errors.New("fixed discount_value must not be negative")
	}
	if c.MinPurchase.IsNegative() {
		return errors.New("min_purchase must not be negative")
	}
	if c.EndDate != nil && c.EndDate.Before(c.StartDate) {
		return errors.New("end_date must not precede start_date")
	}
	if c.UsageLimit != nil && *c.UsageLimit <= 0 {
		return errors.New("usage_limit must be positive")
	}
	return nil
}

// Redeemable checks whether the coupon can be applied to a purchase of the
// given total. Checks run in a fixed order; the first failure is returned.
func (c Coupon) Redeemable(total decimal.Decimal) error {
	if !c.IsActive {
		return ErrInactive
	}
	if c.EndDate != nil && time.Now().UTC().After(*c.EndDate) {
		return ErrExpired
	}
	if c.UsageLimit != nil && c.UsageCount >= *c.UsageLimit {
		return ErrLimitReached
	}
	if total.LessThan(c.MinPurchase) {
		return fmt.Errorf("%w: minimum purchase amount of %s required", ErrBelowMinimum, c.MinPurchase.String())
	}
	return nil
}

// Discount computes the discount amount for the given total. Percentage
// discounts are capped at MaxDiscount when set. Fixed discounts are clamped
// to the total so an order can never go negative.
func (c Coupon) Discount(total decimal.Decimal) decimal.Decimal {
	if c.DiscountType == TypePercentage {
		discount := total.Mul(c.DiscountValue).Div(decimal.NewFromInt(100))
		if c.MaxDiscount != nil && discount.GreaterThan(*c.MaxDiscount) {
			discount = *c.MaxDiscount
		}
		return discount
	}

	if c.DiscountValue.GreaterThan(total) {
		return total
	}
	return c.DiscountValue
}
