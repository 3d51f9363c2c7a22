package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dvalchev/storefront/internal/cart"
	"github.com/dvalchev/storefront/internal/catalog"
	"github.com/dvalchev/storefront/internal/coupon"
	"github.com/dvalchev/storefront/internal/inventory"
	"github.com/dvalchev/storefront/internal/notify"
	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckoutCommand converts a user's cart into an order.
type CheckoutCommand struct {
	UserID     string
	Address    domain.Address
	CouponCode string
}

func (c CheckoutCommand) Validate() error {
	if c.UserID == "" {
		return errors.New("user_id is required")
	}
	return c.Address.Validate()
}

// CommandHandler executes a checkout attempt.
type CommandHandler interface {
	Handle(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error)
}

// CheckoutHandler runs the checkout protocol: snapshot the cart at frozen
// prices, reserve stock, redeem the coupon, persist the order, clear the
// cart, notify. Any failure before the order exists compensates fully, so
// inventory and coupon state end exactly as they began.
type CheckoutHandler struct {
	carts      cart.Repository
	products   catalog.Reader
	stock      inventory.Ledger
	coupons    coupon.Repository
	orders     ports.OrderRepository
	dispatcher notify.Dispatcher
}

func NewCheckoutHandler(
	carts cart.Repository,
	products catalog.Reader,
	stock inventory.Ledger,
	coupons coupon.Repository,
	orders ports.OrderRepository,
	dispatcher notify.Dispatcher,
) *CheckoutHandler {
	return &CheckoutHandler{
		carts:      carts,
		products:   products,
		stock:      stock,
		coupons:    coupons,
		orders:     orders,
		dispatcher: dispatcher,
	}
}

func (h *CheckoutHandler) Handle(ctx context.Context, cmd CheckoutCommand) (*domain.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	userCart, err := h.carts.GetByUser(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, cart.ErrNotFound) {
			return nil, cart.ErrEmpty
		}
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if userCart.IsEmpty() {
		return nil, cart.ErrEmpty
	}

	// Freeze unit prices from the current catalog. These never change
	// again, no matter what happens to catalog prices later.
	items := make([]domain.Item, 0, len(userCart.Items))
	subtotal := decimal.Zero
	for _, line := range userCart.Items {
		product, err := h.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("snapshot product %s: %w", line.ProductID, err)
		}
		items = append(items, domain.Item{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: product.Price,
		})
		subtotal = subtotal.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	// Reserve stock item by item. A single failure releases everything
	// reserved so far and aborts; no partial order is ever created.
	reserved := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if err := h.stock.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			h.releaseAll(ctx, reserved)
			if errors.Is(err, inventory.ErrInsufficientStock) {
				return nil, fmt.Errorf("%w: product %s", inventory.ErrInsufficientStock, item.ProductID)
			}
			return nil, fmt.Errorf("reserve product %s: %w", item.ProductID, err)
		}
		reserved = append(reserved, item)
	}

	total := subtotal
	couponCode := ""
	if cmd.CouponCode != "" {
		couponCode = coupon.NormalizeCode(cmd.CouponCode)

		applied, err := h.coupons.GetByCode(ctx, couponCode)
		if err != nil {
			h.releaseAll(ctx, reserved)
			return nil, err
		}
		if err := applied.Redeemable(subtotal); err != nil {
			h.releaseAll(ctx, reserved)
			return nil, err
		}

		// Redeem re-checks the limit atomically; a concurrent redemption
		// taking the last slot surfaces here, not as an oversold coupon.
		if err := h.coupons.Redeem(ctx, couponCode); err != nil {
			h.releaseAll(ctx, reserved)
			return nil, err
		}

		total = subtotal.Sub(applied.Discount(subtotal))
	}

	now := time.Now().UTC()
	order := domain.Order{
		ID:          uuid.NewString(),
		UserID:      cmd.UserID,
		Items:       items,
		Address:     cmd.Address,
		TotalAmount: total,
		Status:      domain.StatusPending,
		CouponCode:  couponCode,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := order.Validate(); err != nil {
		h.compensate(ctx, reserved, couponCode)
		return nil, err
	}

	if err := h.orders.Create(ctx, order); err != nil {
		h.compensate(ctx, reserved, couponCode)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	// The order exists; clearing the cart is best-effort from here on.
	// A version conflict means the user touched the cart mid-checkout.
	userCart.Clear()
	userCart.UpdatedAt = time.Now().UTC()
	if err := h.carts.Save(ctx, userCart); err != nil && !errors.Is(err, cart.ErrVersionConflict) {
		return &order, fmt.Errorf("order created but cart not cleared: %w", err)
	}

	h.dispatcher.OrderCreated(ctx, &order)

	return &order, nil
}

func (h *CheckoutHandler) releaseAll(ctx context.Context, reserved []domain.Item) {
	for _, item := range reserved {
		_ = h.stock.Release(ctx, item.ProductID, item.Quantity)
	}
}

func (h *CheckoutHandler) compensate(ctx context.Context, reserved []domain.Item, couponCode string) {
	h.releaseAll(ctx, reserved)
	if couponCode != "" {
		_ = h.coupons.Refund(ctx, couponCode)
	}
}
