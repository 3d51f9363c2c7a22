package commands_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvalchev/storefront/internal/cart"
	cartmemory "github.com/dvalchev/storefront/internal/cart/memory"
	"github.com/dvalchev/storefront/internal/catalog"
	catalogmemory "github.com/dvalchev/storefront/internal/catalog/memory"
	"github.com/dvalchev/storefront/internal/coupon"
	couponmemory "github.com/dvalchev/storefront/internal/coupon/memory"
	"github.com/dvalchev/storefront/internal/inventory"
	inventorymemory "github.com/dvalchev/storefront/internal/inventory/memory"
	"github.com/dvalchev/storefront/internal/notify"
	ordersmemory "github.com/dvalchev/storefront/internal/orders/adapters/memory"
	"github.com/dvalchev/storefront/internal/orders/app/commands"
	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
	"github.com/shopspring/decimal"
)

type fixture struct {
	carts    *cartmemory.Repository
	products *catalogmemory.Repository
	ledger   *inventorymemory.Ledger
	coupons  *couponmemory.Repository
	orders   *ordersmemory.Repository
	jobs     *notify.MemoryQueue
	rooms    *notify.MemoryBroadcaster
	handler  *commands.CheckoutHandler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		carts:    cartmemory.NewRepository(),
		products: catalogmemory.NewRepository(),
		ledger:   inventorymemory.NewLedger(),
		coupons:  couponmemory.NewRepository(),
		orders:   ordersmemory.NewRepository(),
		jobs:     notify.NewMemoryQueue(),
		rooms:    notify.NewMemoryBroadcaster(),
	}

	dispatcher := notify.NewDispatcher(f.jobs, f.rooms, discardLogger())
	f.handler = commands.NewCheckoutHandler(f.carts, f.products, f.ledger, f.coupons, f.orders, dispatcher)
	return f
}

func (f *fixture) seedProduct(t *testing.T, id string, price float64, stock int) {
	t.Helper()
	err := f.products.Create(context.Background(), catalog.Product{
		ID:        id,
		Name:      id,
		Price:     decimal.NewFromFloat(price),
		Stock:     stock,
		CreatedAt: time.Now(),
	})
	if err != nil {
		t.Fatalf("seed product %s: %v", id, err)
	}
	f.ledger.Seed(id, stock)
}

func (f *fixture) seedCart(t *testing.T, userID string, items ...cart.Item) {
	t.Helper()
	now := time.Now().UTC()
	err := f.carts.Create(context.Background(), &cart.Cart{
		ID:        "cart-" + userID,
		UserID:    userID,
		Items:     items,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("seed cart for %s: %v", userID, err)
	}
}

func validCommand(userID string) commands.CheckoutCommand {
	return commands.CheckoutCommand{
		UserID: userID,
		Address: domain.Address{
			Street:  "1 Main St",
			City:    "Springfield",
			State:   "IL",
			Country: "US",
			ZipCode: "62701",
		},
	}
}

func TestCheckoutCreatesPendingOrder(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 10.0, 5)
	f.seedProduct(t, "p2", 5.0, 3)
	f.seedCart(t, "u1",
		cart.Item{ProductID: "p1", Quantity: 2},
		cart.Item{ProductID: "p2", Quantity: 1},
	)

	order, err := f.handler.Handle(context.Background(), validCommand("u1"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	if order.Status != domain.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if !order.TotalAmount.Equal(decimal.NewFromFloat(25.0)) {
		t.Errorf("total = %s, want 25", order.TotalAmount)
	}
	if len(order.Items) != 2 {
		t.Errorf("items = %d, want 2", len(order.Items))
	}

	if got := f.ledger.Stock("p1"); got != 3 {
		t.Errorf("p1 stock = %d, want 3", got)
	}
	if got := f.ledger.Stock("p2"); got != 2 {
		t.Errorf("p2 stock = %d, want 2", got)
	}

	c, err := f.carts.GetByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if !c.IsEmpty() {
		t.Error("cart was not cleared")
	}

	jobs := f.jobs.Jobs()
	if len(jobs) != 1 || jobs[0].Kind != notify.EmailOrderConfirmation {
		t.Errorf("expected one confirmation job, got %+v", jobs)
	}
	messages := f.rooms.Messages()
	if len(messages) != 1 || messages[0].Room != notify.AdminRoom {
		t.Errorf("expected one admin broadcast, got %+v", messages)
	}
}

func TestCheckoutEmptyCart(t *testing.T) {
	f := newFixture(t)
	f.seedCart(t, "u1")

	_, err := f.handler.Handle(context.Background(), validCommand("u1"))
	if !errors.Is(err, cart.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got: %v", err)
	}
}

func TestCheckoutMissingCart(t *testing.T) {
	f := newFixture(t)

	_, err := f.handler.Handle(context.Background(), validCommand("nobody"))
	if !errors.Is(err, cart.ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got: %v", err)
	}
}

func TestCheckoutInvalidAddress(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 10.0, 5)
	f.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 1})

	cmd := validCommand("u1")
	cmd.Address.ZipCode = ""

	if _, err := f.handler.Handle(context.Background(), cmd); err == nil {
		t.Fatal("expected address validation error, got nil")
	}
	if got := f.ledger.Stock("p1"); got != 5 {
		t.Errorf("stock = %d, want untouched 5", got)
	}
}

func TestCheckoutReleasesOnInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 10.0, 5)
	f.seedProduct(t, "p2", 5.0, 0)
	f.seedCart(t, "u1",
		cart.Item{ProductID: "p1", Quantity: 2},
		cart.Item{ProductID: "p2", Quantity: 1},
	)

	_, err := f.handler.Handle(context.Background(), validCommand("u1"))
	if !errors.Is(err, inventory.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got: %v", err)
	}

	// The first reservation is rolled back; no partial order exists.
	if got := f.ledger.Stock("p1"); got != 5 {
		t.Errorf("p1 stock = %d, want restored 5", got)
	}
	count, err := f.orders.CountByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("count orders: %v", err)
	}
	if count != 0 {
		t.Errorf("expected no orders, got %d", count)
	}

	c, err := f.carts.GetByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("get cart: %v", err)
	}
	if len(c.Items) != 2 {
		t.Error("cart must be unchanged after a failed checkout")
	}
}

func TestCheckoutAppliesPercentageCoupon(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100.0, 10)
	f.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 3})

	maxDiscount := decimal.NewFromInt(20)
	err := f.coupons.Create(context.Background(), coupon.Coupon{
		ID:            "c1",
		Code:          "SAVE10",
		DiscountType:  coupon.TypePercentage,
		DiscountValue: decimal.NewFromInt(10),
		MinPurchase:   decimal.NewFromInt(50),
		MaxDiscount:   &maxDiscount,
		StartDate:     time.Now().Add(-time.Hour),
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	cmd := validCommand("u1")
	cmd.CouponCode = "save10"

	order, err := f.handler.Handle(context.Background(), cmd)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// Subtotal 300, 10% capped at 20.
	if !order.TotalAmount.Equal(decimal.NewFromInt(280)) {
		t.Errorf("total = %s, want 280", order.TotalAmount)
	}
	if order.CouponCode != "SAVE10" {
		t.Errorf("coupon code = %q, want SAVE10", order.CouponCode)
	}

	c, err := f.coupons.GetByCode(context.Background(), "SAVE10")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if c.UsageCount != 1 {
		t.Errorf("usage count = %d, want 1", c.UsageCount)
	}
}

func TestCheckoutReleasesStockOnCouponFailure(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 10.0, 5)
	f.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 4})

	err := f.coupons.Create(context.Background(), coupon.Coupon{
		ID:            "c1",
		Code:          "BIG50",
		DiscountType:  coupon.TypePercentage,
		DiscountValue: decimal.NewFromInt(50),
		MinPurchase:   decimal.NewFromInt(100),
		StartDate:     time.Now().Add(-time.Hour),
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	cmd := validCommand("u1")
	cmd.CouponCode = "BIG50"

	// Subtotal 40 is below the coupon minimum of 100.
	_, err = f.handler.Handle(context.Background(), cmd)
	if !errors.Is(err, coupon.ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got: %v", err)
	}

	if got := f.ledger.Stock("p1"); got != 5 {
		t.Errorf("stock = %d, want restored 5", got)
	}
	c, err := f.coupons.GetByCode(context.Background(), "BIG50")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if c.UsageCount != 0 {
		t.Errorf("usage count = %d, want 0", c.UsageCount)
	}
}

func TestCheckoutUnknownCouponReleasesStock(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 10.0, 5)
	f.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 1})

	cmd := validCommand("u1")
	cmd.CouponCode = "GHOST"

	_, err := f.handler.Handle(context.Background(), cmd)
	if !errors.Is(err, coupon.ErrNotFound) {
		t.Fatalf("expected coupon.ErrNotFound, got: %v", err)
	}
	if got := f.ledger.Stock("p1"); got != 5 {
		t.Errorf("stock = %d, want restored 5", got)
	}
}

func TestCheckoutFreezesPrices(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 10.0, 5)
	f.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 2})

	order, err := f.handler.Handle(context.Background(), validCommand("u1"))
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	// A later price change must not touch the persisted order.
	updated := catalog.Product{ID: "p1", Name: "p1", Price: decimal.NewFromFloat(99.0), Stock: 5}
	if err := f.products.Update(context.Background(), updated); err != nil {
		t.Fatalf("update price: %v", err)
	}

	stored, err := f.orders.GetByID(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("get order: %v", err)
	}
	if !stored.TotalAmount.Equal(decimal.NewFromFloat(20.0)) {
		t.Errorf("stored total = %s, want frozen 20", stored.TotalAmount)
	}
	if !stored.Items[0].UnitPrice.Equal(decimal.NewFromFloat(10.0)) {
		t.Errorf("stored unit price = %s, want frozen 10", stored.Items[0].UnitPrice)
	}
}

func TestConcurrentCheckoutsLastUnit(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 10.0, 1)
	f.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 1})
	f.seedCart(t, "u2", cart.Item{ProductID: "p1", Quantity: 1})

	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		orders []*domain.Order
		fails  []error
	)
	for _, user := range []string{"u1", "u2"} {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			order, err := f.handler.Handle(context.Background(), validCommand(userID))
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fails = append(fails, err)
				return
			}
			orders = append(orders, order)
		}(user)
	}
	wg.Wait()

	if len(orders) != 1 {
		t.Fatalf("%d checkouts succeeded, want exactly 1", len(orders))
	}
	if len(fails) != 1 || !errors.Is(fails[0], inventory.ErrInsufficientStock) {
		t.Fatalf("expected one ErrInsufficientStock failure, got: %v", fails)
	}
	if got := f.ledger.Stock("p1"); got != 0 {
		t.Errorf("final stock = %d, want 0", got)
	}
}

func TestCheckoutPersistFailureCompensates(t *testing.T) {
	f := newFixture(t)
	f.seedProduct(t, "p1", 100.0, 5)
	f.seedCart(t, "u1", cart.Item{ProductID: "p1", Quantity: 1})

	err := f.coupons.Create(context.Background(), coupon.Coupon{
		ID:            "c1",
		Code:          "TEN",
		DiscountType:  coupon.TypeFixed,
		DiscountValue: decimal.NewFromInt(10),
		StartDate:     time.Now().Add(-time.Hour),
		IsActive:      true,
	})
	if err != nil {
		t.Fatalf("seed coupon: %v", err)
	}

	failing := &failingOrderRepo{}
	dispatcher := notify.NewDispatcher(f.jobs, f.rooms, discardLogger())
	handler := commands.NewCheckoutHandler(f.carts, f.products, f.ledger, f.coupons, failing, dispatcher)

	cmd := validCommand("u1")
	cmd.CouponCode = "TEN"

	if _, err := handler.Handle(context.Background(), cmd); err == nil {
		t.Fatal("expected persist error, got nil")
	}

	// Both the reservation and the redemption are compensated.
	if got := f.ledger.Stock("p1"); got != 5 {
		t.Errorf("stock = %d, want restored 5", got)
	}
	c, err := f.coupons.GetByCode(context.Background(), "TEN")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if c.UsageCount != 0 {
		t.Errorf("usage count = %d, want refunded 0", c.UsageCount)
	}
}

type failingOrderRepo struct{}

func (*failingOrderRepo) Create(context.Context, domain.Order) error {
	return errors.New("storage unavailable")
}

func (*failingOrderRepo) GetByID(context.Context, string) (*domain.Order, error) {
	return nil, ports.ErrNotFound
}

func (*failingOrderRepo) ListByUser(context.Context, string, ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (*failingOrderRepo) CountByUser(context.Context, string) (int, error) {
	return 0, nil
}

func (*failingOrderRepo) ListAll(context.Context, ports.ListFilter) ([]domain.Order, error) {
	return nil, nil
}

func (*failingOrderRepo) CountAll(context.Context) (int, error) {
	return 0, nil
}

func (*failingOrderRepo) UpdateStatus(context.Context, string, domain.Status, domain.Status) error {
	return nil
}
