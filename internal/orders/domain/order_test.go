package domain_test

import (
	"testing"
	"time"

	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/shopspring/decimal"
)

func validAddress() domain.Address {
	return domain.Address{
		Street:  "1 Main St",
		City:    "Springfield",
		State:   "IL",
		Country: "US",
		ZipCode: "62701",
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from domain.Status
		to   domain.Status
		want bool
	}{
		{"pending to processing", domain.StatusPending, domain.StatusProcessing, true},
		{"pending to cancelled", domain.StatusPending, domain.StatusCancelled, true},
		{"pending to shipped", domain.StatusPending, domain.StatusShipped, false},
		{"pending to delivered", domain.StatusPending, domain.StatusDelivered, false},
		{"processing to shipped", domain.StatusProcessing, domain.StatusShipped, true},
		{"processing to cancelled", domain.StatusProcessing, domain.StatusCancelled, true},
		{"processing to delivered", domain.StatusProcessing, domain.StatusDelivered, false},
		{"shipped to delivered", domain.StatusShipped, domain.StatusDelivered, true},
		{"shipped to cancelled", domain.StatusShipped, domain.StatusCancelled, false},
		{"delivered is terminal", domain.StatusDelivered, domain.StatusProcessing, false},
		{"cancelled is terminal", domain.StatusCancelled, domain.StatusPending, false},
		{"no self transition", domain.StatusPending, domain.StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, raw := range []string{"pending", "processing", "shipped", "delivered", "cancelled"} {
		if _, err := domain.ParseStatus(raw); err != nil {
			t.Errorf("ParseStatus(%q) returned error: %v", raw, err)
		}
	}

	if _, err := domain.ParseStatus("refunded"); err == nil {
		t.Error("expected error for unknown status, got nil")
	}
	if _, err := domain.ParseStatus(""); err == nil {
		t.Error("expected error for empty status, got nil")
	}
}

func TestAddressValidate(t *testing.T) {
	if err := validAddress().Validate(); err != nil {
		t.Fatalf("expected valid address, got: %v", err)
	}

	incomplete := validAddress()
	incomplete.City = "  "
	if err := incomplete.Validate(); err == nil {
		t.Error("expected error for blank city, got nil")
	}
}

func TestOrderValidate(t *testing.T) {
	valid := domain.Order{
		ID:     "order-1",
		UserID: "user-1",
		Items: []domain.Item{
			{ProductID: "p1", Quantity: 2, UnitPrice: decimal.NewFromFloat(10.0)},
		},
		Address:     validAddress(),
		TotalAmount: decimal.NewFromFloat(20.0),
		Status:      domain.StatusPending,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	tests := []struct {
		name    string
		mutate  func(o *domain.Order)
		wantErr bool
	}{
		{"valid order", func(*domain.Order) {}, false},
		{"missing user", func(o *domain.Order) { o.UserID = "" }, true},
		{"no items", func(o *domain.Order) { o.Items = nil }, true},
		{"zero quantity", func(o *domain.Order) { o.Items[0].Quantity = 0 }, true},
		{"negative price", func(o *domain.Order) { o.Items[0].UnitPrice = decimal.NewFromInt(-1) }, true},
		{"negative total", func(o *domain.Order) { o.TotalAmount = decimal.NewFromInt(-5) }, true},
		{"missing address", func(o *domain.Order) { o.Address.Street = "" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := valid
			order.Items = []domain.Item{valid.Items[0]}
			tt.mutate(&order)

			err := order.Validate()
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("expected no error, got: %v", err)
			}
		})
	}
}

func TestCanCancel(t *testing.T) {
	tests := []struct {
		status domain.Status
		want   bool
	}{
		{domain.StatusPending, true},
		{domain.StatusProcessing, true},
		{domain.StatusShipped, false},
		{domain.StatusDelivered, false},
		{domain.StatusCancelled, false},
	}

	for _, tt := range tests {
		order := domain.Order{Status: tt.status}
		if got := order.CanCancel(); got != tt.want {
			t.Errorf("CanCancel with status %s = %v, want %v", tt.status, got, tt.want)
		}
	}
}
