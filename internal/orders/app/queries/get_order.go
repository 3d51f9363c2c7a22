package queries

import (
	"context"
	"errors"
	"strings"

	"github.com/dvalchev/storefront/internal/auth"
	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
)

// GetOrderQuery retrieves an order on behalf of an identity. Non-admin
// callers only see their own orders; everything else reads as not found.
type GetOrderQuery struct {
	OrderID  string
	Identity auth.Identity
}

func (q GetOrderQuery) Validate() error {
	if strings.TrimSpace(q.OrderID) == "" {
		return errors.New("order_id is required")
	}
	return nil
}

type GetOrderQueryHandler struct {
	repo ports.OrderRepository
}

func NewGetOrderQueryHandler(repo ports.OrderRepository) *GetOrderQueryHandler {
	return &GetOrderQueryHandler{repo: repo}
}

func (h *GetOrderQueryHandler) Handle(ctx context.Context, query GetOrderQuery) (*domain.Order, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	order, err := h.repo.GetByID(ctx, query.OrderID)
	if err != nil {
		return nil, err
	}

	if !query.Identity.IsAdmin() && order.UserID != query.Identity.UserID {
		return nil, ports.ErrNotFound
	}

	return order, nil
}
