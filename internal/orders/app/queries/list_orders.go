package queries

import (
	"context"
	"errors"
	"strings"

	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
)

// ListOrdersQuery pages through a user's orders, newest first. AllUsers
// widens the page to every order for management views.
type ListOrdersQuery struct {
	UserID   string
	AllUsers bool
	Filter   ports.ListFilter
}

func (q ListOrdersQuery) Validate() error {
	if !q.AllUsers && strings.TrimSpace(q.UserID) == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// ListOrdersResult is a page of orders plus the owner's total order count.
type ListOrdersResult struct {
	Orders []domain.Order
	Total  int
}

type ListOrdersQueryHandler struct {
	repo ports.OrderRepository
}

func NewListOrdersQueryHandler(repo ports.OrderRepository) *ListOrdersQueryHandler {
	return &ListOrdersQueryHandler{repo: repo}
}

func (h *ListOrdersQueryHandler) Handle(ctx context.Context, query ListOrdersQuery) (*ListOrdersResult, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	if query.AllUsers {
		orders, err := h.repo.ListAll(ctx, query.Filter)
		if err != nil {
			return nil, err
		}

		total, err := h.repo.CountAll(ctx)
		if err != nil {
			return nil, err
		}

		return &ListOrdersResult{Orders: orders, Total: total}, nil
	}

	orders, err := h.repo.ListByUser(ctx, query.UserID, query.Filter)
	if err != nil {
		return nil, err
	}

	total, err := h.repo.CountByUser(ctx, query.UserID)
	if err != nil {
		return nil, err
	}

	return &ListOrdersResult{Orders: orders, Total: total}, nil
}
