package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dvalchev/storefront/internal/auth"
	"github.com/dvalchev/storefront/internal/inventory"
	"github.com/dvalchev/storefront/internal/notify"
	"github.com/dvalchev/storefront/internal/orders/app/commands"
	"github.com/dvalchev/storefront/internal/orders/app/queries"
	"github.com/dvalchev/storefront/internal/orders/domain"
	"github.com/dvalchev/storefront/internal/orders/ports"
)

// Service is the application facade for order lifecycle operations.
type Service struct {
	checkout   commands.CommandHandler
	getOrder   *queries.GetOrderQueryHandler
	listOrders *queries.ListOrdersQueryHandler
	repo       ports.OrderRepository
	stock      inventory.Ledger
	idempotent ports.IdempotencyStore
	dispatcher notify.Dispatcher
	logger     *slog.Logger
}

func NewService(
	checkout commands.CommandHandler,
	repo ports.OrderRepository,
	stock inventory.Ledger,
	idempotent ports.IdempotencyStore,
	dispatcher notify.Dispatcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		checkout:   checkout,
		getOrder:   queries.NewGetOrderQueryHandler(repo),
		listOrders: queries.NewListOrdersQueryHandler(repo),
		repo:       repo,
		stock:      stock,
		idempotent: idempotent,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Checkout converts the user's cart into an order, compensating fully on
// any failure along the way.
func (s *Service) Checkout(ctx context.Context, cmd commands.CheckoutCommand) (*domain.Order, error) {
	return s.checkout.Handle(ctx, cmd)
}

// GetOrder returns an order visible to the given identity.
func (s *Service) GetOrder(ctx context.Context, orderID string, identity auth.Identity) (*domain.Order, error) {
	return s.getOrder.Handle(ctx, queries.GetOrderQuery{OrderID: orderID, Identity: identity})
}

// ListOrders pages through the caller's own orders, newest first. Admin
// identities page through every user's orders instead.
func (s *Service) ListOrders(ctx context.Context, identity auth.Identity, filter ports.ListFilter) (*queries.ListOrdersResult, error) {
	return s.listOrders.Handle(ctx, queries.ListOrdersQuery{
		UserID:   identity.UserID,
		AllUsers: identity.IsAdmin(),
		Filter:   filter,
	})
}

// Cancel cancels an order and restores its reserved stock. Only pending and
// processing orders can be cancelled; owners may cancel their own orders,
// admins anyone's.
func (s *Service) Cancel(ctx context.Context, orderID string, identity auth.Identity) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID, identity)
	if err != nil {
		return nil, err
	}
	return s.cancel(ctx, order)
}

func (s *Service) cancel(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if !order.CanCancel() {
		return nil, fmt.Errorf("%w: cannot cancel %s order", domain.ErrInvalidTransition, order.Status)
	}

	// The conditional update is the commit point. Claiming the transition
	// before releasing stock guarantees exactly one cancel restores the
	// inventory, even when concurrent cancels race.
	if err := s.repo.UpdateStatus(ctx, order.ID, order.Status, domain.StatusCancelled); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: order status changed concurrently", domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("cancel order %s: %w", order.ID, err)
	}

	for _, item := range order.Items {
		if err := s.stock.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.logger.ErrorContext(ctx, "failed to restore stock for cancelled order",
				"order_id", order.ID,
				"product_id", item.ProductID,
				"quantity", item.Quantity,
				"error", err,
			)
		}
	}

	order.Status = domain.StatusCancelled
	order.UpdatedAt = time.Now().UTC()

	s.dispatcher.OrderCancelled(ctx, order)

	return order, nil
}

// Transition moves an order to the next status. Admin only; cancellation
// routes through the cancel path so stock is restored.
func (s *Service) Transition(ctx context.Context, orderID string, next domain.Status, identity auth.Identity) (*domain.Order, error) {
	if !identity.IsAdmin() {
		return nil, ports.ErrNotFound
	}

	order, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if next == domain.StatusCancelled {
		return s.cancel(ctx, order)
	}

	if !domain.CanTransition(order.Status, next) {
		return nil, fmt.Errorf("%w: %s to %s", domain.ErrInvalidTransition, order.Status, next)
	}

	if err := s.repo.UpdateStatus(ctx, order.ID, order.Status, next); err != nil {
		if errors.Is(err, ports.ErrStatusConflict) {
			return nil, fmt.Errorf("%w: order status changed concurrently", domain.ErrInvalidTransition)
		}
		return nil, fmt.Errorf("transition order %s: %w", order.ID, err)
	}

	order.Status = next
	order.UpdatedAt = time.Now().UTC()

	s.dispatcher.StatusChanged(ctx, order, next)

	return order, nil
}

// ReplayIdempotent returns the stored response for a previously used
// checkout key, or nil when the key is fresh.
func (s *Service) ReplayIdempotent(ctx context.Context, key string) (*ports.StoredResponse, error) {
	if s.idempotent == nil || key == "" {
		return nil, nil
	}
	return s.idempotent.Get(ctx, key)
}

// RememberIdempotent records the response to replay for future reuse of the
// key. Failures are logged, not surfaced: the order already exists.
func (s *Service) RememberIdempotent(ctx context.Context, key string, response ports.StoredResponse) {
	if s.idempotent == nil || key == "" {
		return
	}
	if err := s.idempotent.Save(ctx, key, response); err != nil {
		s.logger.WarnContext(ctx, "failed to store idempotency key",
			"key", key,
			"order_id", response.OrderID,
			"error", err,
		)
	}
}
