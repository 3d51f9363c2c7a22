package notify

import (
	"context"
	"log/slog"

	"github.com/dvalchev/storefront/internal/orders/domain"
)

// EmailKind discriminates the background email jobs the worker executes.
type EmailKind string

const (
	EmailOrderConfirmation EmailKind = "order_confirmation"
	EmailStatusUpdate      EmailKind = "status_update"
)

// EmailJob is the typed job description placed on the queue. The worker
// collaborator executes it at least once.
type EmailJob struct {
	Kind    EmailKind `json:"kind"`
	UserID  string    `json:"user_id"`
	OrderID string    `json:"order_id"`
	Status  string    `json:"status,omitempty"`
	Total   string    `json:"total,omitempty"`
}

// JobQueue submits background jobs for asynchronous execution.
type JobQueue interface {
	Enqueue(ctx context.Context, job EmailJob) error
}

// Broadcaster pushes best-effort messages to a room of subscribers.
// Delivery is at most once; no guarantee beyond best effort.
type Broadcaster interface {
	Broadcast(ctx context.Context, room, event string, payload any) error
}

// AdminRoom receives every new-order broadcast.
const AdminRoom = "admin"

// OrderRoom is the per-order subscription topic.
func OrderRoom(orderID string) string {
	return "order:" + orderID
}

// Dispatcher is the fire-and-forget notification surface invoked by order
// lifecycle operations. Dispatch failures are logged and swallowed; they
// never fail or roll back the transition that triggered them.
type Dispatcher interface {
	OrderCreated(ctx context.Context, order *domain.Order)
	StatusChanged(ctx context.Context, order *domain.Order, next domain.Status)
	OrderCancelled(ctx context.Context, order *domain.Order)
}

type dispatcher struct {
	jobs   JobQueue
	rooms  Broadcaster
	logger *slog.Logger
}

// NewDispatcher wires the queue and broadcast collaborators.
func NewDispatcher(jobs JobQueue, rooms Broadcaster, logger *slog.Logger) Dispatcher {
	return &dispatcher{jobs: jobs, rooms: rooms, logger: logger}
}

func (d *dispatcher) OrderCreated(ctx context.Context, order *domain.Order) {
	d.enqueue(ctx, EmailJob{
		Kind:    EmailOrderConfirmation,
		UserID:  order.UserID,
		OrderID: order.ID,
		Status:  string(order.Status),
		Total:   order.TotalAmount.String(),
	})

	d.broadcast(ctx, AdminRoom, "new_order", map[string]any{
		"order_id":     order.ID,
		"user_id":      order.UserID,
		"total_amount": order.TotalAmount,
	})
}

func (d *dispatcher) StatusChanged(ctx context.Context, order *domain.Order, next domain.Status) {
	d.enqueue(ctx, EmailJob{
		Kind:    EmailStatusUpdate,
		UserID:  order.UserID,
		OrderID: order.ID,
		Status:  string(next),
	})

	d.broadcast(ctx, OrderRoom(order.ID), "order_status_update", map[string]any{
		"order_id": order.ID,
		"status":   next,
	})
}

func (d *dispatcher) OrderCancelled(ctx context.Context, order *domain.Order) {
	d.enqueue(ctx, EmailJob{
		Kind:    EmailStatusUpdate,
		UserID:  order.UserID,
		OrderID: order.ID,
		Status:  string(domain.StatusCancelled),
	})

	d.broadcast(ctx, OrderRoom(order.ID), "order_cancelled", map[string]any{
		"order_id": order.ID,
	})
}

func (d *dispatcher) enqueue(ctx context.Context, job EmailJob) {
	if err := d.jobs.Enqueue(ctx, job); err != nil {
		d.logger.WarnContext(ctx, "failed to enqueue notification job",
			"kind", job.Kind,
			"order_id", job.OrderID,
			"error", err,
		)
	}
}

func (d *dispatcher) broadcast(ctx context.Context, room, event string, payload any) {
	if err := d.rooms.Broadcast(ctx, room, event, payload); err != nil {
		d.logger.WarnContext(ctx, "failed to broadcast notification",
			"room", room,
			"event", event,
			"error", err,
		)
	}
}
