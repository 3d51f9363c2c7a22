package notify

import (
	"context"
	"log/slog"
)

// NoopQueue logs jobs without sending them anywhere. Useful for local dev
// before wiring a broker.
type NoopQueue struct{}

func NewNoopQueue() *NoopQueue { return &NoopQueue{} }

func (*NoopQueue) Enqueue(_ context.Context, job EmailJob) error {
	slog.Debug("job::email", "kind", job.Kind, "order_id", job.OrderID, "user_id", job.UserID)
	return nil
}

// NoopBroadcaster logs broadcasts without delivering them.
type NoopBroadcaster struct{}

func NewNoopBroadcaster() *NoopBroadcaster { return &NoopBroadcaster{} }

func (*NoopBroadcaster) Broadcast(_ context.Context, room, event string, _ any) error {
	slog.Debug("broadcast", "room", room, "event", event)
	return nil
}
