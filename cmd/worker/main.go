package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dvalchev/storefront/internal/config"
	"github.com/dvalchev/storefront/internal/notify"
	"github.com/dvalchev/storefront/internal/telemetry"
)

// The worker drains the email job queue: it renders each job into a
// message and hands it to the mailer. Delivery is at-least-once; the
// queue redelivers anything the handler fails on.
func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := telemetry.NewLogger(cfg.Telemetry.LogLevel)
	slog.SetDefault(logger)

	if cfg.AMQP.URL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := notify.DialAMQP(cfg.AMQP.URL, cfg.AMQP.EmailQueue, cfg.AMQP.Exchange)
	if err != nil {
		logger.Error("failed to connect to AMQP broker", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	mailer := &notify.LogMailer{Logger: logger}

	logger.Info("worker starting", "queue", cfg.AMQP.EmailQueue)

	err = client.Consume(ctx, func(ctx context.Context, job notify.EmailJob) error {
		logger.Info("processing email job",
			"kind", job.Kind,
			"order_id", job.OrderID,
		)
		return mailer.Send(ctx, notify.RenderEmail(job))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("consumer stopped", "error", err)
		os.Exit(1)
	}

	logger.Info("worker stopped")
}
