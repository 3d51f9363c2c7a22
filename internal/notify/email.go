package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// EmailMessage is a rendered email ready for delivery.
type EmailMessage struct {
	UserID  string
	Subject string
	Body    string
}

// Mailer is the delivery collaborator. SMTP (or a provider API) lives
// behind this interface; the worker only renders and hands off.
type Mailer interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// RenderEmail turns a job into a deliverable message.
func RenderEmail(job EmailJob) EmailMessage {
	switch job.Kind {
	case EmailOrderConfirmation:
		return EmailMessage{
			UserID:  job.UserID,
			Subject: "Order Confirmation",
			Body: fmt.Sprintf(
				"Thank you for your order!\n\nOrder ID: %s\nTotal Amount: $%s\nStatus: %s\n\nWe'll notify you when your order ships.",
				job.OrderID, job.Total, job.Status,
			),
		}
	case EmailStatusUpdate:
		return EmailMessage{
			UserID:  job.UserID,
			Subject: "Order Status Update",
			Body: fmt.Sprintf(
				"Your order status has been updated.\n\nOrder ID: %s\nNew Status: %s\n\nYou can track your order at /orders/%s",
				job.OrderID, job.Status, job.OrderID,
			),
		}
	default:
		return EmailMessage{
			UserID:  job.UserID,
			Subject: "Order Notification",
			Body:    fmt.Sprintf("Update for order %s.", job.OrderID),
		}
	}
}

// LogMailer writes messages to the log instead of delivering them.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(ctx context.Context, msg EmailMessage) error {
	m.Logger.InfoContext(ctx, "email sent",
		"user_id", msg.UserID,
		"subject", msg.Subject,
	)
	return nil
}
