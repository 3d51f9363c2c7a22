package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPClient publishes email jobs to a durable queue and room broadcasts
// to a topic exchange. A single channel is shared under a mutex; AMQP
// channels are not safe for concurrent publishing.
type AMQPClient struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	exchange string
}

// DialAMQP connects and declares the email queue and broadcast exchange.
func DialAMQP(url, queue, exchange string) (*AMQPClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}

	return &AMQPClient{conn: conn, channel: ch, queue: queue, exchange: exchange}, nil
}

func (c *AMQPClient) Close() error {
	return c.conn.Close()
}

// Enqueue publishes a persistent job message to the email queue.
func (c *AMQPClient) Enqueue(ctx context.Context, job EmailJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal email job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(ctx,
		"",      // default exchange
		c.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("publish email job: %w", err)
	}

	return nil
}

// Broadcast publishes a transient event to the topic exchange, routed by
// room name. Subscribers bind their own queues; nothing is stored.
func (c *AMQPClient) Broadcast(ctx context.Context, room, event string, payload any) error {
	body, err := json.Marshal(map[string]any{"event": event, "payload": payload})
	if err != nil {
		return fmt.Errorf("marshal broadcast: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	c.mu.Lock()
	defer c.mu.Unlock()

	err = c.channel.PublishWithContext(ctx,
		c.exchange,
		room,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("publish broadcast: %w", err)
	}

	return nil
}

// Consume delivers email jobs from the queue until the context is done.
// Messages are acked only after the handler succeeds, so failed jobs are
// redelivered (at-least-once).
func (c *AMQPClient) Consume(ctx context.Context, handle func(context.Context, EmailJob) error) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume queue %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}

			var job EmailJob
			if err := json.Unmarshal(delivery.Body, &job); err != nil {
				// Poison message; drop it rather than redeliver forever.
				_ = delivery.Nack(false, false)
				continue
			}

			if err := handle(ctx, job); err != nil {
				_ = delivery.Nack(false, true)
				continue
			}
			_ = delivery.Ack(false)
		}
	}
}
