package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/fundhive/identity-api/internal/core/domain"
)

const defaultQueue = "identity.notifications"

// AMQPTransport publishes notifications as persistent JSON messages to a
// durable RabbitMQ queue consumed by the mail worker. The connection is
// opened lazily and re-dialled after a failed publish.
type AMQPTransport struct {
	url   string
	queue string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewAMQPTransport(url, queue string) *AMQPTransport {
	if queue == "" {
		queue = defaultQueue
	}
	return &AMQPTransport{url: url, queue: queue}
}

func (t *AMQPTransport) Name() string { return "amqp" }

func (t *AMQPTransport) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("amqp: marshal notification: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ch, err := t.channel()
	if err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(n.Kind),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", t.queue, false, false, pub); err != nil {
		t.closeLocked()
		return fmt.Errorf("amqp: publish: %w", err)
	}
	return nil
}

// Close releases the channel and connection.
func (t *AMQPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closeLocked()
}

// channel returns an open channel, dialling and declaring the queue when
// needed. Callers hold t.mu.
func (t *AMQPTransport) channel() (*amqp.Channel, error) {
	if t.ch != nil && !t.ch.IsClosed() {
		return t.ch, nil
	}

	if t.conn == nil || t.conn.IsClosed() {
		conn, err := amqp.Dial(t.url)
		if err != nil {
			return nil, fmt.Errorf("amqp: dial: %w", err)
		}
		t.conn = conn
	}

	ch, err := t.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("amqp: open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(
		t.queue, // name
		true,    // durable
		false,   // autoDelete
		false,   // exclusive
		false,   // noWait
		nil,     // args
	); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("amqp: declare queue: %w", err)
	}

	t.ch = ch
	return ch, nil
}

func (t *AMQPTransport) closeLocked() error {
	var err error
	if t.ch != nil {
		_ = t.ch.Close()
		t.ch = nil
	}
	if t.conn != nil {
		err = t.conn.Close()
		t.conn = nil
	}
	return err
}
