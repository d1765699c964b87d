package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"server/internal/domain"
)

const (
	exchangeName = "escrow.events"
	routingKey   = "notification.created"
)

// AMQPDispatcher publishes notifications to a RabbitMQ topic exchange so
// out-of-process consumers (mailers, push, the web feed) can deliver them.
// Publishing is at-least-once; consumers tolerate duplicates.
type AMQPDispatcher struct {
	conn    *amqp091.Connection
	channel *amqp091.Channel
}

func NewAMQPDispatcher(url string) (*AMQPDispatcher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		exchangeName,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPDispatcher{conn: conn, channel: ch}, nil
}

type notificationEvent struct {
	ID          string    `json:"id"`
	RecipientID string    `json:"recipient_id"`
	Message     string    `json:"message"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"created_at"`
}

func (d *AMQPDispatcher) Send(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(notificationEvent{
		ID:          n.ID,
		RecipientID: n.RecipientID,
		Message:     n.Message,
		Read:        false,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return err
	}

	return d.channel.PublishWithContext(ctx,
		exchangeName,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp091.Persistent,
		},
	)
}

func (d *AMQPDispatcher) Close() {
	if d.channel != nil {
		_ = d.channel.Close()
	}
	if d.conn != nil {
		_ = d.conn.Close()
	}
}

var _ domain.Dispatcher = (*AMQPDispatcher)(nil)
