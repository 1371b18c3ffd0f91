package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"news_reader/internal/domain"
)

type Config struct {
	URL        string
	Exchange   string
	RoutingKey string
	QueueName  string
}

// RabbitMQ delivers notifications as messages on a durable queue. Permission
// is granted once the broker connection and topology are in place.
type RabbitMQ struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewRabbitMQ(cfg Config, logger *slog.Logger) *RabbitMQ {
	return &RabbitMQ{
		cfg:    cfg,
		logger: logger.With("component", "notifier", "driver", "rabbitmq"),
	}
}

// Message is the body published for every notification.
type Message struct {
	ID        string                  `json:"id"`
	Title     string                  `json:"title"`
	Body      string                  `json:"body"`
	Data      domain.NotificationData `json:"data"`
	Timestamp time.Time               `json:"timestamp"`
}

// RequestPermission connects to the broker if needed.
func (r *RabbitMQ) RequestPermission(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.connectedLocked() {
		return true
	}
	if err := r.connectLocked(); err != nil {
		r.logger.Warn("notification permission not granted", "error", err)
		return false
	}
	return true
}

func (r *RabbitMQ) CheckPermission(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectedLocked()
}

// Schedule returns the message id, or "" when nothing was published.
func (r *RabbitMQ) Schedule(ctx context.Context, n domain.Notification) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connectedLocked() {
		r.logger.Warn("notification dropped, no permission", "title", n.Title)
		return ""
	}

	msg := Message{
		ID:        uuid.NewString(),
		Title:     n.Title,
		Body:      n.Body,
		Data:      n.Data,
		Timestamp: time.Now().UTC(),
	}

	body, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("failed to marshal notification", "error", err)
		return ""
	}

	err = r.channel.PublishWithContext(
		ctx,
		r.cfg.Exchange,
		r.cfg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    msg.ID,
			Body:         body,
			Timestamp:    msg.Timestamp,
		},
	)
	if err != nil {
		r.logger.Error("failed to publish notification", "error", err)
		return ""
	}

	r.logger.Debug("published notification", "id", msg.ID, "title", msg.Title)
	return msg.ID
}

// CancelAll drops every notification still waiting in the queue.
func (r *RabbitMQ) CancelAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.connectedLocked() {
		return
	}

	purged, err := r.channel.QueuePurge(r.cfg.QueueName, false)
	if err != nil {
		r.logger.Error("failed to purge notifications", "error", err)
		return
	}
	r.logger.Debug("purged notifications", "count", purged)
}

func (r *RabbitMQ) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channel != nil {
		r.channel.Close()
		r.channel = nil
	}
	if r.conn != nil {
		err := r.conn.Close()
		r.conn = nil
		return err
	}
	return nil
}

func (r *RabbitMQ) connectedLocked() bool {
	return r.conn != nil && !r.conn.IsClosed() && r.channel != nil && !r.channel.IsClosed()
}

func (r *RabbitMQ) connectLocked() error {
	conn, err := amqp.Dial(r.cfg.URL)
	if err != nil {
		return fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := declare(ch, r.cfg); err != nil {
		ch.Close()
		conn.Close()
		return err
	}

	r.conn = conn
	r.channel = ch

	r.logger.Info("connected to rabbitmq",
		"exchange", r.cfg.Exchange,
		"queue", r.cfg.QueueName,
		"routing_key", r.cfg.RoutingKey,
	)
	return nil
}

func declare(ch *amqp.Channel, cfg Config) error {
	err := ch.ExchangeDeclare(
		cfg.Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	q, err := ch.QueueDeclare(
		cfg.QueueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}
