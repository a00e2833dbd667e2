package storage

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"atsengine/internal/config"
	"atsengine/internal/errors"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPPublisher publishes pipeline events to a durable topic exchange. The
// event name is the routing key.
type AMQPPublisher struct {
	conn     *amqp.Connection
	exchange string
	logger   *errors.Logger

	// amqp channels are not safe for concurrent publishing.
	mu sync.Mutex
	ch *amqp.Channel
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(cfg config.RabbitMQConfig, logger *errors.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, errors.NewStorageUnavailable("failed to connect to rabbitmq", err)
	}

	p := &AMQPPublisher{conn: conn, exchange: cfg.Exchange, logger: logger}
	if err := p.openChannel(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	logger.Info("RabbitMQ publisher ready", "exchange", cfg.Exchange)
	return p, nil
}

// openChannel opens a channel and declares the exchange on it. The caller
// holds mu or owns p exclusively.
func (p *AMQPPublisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return errors.NewStorageUnavailable("failed to open rabbitmq channel", err)
	}
	err = ch.ExchangeDeclare(
		p.exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		return errors.NewStorageUnavailable("failed to declare exchange", err).
			WithContext("exchange", p.exchange)
	}
	p.ch = ch
	return nil
}

// Publish sends payload as a persistent JSON message routed by event.
func (p *AMQPPublisher) Publish(ctx context.Context, event string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.NewStorageUnavailable("failed to encode event", err).WithContext("event", event)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// A broker-side error closes the channel; reopen once per publish.
	if p.ch == nil || p.ch.IsClosed() {
		if err := p.openChannel(); err != nil {
			return err
		}
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, event, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    uuid.NewString(),
		Type:         event,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return errors.NewStorageUnavailable("failed to publish event", err).WithContext("event", event)
	}
	p.logger.Debug("Event published", "exchange", p.exchange, "event", event, "bytes", len(body))
	return nil
}

// Close closes the channel and connection.
func (p *AMQPPublisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn.Close()
	}
	return nil
}
