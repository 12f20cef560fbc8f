// Package events publishes domain events to RabbitMQ so other services can
// react to bookings and invoices without polling the database.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"studio/api/internal/config"
)

const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	InvoiceCreated       = "invoice.created"
	GalleryShared        = "gallery.shared"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

const (
	defaultDialTimeout  = 2 * time.Second
	defaultRetryBackoff = 30 * time.Second
)

// ErrBrokerUnavailable is returned without dialing while a previous
// connection attempt is still backing off.
var ErrBrokerUnavailable = errors.New("amqp broker unavailable")

// New returns an AMQP publisher, or a no-op one when no broker URL is set.
func New(cfg config.EventsConfig, log zerolog.Logger) Publisher {
	if cfg.AMQPURL == "" {
		return Nop{}
	}
	return NewAMQPPublisher(cfg, log)
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }
func (Nop) Close() error                               { return nil }

// AMQPPublisher keeps one connection and channel, redialing lazily after the
// broker drops them.
type AMQPPublisher struct {
	url          string
	exchange     string
	dialTimeout  time.Duration
	retryBackoff time.Duration
	log          zerolog.Logger
	now          func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

func NewAMQPPublisher(cfg config.EventsConfig, log zerolog.Logger) *AMQPPublisher {
	p := &AMQPPublisher{
		url:          cfg.AMQPURL,
		exchange:     cfg.Exchange,
		dialTimeout:  cfg.DialTimeout,
		retryBackoff: cfg.RetryBackoff,
		log:          log,
		now:          time.Now,
	}
	if p.dialTimeout <= 0 {
		p.dialTimeout = defaultDialTimeout
	}
	if p.retryBackoff <= 0 {
		p.retryBackoff = defaultRetryBackoff
	}
	return p
}

func (p *AMQPPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}

	err = ch.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", routingKey, err)
	}
	return nil
}

// channel returns the open channel or dials a new one. The dial and AMQP
// handshake are bounded by the dial timeout and ctx's deadline; a failure
// suspends dialing for retryBackoff so callers on the request path fail fast.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	now := p.now()
	if now.Before(p.retryAt) {
		return nil, ErrBrokerUnavailable
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := deadline.Sub(now); remaining < timeout {
			timeout = remaining
		}
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		p.retryAt = now.Add(p.retryBackoff)
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		p.retryAt = now.Add(p.retryBackoff)
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		p.retryAt = now.Add(p.retryBackoff)
		return nil, fmt.Errorf("exchange declare: %w", err)
	}

	p.conn = conn
	p.ch = ch
	p.log.Info().Str("exchange", p.exchange).Msg("amqp publisher connected")
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}
