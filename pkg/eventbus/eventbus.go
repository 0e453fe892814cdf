package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/swapgrid/trust-engine/pkg/logger"
)

// ErrNotConnected is returned by Healthy when the broker link is down.
var ErrNotConnected = errors.New("eventbus: not connected")

// Event is the envelope every message on the bus is wrapped in. Data holds
// the type-specific payload and is decoded by the subscriber.
type Event struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Handler processes a single decoded event. Returning an error leaves the
// message to NATS redelivery semantics; handlers must be idempotent.
type Handler func(ctx context.Context, event *Event) error

// Bus is a thin publish/subscribe layer over a NATS connection.
type Bus struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewBus connects to the NATS server at url with reconnect enabled.
func NewBus(url string) (*Bus, error) {
	conn, err := nats.Connect(url,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	return &Bus{conn: conn}, nil
}

// Publish wraps data in an Event envelope and publishes it on subject.
func (b *Bus) Publish(ctx context.Context, subject, eventType string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal event data: %w", err)
	}
	event := Event{
		ID:         uuid.New(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       payload,
	}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := b.conn.Publish(subject, raw); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Subscribe registers handler on subject as part of a queue group. Handler
// errors are logged; the message is not re-queued by the bus itself.
func (b *Bus) Subscribe(ctx context.Context, subject, queue string, handler Handler) error {
	sub, err := b.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		var event Event
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			logger.Error("failed to decode event",
				zap.String("subject", msg.Subject),
				zap.Error(err))
			return
		}
		if err := handler(ctx, &event); err != nil {
			logger.Error("event handler failed",
				zap.String("subject", msg.Subject),
				zap.String("type", event.Type),
				zap.String("event_id", event.ID.String()),
				zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	b.subs = append(b.subs, sub)
	return nil
}

// Healthy reports whether the connection to the broker is alive.
func (b *Bus) Healthy() error {
	if b.conn == nil || !b.conn.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// Close drains subscriptions and closes the connection.
func (b *Bus) Close() {
	for _, sub := range b.subs {
		_ = sub.Drain()
	}
	if b.conn != nil {
		b.conn.Drain()
		b.conn.Close()
	}
}
