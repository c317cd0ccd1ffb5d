// internal/event/nats.go
// Package event publishes order lifecycle events to NATS JetStream.
// When NATS is not configured or unreachable a no-op publisher is used so
// checkout never depends on the event stream.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/RegistryAccord/registryaccord-storefront-go/internal/metrics"
	"github.com/RegistryAccord/registryaccord-storefront-go/internal/model"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/oklog/ulid/v2"
)

// Event types, also used as JetStream subjects.
const (
	TypeOrderPlaced    = "storefront.orders.placed"
	TypeOrderCancelled = "storefront.orders.cancelled"

	streamName    = "SF_ORDERS"
	streamSubject = "storefront.orders.*"
	schemaVersion = "1.0.0"
)

// Publisher defines the event publishing operations of the order book.
type Publisher interface {
	PublishOrderPlaced(ctx context.Context, order model.Order) error
	PublishOrderCancelled(ctx context.Context, order model.Order) error
	Close() error
}

// noop is used when NATS is not configured.
type noop struct{}

// NewNoop returns a Publisher that drops every event.
func NewNoop() Publisher { return noop{} }

func (noop) Close() error                                             { return nil }
func (noop) PublishOrderPlaced(context.Context, model.Order) error    { return nil }
func (noop) PublishOrderCancelled(context.Context, model.Order) error { return nil }

// natsPub is the NATS JetStream implementation of Publisher.
type natsPub struct {
	nc      *nats.Conn            // NATS connection
	js      nats.JetStreamContext // JetStream context for stream operations
	metrics *metrics.Metrics
}

// NewPublisher connects to url and returns a JetStream publisher.
// An empty url, or any connection or stream setup failure, yields the no-op publisher.
// Parameters:
//   - url: NATS server URL
//   - m: metrics sink (may be nil)
func NewPublisher(url string, m *metrics.Metrics) Publisher {
	if url == "" {
		return NewNoop()
	}

	nc, err := nats.Connect(url, nats.Name("storefront-service"))
	if err != nil {
		slog.Warn("NATS connect failed, using noop publisher", "error", err)
		return NewNoop()
	}

	js, err := nc.JetStream()
	if err != nil {
		slog.Warn("NATS JetStream context creation failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}

	if err := initStream(js); err != nil {
		slog.Warn("NATS stream initialization failed, using noop publisher", "error", err)
		nc.Close()
		return NewNoop()
	}

	return &natsPub{nc: nc, js: js, metrics: m}
}

// initStream creates the SF_ORDERS stream if it does not exist yet.
func initStream(js nats.JetStreamContext) error {
	if _, err := js.StreamInfo(streamName); err == nil {
		return nil
	}
	_, err := js.AddStream(&nats.StreamConfig{
		Name:       streamName,
		Subjects:   []string{streamSubject},
		Retention:  nats.LimitsPolicy,
		MaxAge:     7 * 24 * time.Hour,
		Discard:    nats.DiscardOld,
		Storage:    nats.FileStorage,
		Duplicates: 2 * time.Minute, // JetStream dedup window for Nats-Msg-Id
	})
	if err != nil {
		return fmt.Errorf("failed to create %s stream: %w", streamName, err)
	}
	return nil
}

// EventEnvelope wraps every published payload.
type EventEnvelope struct {
	ID            string    `json:"id"` // ULID, sortable by publish time
	Type          string    `json:"type"`
	Version       string    `json:"version"`
	OccurredAt    time.Time `json:"occurredAt"`
	CorrelationID string    `json:"correlationId"`
	Payload       any       `json:"payload"`
}

// NewEnvelope builds the envelope for an event of type eventType.
func NewEnvelope(eventType string, payload any, now time.Time) EventEnvelope {
	return EventEnvelope{
		ID:            ulid.MustNew(ulid.Timestamp(now), ulid.DefaultEntropy()).String(),
		Type:          eventType,
		Version:       schemaVersion,
		OccurredAt:    now.UTC(),
		CorrelationID: uuid.New().String(),
		Payload:       payload,
	}
}

// Close closes the NATS connection.
func (p *natsPub) Close() error {
	if p.nc != nil {
		p.nc.Drain()
	}
	return nil
}

// PublishOrderPlaced publishes the full order snapshot.
func (p *natsPub) PublishOrderPlaced(ctx context.Context, order model.Order) error {
	return p.publish(ctx, TypeOrderPlaced, order.ID, order)
}

// PublishOrderCancelled publishes the cancelled order.
func (p *natsPub) PublishOrderCancelled(ctx context.Context, order model.Order) error {
	return p.publish(ctx, TypeOrderCancelled, order.ID, order)
}

// publish sends one envelope. The order id plus event type is the JetStream
// message id, so a retried publish of the same transition is dropped server-side.
func (p *natsPub) publish(ctx context.Context, eventType, orderID string, payload any) (err error) {
	defer func() {
		if p.metrics == nil {
			return
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		p.metrics.OrderEventTotal.WithLabelValues(eventType, status).Inc()
	}()

	b, err := json.Marshal(NewEnvelope(eventType, payload, time.Now()))
	if err != nil {
		return err
	}

	_, err = p.js.Publish(eventType, b, nats.Context(ctx), nats.MsgId(eventType+":"+orderID))
	if err != nil {
		return fmt.Errorf("publish %s: %w", eventType, err)
	}
	return nil
}
