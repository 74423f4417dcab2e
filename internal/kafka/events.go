package kafka

import (
	"context"
	"fmt"
	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"
	"strconv"
	"time"
)

const envelopeVersion = 1

func newEnvelope(ctx context.Context, producer, eventType, orderID string, payload any) (orders.Envelope, error) {
	body, err := Marshal(payload)
	if err != nil {
		return orders.Envelope{}, fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	ev := orders.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  envelopeVersion,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		CorrelationID: orderID,
		Payload:       body,
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		ev.TraceID = sc.TraceID().String()
	}
	return ev, nil
}

func publishEnvelope(ctx context.Context, p Publisher, ev orders.Envelope) error {
	value, err := Marshal(ev)
	if err != nil {
		return err
	}
	return p.Publish(ctx, orders.PartitionKey(ev.CorrelationID), value,
		kafka.Header{Key: "x-event-type", Value: []byte(ev.EventType)},
		kafka.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(ev.EventVersion))},
	)
}

// EventPublisher implements checkout.EventPublisher on the order events topic.
type EventPublisher struct {
	P       Publisher
	Service string
}

func (e *EventPublisher) Publish(ctx context.Context, eventType, orderID string, payload any) error {
	ev, err := newEnvelope(ctx, e.Service, eventType, orderID, payload)
	if err != nil {
		return err
	}
	return publishEnvelope(ctx, e.P, ev)
}

// NotificationPublisher implements checkout.Dispatcher: the webhook only
// writes the normalized notification, cmd/worker processes it.
type NotificationPublisher struct {
	P       Publisher
	Service string
}

func (d *NotificationPublisher) Dispatch(ctx context.Context, n checkout.Notification) error {
	ev, err := newEnvelope(ctx, d.Service, orders.EventPaymentNotified, n.OrderID, orders.PaymentNotifiedPayload{
		OrderID:     n.OrderID,
		Amount:      n.Amount,
		Status:      n.Status,
		Method:      n.Method,
		CompletedAt: n.CompletedAt,
	})
	if err != nil {
		return err
	}
	return publishEnvelope(ctx, d.P, ev)
}
