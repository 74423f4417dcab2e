package kafka

import (
	"context"
	"errors"
	"fmt"
	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"strconv"
)

type NotificationProcessor interface {
	HandlePaymentNotification(ctx context.Context, n checkout.Notification) (checkout.Outcome, error)
	ReportUnprocessed(ctx context.Context, n checkout.Notification, cause error)
}

var errNotPayment = errors.New("not a payment notification")

// PaymentHandler is the worker side of NotificationPublisher.
// Redelivery aman: ledger CAS yang menjamin item cuma dikirim sekali.
type PaymentHandler struct {
	Service NotificationProcessor
	// DLQ receives notifications that failed every attempt; nil only alerts.
	DLQ Publisher
	Log *zap.Logger
}

// Handle returns an error only when the notification should be retried.
func (h *PaymentHandler) Handle(ctx context.Context, m kafka.Message) error {
	log := h.logger()

	// 1) decode; pesan rusak di-skip, retry tidak akan menolong
	env, n, err := decodeNotification(m.Value)
	if errors.Is(err, errNotPayment) {
		return nil
	}
	if err != nil {
		log.Error("payment_event_malformed", zap.Int64("offset", m.Offset), zap.String("event_id", env.EventID), zap.Error(err))
		return nil
	}

	// 2) proses
	out, err := h.Service.HandlePaymentNotification(ctx, n)
	log.Info("payment_event_processed",
		zap.String("event_id", env.EventID),
		zap.String("order_id", n.OrderID),
		zap.String("outcome", string(out)),
		zap.Error(err))
	return err
}

// DeadLetter copies m to the DLQ topic and tells the admin. Use it with
// Consumer.WithDeadLetter.
func (h *PaymentHandler) DeadLetter(ctx context.Context, m kafka.Message, cause error) error {
	if h.DLQ != nil {
		headers := append(append([]kafka.Header{}, m.Headers...),
			kafka.Header{Key: "x-dead-letter-reason", Value: []byte(cause.Error())},
			kafka.Header{Key: "x-source-topic", Value: []byte(m.Topic)},
			kafka.Header{Key: "x-source-partition", Value: []byte(strconv.Itoa(m.Partition))},
			kafka.Header{Key: "x-source-offset", Value: []byte(strconv.FormatInt(m.Offset, 10))},
		)
		if err := h.DLQ.Publish(ctx, m.Key, m.Value, headers...); err != nil {
			return fmt.Errorf("dead letter offset %d: %w", m.Offset, err)
		}
	}
	if _, n, err := decodeNotification(m.Value); err == nil {
		h.Service.ReportUnprocessed(ctx, n, cause)
	}
	return nil
}

func (h *PaymentHandler) logger() *zap.Logger {
	if h.Log == nil {
		return zap.NewNop()
	}
	return h.Log
}

func decodeNotification(b []byte) (orders.Envelope, checkout.Notification, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return env, checkout.Notification{}, err
	}
	if env.EventType != orders.EventPaymentNotified {
		return env, checkout.Notification{}, errNotPayment
	}
	p, err := UnwrapPayload[orders.PaymentNotifiedPayload](env.Payload)
	if err != nil {
		return env, checkout.Notification{}, err
	}
	return env, checkout.Notification{
		OrderID:     p.OrderID,
		Amount:      p.Amount,
		Status:      p.Status,
		Method:      p.Method,
		CompletedAt: p.CompletedAt,
	}, nil
}
