package checkout

import (
	"context"
	"time"
)

// Invoice is what the gateway hands back for a new order.
type Invoice struct {
	OrderID   string
	Amount    int64 // harga katalog
	Total     int64 // yang harus dibayar, termasuk fee gateway
	QRString  string
	PayURL    string
	Method    string
	ExpiresAt time.Time
}

// Notification is a gateway webhook after normalization.
type Notification struct {
	OrderID     string
	Amount      int64
	Status      string // lower-case, "completed" = lunas
	Method      string
	CompletedAt time.Time
}

const StatusCompleted = "completed"

type Gateway interface {
	CreateInvoice(ctx context.Context, orderID string, amount int64) (*Invoice, error)
	Cancel(ctx context.Context, orderID string, amount int64) error
	// QueryStatus asks the gateway for the live status of a transaction.
	QueryStatus(ctx context.Context, orderID string, amount int64) (string, error)
}

// Notifier delivers HTML text to a chat (buyer or admin).
type Notifier interface {
	SendText(ctx context.Context, chatID int64, html string) error
}

// EventPublisher emits order lifecycle events. Failures are logged, never fatal.
type EventPublisher interface {
	Publish(ctx context.Context, eventType, orderID string, payload any) error
}

// Dispatcher hands a verified-shape notification to whatever processes it
// (in-process job pool or a Kafka topic).
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}

type nopEvents struct{}

func (nopEvents) Publish(context.Context, string, string, any) error { return nil }

// NopEvents drops every event.
var NopEvents EventPublisher = nopEvents{}
