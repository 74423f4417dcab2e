package orders

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCreated          = "OrderCreated"
	EventOrderPaid             = "OrderPaid"
	EventOrderNoStock          = "OrderNoStock"
	EventOrderCancelled        = "OrderCancelled"
	EventPaymentAmountMismatch = "PaymentAmountMismatch"
	EventPaymentNotified       = "PaymentNotified"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "digital-shop"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderCreatedPayload struct {
	OrderID string `json:"order_id"`
	BuyerID int64  `json:"buyer_id"`
	GroupID string `json:"group_id"`
	Amount  int64  `json:"amount"`
}

type OrderPaidPayload struct {
	OrderID string `json:"order_id"`
	GroupID string `json:"group_id"`
	ItemID  int64  `json:"item_id"`
	// Delivered=false: item sudah diambil tapi pesan ke pembeli gagal.
	Delivered bool `json:"delivered"`
}

type OrderNoStockPayload struct {
	OrderID string `json:"order_id"`
	GroupID string `json:"group_id"`
	Reason  string `json:"reason"` // OUT_OF_STOCK | STORE_ERROR
}

type OrderCancelledPayload struct {
	OrderID     string `json:"order_id"`
	CancelledBy int64  `json:"cancelled_by"`
}

type PaymentAmountMismatchPayload struct {
	OrderID  string `json:"order_id"`
	Expected int64  `json:"expected"`
	Received int64  `json:"received"`
}

// PaymentNotifiedPayload carries a normalized gateway webhook from the API to the worker.
type PaymentNotifiedPayload struct {
	OrderID     string    `json:"order_id"`
	Amount      int64     `json:"amount"`
	Status      string    `json:"status"`
	Method      string    `json:"method,omitempty"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}
