package redisx

import "time"

const (
	// Dedup event processing: dedup:{scope}:{id} (id = telegram update_id / event_id)
	KeyDedup = "dedup:%s:%s"

	// Sliding-window limiter tombol beli: rate_limit:buy:{chat_id}
	KeyRateLimitBuy = "rate_limit:buy:%d"

	// Stock pool: list id yang masih tersedia per group, FIFO.
	KeyStockAvailable = "stock:%s:available"
	// Hash per item: group, payload, created_at, consumed_by, consumed_at
	KeyStockItemPrefix = "stock:item:"
	KeyStockSeq        = "stock:seq"
)

var (
	TTLDedup = 48 * time.Hour
)
