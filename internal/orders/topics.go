package orders

const (
	TopicPaymentNotified   = "shop.payment.notified"
	TopicPaymentDeadLetter = "shop.payment.notified.dlq"
	TopicOrderEvents       = "shop.order.events"
)

// Partition key = order_id, supaya semua event 1 order maintain urutan.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
