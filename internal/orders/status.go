package orders

type Status string

const (
	StatusPending Status = "PENDING"
	StatusPaid    Status = "PAID"
	// StatusCancelled: dibatalkan pembeli/admin sebelum bayar.
	StatusCancelled Status = "CANCELLED"
	// StatusPaidNoStock: sudah bayar tapi pool kosong saat delivery. Diselesaikan manual oleh admin.
	StatusPaidNoStock Status = "PAID_NO_STOCK"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:     {StatusPaid: true, StatusCancelled: true},
	StatusPaid:        {StatusPaidNoStock: true},
	StatusCancelled:   {},
	StatusPaidNoStock: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Valid() bool {
	_, ok := validNext[s]
	return ok
}

// Final: tidak ada transisi keluar lagi.
func (s Status) Final() bool {
	return s.Valid() && len(validNext[s]) == 0
}
