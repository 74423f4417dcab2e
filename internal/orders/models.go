package orders

import "time"

type Order struct {
	ID        string
	BuyerID   int64 // telegram chat id
	GroupID   string
	Amount    int64 // rupiah, diambil dari katalog saat order dibuat
	Status    Status
	ItemID    int64 // stock item yang dikirim; 0 = belum ada
	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}

// Stats feeds the /start dashboard.
type Stats struct {
	CompletedOrders int64
	Buyers          int64
}

// DayLayout is the key format of DayCount.Day.
const DayLayout = "2006-01-02"

// DayCount is the number of orders paid on one UTC day.
type DayCount struct {
	Day   string
	Count int64
}
