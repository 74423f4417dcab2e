package orders

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/storage"
	"gorm.io/gorm"
)

type orderRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	BuyerID   int64  `gorm:"not null;index"`
	GroupID   string `gorm:"size:32;not null"`
	Amount    int64  `gorm:"not null"`
	Status    string `gorm:"size:16;not null;index"`
	ItemID    int64  `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
	PaidAt    *time.Time
}

func (orderRow) TableName() string { return "orders" }

func (r orderRow) toOrder() *Order {
	return &Order{
		ID:        r.ID,
		BuyerID:   r.BuyerID,
		GroupID:   r.GroupID,
		Amount:    r.Amount,
		Status:    Status(r.Status),
		ItemID:    r.ItemID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		PaidAt:    r.PaidAt,
	}
}

// GormLedger stores orders in the embedded SQLite database.
type GormLedger struct{ DB *gorm.DB }

func NewGormLedger(db *gorm.DB) (*GormLedger, error) {
	if err := db.AutoMigrate(&orderRow{}); err != nil {
		return nil, storage.Unavailable("migrate orders", err)
	}
	return &GormLedger{DB: db}, nil
}

func (l *GormLedger) Create(ctx context.Context, o *Order) error {
	if o.Status == "" {
		o.Status = StatusPending
	}
	row := orderRow{
		ID:      o.ID,
		BuyerID: o.BuyerID,
		GroupID: o.GroupID,
		Amount:  o.Amount,
		Status:  string(o.Status),
	}
	if err := l.DB.WithContext(ctx).Create(&row).Error; err != nil {
		if isDuplicate(err) {
			return ErrDuplicateOrderID
		}
		return storage.Unavailable("create order", err)
	}
	o.CreatedAt, o.UpdatedAt = row.CreatedAt, row.UpdatedAt
	return nil
}

func (l *GormLedger) Find(ctx context.Context, id string) (*Order, error) {
	var row orderRow
	err := l.DB.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.Unavailable("find order", err)
	}
	return row.toOrder(), nil
}

func (l *GormLedger) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	if err := checkTransition(from, to); err != nil {
		return false, err
	}
	now := time.Now().UTC()
	updates := map[string]any{"status": string(to), "updated_at": now}
	if to == StatusPaid {
		updates["paid_at"] = now
	}
	res := l.DB.WithContext(ctx).Model(&orderRow{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, storage.Unavailable("transition order", res.Error)
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	var n int64
	if err := l.DB.WithContext(ctx).Model(&orderRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, storage.Unavailable("transition order", err)
	}
	if n == 0 {
		return false, ErrNotFound
	}
	return false, nil
}

func (l *GormLedger) AttachItem(ctx context.Context, id string, itemID int64) error {
	res := l.DB.WithContext(ctx).Model(&orderRow{}).Where("id = ?", id).
		Updates(map[string]any{"item_id": itemID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return storage.Unavailable("attach item", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (l *GormLedger) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	db := l.DB.WithContext(ctx).Model(&orderRow{})
	if err := db.Where("status = ?", string(StatusPaid)).Count(&st.CompletedOrders).Error; err != nil {
		return Stats{}, storage.Unavailable("order stats", err)
	}
	if err := l.DB.WithContext(ctx).Model(&orderRow{}).Distinct("buyer_id").Count(&st.Buyers).Error; err != nil {
		return Stats{}, storage.Unavailable("order stats", err)
	}
	return st, nil
}

// DailyPaid reads paid_at and groups in Go; SQLite stores timestamps as text
// and its date functions would depend on the driver's format.
func (l *GormLedger) DailyPaid(ctx context.Context, since time.Time) ([]DayCount, error) {
	var rows []orderRow
	err := l.DB.WithContext(ctx).Model(&orderRow{}).Select("paid_at").
		Where("paid_at IS NOT NULL AND paid_at >= ?", since.UTC()).
		Find(&rows).Error
	if err != nil {
		return nil, storage.Unavailable("daily paid", err)
	}
	paid := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		if r.PaidAt != nil {
			paid = append(paid, *r.PaidAt)
		}
	}
	return groupByDay(paid, since), nil
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed")
}
