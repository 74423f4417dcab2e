package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/storage"
	"gorm.io/gorm"
)

type stockRow struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	GroupID    string `gorm:"size:32;not null;index:idx_stock_available,priority:1"`
	Payload    string `gorm:"type:text;not null"`
	CreatedAt  time.Time
	ConsumedBy *string    `gorm:"size:64"`
	ConsumedAt *time.Time `gorm:"index:idx_stock_available,priority:2"`
}

func (stockRow) TableName() string { return "stock_items" }

func (r stockRow) toItem() (*Item, error) {
	p, err := decodePayload([]byte(r.Payload))
	if err != nil {
		return nil, err
	}
	it := &Item{ID: r.ID, GroupID: r.GroupID, Payload: p, CreatedAt: r.CreatedAt, ConsumedAt: r.ConsumedAt}
	if r.ConsumedBy != nil {
		it.ConsumedBy = *r.ConsumedBy
	}
	return it, nil
}

// GormPool is the SQLite-backed pool. Take is a conditional UPDATE on the
// oldest free row; a lost race just moves on to the next row.
type GormPool struct{ DB *gorm.DB }

const maxTakeAttempts = 5

func NewGormPool(db *gorm.DB) (*GormPool, error) {
	if err := db.AutoMigrate(&stockRow{}); err != nil {
		return nil, storage.Unavailable("migrate stock", err)
	}
	return &GormPool{DB: db}, nil
}

func (p *GormPool) Count(ctx context.Context, groupID string) (int, error) {
	var n int64
	err := p.DB.WithContext(ctx).Model(&stockRow{}).
		Where("group_id = ? AND consumed_at IS NULL", groupID).Count(&n).Error
	if err != nil {
		return 0, storage.Unavailable("count stock", err)
	}
	return int(n), nil
}

func (p *GormPool) TakeOne(ctx context.Context, groupID, orderID string) (*Item, error) {
	for attempt := 0; attempt < maxTakeAttempts; attempt++ {
		var row stockRow
		err := p.DB.WithContext(ctx).
			Where("group_id = ? AND consumed_at IS NULL", groupID).
			Order("id").Take(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, storage.Unavailable("take stock", err)
		}

		now := time.Now().UTC()
		res := p.DB.WithContext(ctx).Model(&stockRow{}).
			Where("id = ? AND consumed_at IS NULL", row.ID).
			Updates(map[string]any{"consumed_by": orderID, "consumed_at": now})
		if res.Error != nil {
			return nil, storage.Unavailable("take stock", res.Error)
		}
		if res.RowsAffected == 0 {
			continue // keduluan
		}
		row.ConsumedBy, row.ConsumedAt = &orderID, &now
		it, err := row.toItem()
		if err != nil {
			return nil, storage.Unavailable("decode stock payload", err)
		}
		return it, nil
	}
	return nil, storage.Unavailable("take stock", errors.New("too much contention"))
}

func (p *GormPool) Add(ctx context.Context, groupID string, payload Payload) (*Item, error) {
	raw, err := payload.encode()
	if err != nil {
		return nil, err
	}
	row := stockRow{GroupID: groupID, Payload: string(raw)}
	if err := p.DB.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, storage.Unavailable("add stock", err)
	}
	return &Item{ID: row.ID, GroupID: groupID, Payload: payload, CreatedAt: row.CreatedAt}, nil
}

func (p *GormPool) AddBatch(ctx context.Context, groupID string, payloads []Payload) (int, error) {
	rows := make([]stockRow, 0, len(payloads))
	for _, pl := range payloads {
		raw, err := pl.encode()
		if err != nil {
			return 0, err
		}
		rows = append(rows, stockRow{GroupID: groupID, Payload: string(raw)})
	}
	if len(rows) == 0 {
		return 0, nil
	}
	err := p.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(&rows, 200).Error
	})
	if err != nil {
		return 0, storage.Unavailable("add stock batch", err)
	}
	return len(rows), nil
}
