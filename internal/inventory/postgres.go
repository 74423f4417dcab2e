package inventory

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-digital-shop/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresPool keeps stock rows in stock_items. Consumed rows stay for audit
// with consumed_by/consumed_at set.
type PostgresPool struct{ DB *pgxpool.Pool }

func (p *PostgresPool) Count(ctx context.Context, groupID string) (int, error) {
	var n int
	err := p.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM stock_items
		WHERE group_id=$1 AND consumed_at IS NULL`, groupID).Scan(&n)
	if err != nil {
		return 0, storage.Unavailable("count stock", err)
	}
	return n, nil
}

// TakeOne: SKIP LOCKED supaya dua order paralel tidak rebutan baris yang sama;
// masing-masing dapat baris berbeda atau kosong.
func (p *PostgresPool) TakeOne(ctx context.Context, groupID, orderID string) (*Item, error) {
	var (
		it  Item
		raw []byte
	)
	err := p.DB.QueryRow(ctx, `
		UPDATE stock_items SET consumed_by=$2, consumed_at=now()
		WHERE id = (
			SELECT id FROM stock_items
			WHERE group_id=$1 AND consumed_at IS NULL
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING id, group_id, payload, created_at, consumed_by, consumed_at`,
		groupID, orderID,
	).Scan(&it.ID, &it.GroupID, &raw, &it.CreatedAt, &it.ConsumedBy, &it.ConsumedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Unavailable("take stock", err)
	}
	if it.Payload, err = decodePayload(raw); err != nil {
		return nil, storage.Unavailable("decode stock payload", err)
	}
	return &it, nil
}

func (p *PostgresPool) Add(ctx context.Context, groupID string, payload Payload) (*Item, error) {
	raw, err := payload.encode()
	if err != nil {
		return nil, err
	}
	it := Item{GroupID: groupID, Payload: payload}
	err = p.DB.QueryRow(ctx, `
		INSERT INTO stock_items(group_id, payload) VALUES ($1, $2)
		RETURNING id, created_at`, groupID, string(raw),
	).Scan(&it.ID, &it.CreatedAt)
	if err != nil {
		return nil, storage.Unavailable("add stock", err)
	}
	return &it, nil
}

// AddBatch inserts all rows in one transaction; dipakai stockctl import.
func (p *PostgresPool) AddBatch(ctx context.Context, groupID string, payloads []Payload) (int, error) {
	tx, err := p.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, storage.Unavailable("add stock batch", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, pl := range payloads {
		raw, err := pl.encode()
		if err != nil {
			return 0, err
		}
		if _, err := tx.Exec(ctx, `INSERT INTO stock_items(group_id, payload) VALUES ($1, $2)`, groupID, string(raw)); err != nil {
			return 0, storage.Unavailable("add stock batch", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, storage.Unavailable("add stock batch", err)
	}
	return len(payloads), nil
}
