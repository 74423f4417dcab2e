package orders

import (
	"context"
	"errors"
	"github.com/ariefcatur/go-digital-shop/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"time"
)

// Repo is the Postgres ledger. Schema ada di internal/postgres/schema.sql.
type Repo struct{ DB *pgxpool.Pool }

const pgUniqueViolation = "23505"

func (r *Repo) Create(ctx context.Context, o *Order) error {
	if o.Status == "" {
		o.Status = StatusPending
	}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO orders(id, buyer_id, group_id, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		o.ID, o.BuyerID, o.GroupID, o.Amount, string(o.Status),
	).Scan(&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return ErrDuplicateOrderID
		}
		return storage.Unavailable("create order", err)
	}
	return nil
}

func (r *Repo) Find(ctx context.Context, id string) (*Order, error) {
	var (
		o      Order
		status string
		itemID *int64
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, buyer_id, group_id, amount, status, item_id, created_at, updated_at, paid_at
		FROM orders WHERE id=$1`, id,
	).Scan(&o.ID, &o.BuyerID, &o.GroupID, &o.Amount, &status, &itemID, &o.CreatedAt, &o.UpdatedAt, &o.PaidAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storage.Unavailable("find order", err)
	}
	o.Status = Status(status)
	if itemID != nil {
		o.ItemID = *itemID
	}
	return &o, nil
}

// Transition: UPDATE bersyarat status=$from. RowsAffected 1 = kita yang menang.
func (r *Repo) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	if err := checkTransition(from, to); err != nil {
		return false, err
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE orders
		SET status=$3,
		    updated_at=now(),
		    paid_at=CASE WHEN $3='PAID' THEN now() ELSE paid_at END
		WHERE id=$1 AND status=$2`,
		id, string(from), string(to),
	)
	if err != nil {
		return false, storage.Unavailable("transition order", err)
	}
	if ct.RowsAffected() == 1 {
		return true, nil
	}

	// 0 rows: entah status sudah berubah, entah order memang tidak ada.
	var exists bool
	if err := r.DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM orders WHERE id=$1)`, id).Scan(&exists); err != nil {
		return false, storage.Unavailable("transition order", err)
	}
	if !exists {
		return false, ErrNotFound
	}
	return false, nil
}

func (r *Repo) AttachItem(ctx context.Context, id string, itemID int64) error {
	ct, err := r.DB.Exec(ctx, `UPDATE orders SET item_id=$2, updated_at=now() WHERE id=$1`, id, itemID)
	if err != nil {
		return storage.Unavailable("attach item", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FILTER (WHERE status='PAID'), COUNT(DISTINCT buyer_id)
		FROM orders`).Scan(&st.CompletedOrders, &st.Buyers)
	if err != nil {
		return Stats{}, storage.Unavailable("order stats", err)
	}
	return st, nil
}

func (r *Repo) DailyPaid(ctx context.Context, since time.Time) ([]DayCount, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT to_char(paid_at AT TIME ZONE 'UTC', 'YYYY-MM-DD') AS day, COUNT(*)
		FROM orders
		WHERE paid_at >= $1
		GROUP BY day
		ORDER BY day`, since)
	if err != nil {
		return nil, storage.Unavailable("daily paid", err)
	}
	defer rows.Close()
	var out []DayCount
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Count); err != nil {
			return nil, storage.Unavailable("daily paid", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("daily paid", err)
	}
	return out, nil
}
