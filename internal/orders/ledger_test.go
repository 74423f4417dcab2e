package orders

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/postgres/pgtest"
	"github.com/ariefcatur/go-digital-shop/internal/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ledgers(t *testing.T) map[string]Ledger {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })
	gl, err := NewGormLedger(db)
	require.NoError(t, err)

	m := map[string]Ledger{
		"memory": NewMemoryLedger(),
		"sqlite": gl,
	}
	// Postgres ikut diuji kalau POSTGRES_DSN di-set.
	if pg := pgtest.Open(t); pg != nil {
		m["postgres"] = &Repo{DB: pg}
	}
	return m
}

func newOrder(id string) *Order {
	return &Order{ID: id, BuyerID: 42, GroupID: "A", Amount: 9000}
}

func TestLedgerCreateFind(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.Create(ctx, newOrder("O1")))

			o, err := l.Find(ctx, "O1")
			require.NoError(t, err)
			assert.Equal(t, StatusPending, o.Status)
			assert.Equal(t, int64(42), o.BuyerID)
			assert.Equal(t, "A", o.GroupID)
			assert.Equal(t, int64(9000), o.Amount)
			assert.Nil(t, o.PaidAt)

			err = l.Create(ctx, newOrder("O1"))
			assert.ErrorIs(t, err, ErrDuplicateOrderID)

			_, err = l.Find(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLedgerTransition(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.Create(ctx, newOrder("O1")))

			ok, err := l.Transition(ctx, "O1", StatusPending, StatusPaid)
			require.NoError(t, err)
			assert.True(t, ok)

			// kedua kalinya harus no-op
			ok, err = l.Transition(ctx, "O1", StatusPending, StatusPaid)
			require.NoError(t, err)
			assert.False(t, ok)

			ok, err = l.Transition(ctx, "O1", StatusPending, StatusCancelled)
			require.NoError(t, err)
			assert.False(t, ok)

			o, err := l.Find(ctx, "O1")
			require.NoError(t, err)
			assert.Equal(t, StatusPaid, o.Status)
			assert.NotNil(t, o.PaidAt)

			_, err = l.Transition(ctx, "missing", StatusPending, StatusPaid)
			assert.ErrorIs(t, err, ErrNotFound)

			_, err = l.Transition(ctx, "O1", StatusPaid, StatusPending)
			assert.ErrorIs(t, err, ErrInvalidTransition)
		})
	}
}

func TestLedgerTransitionConcurrent(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.Create(ctx, newOrder("O1")))

			var wins atomic.Int32
			var wg sync.WaitGroup
			for i := 0; i < 16; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					to := StatusPaid
					if i%2 == 0 {
						to = StatusCancelled
					}
					ok, err := l.Transition(ctx, "O1", StatusPending, to)
					assert.NoError(t, err)
					if ok {
						wins.Add(1)
					}
				}(i)
			}
			wg.Wait()
			assert.Equal(t, int32(1), wins.Load())
		})
	}
}

func TestLedgerAttachItemAndStats(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, l.Create(ctx, newOrder("O1")))
			o2 := newOrder("O2")
			o2.BuyerID = 7
			require.NoError(t, l.Create(ctx, o2))
			require.NoError(t, l.Create(ctx, newOrder("O3")))

			_, err := l.Transition(ctx, "O1", StatusPending, StatusPaid)
			require.NoError(t, err)
			require.NoError(t, l.AttachItem(ctx, "O1", 11))
			assert.ErrorIs(t, l.AttachItem(ctx, "missing", 1), ErrNotFound)

			o, err := l.Find(ctx, "O1")
			require.NoError(t, err)
			assert.Equal(t, int64(11), o.ItemID)

			st, err := l.Stats(ctx)
			require.NoError(t, err)
			assert.Equal(t, Stats{CompletedOrders: 1, Buyers: 2}, st)
		})
	}
}

func TestLedgerDailyPaid(t *testing.T) {
	ctx := context.Background()
	for name, l := range ledgers(t) {
		t.Run(name, func(t *testing.T) {
			for _, id := range []string{"O1", "O2", "O3"} {
				require.NoError(t, l.Create(ctx, newOrder(id)))
			}
			_, err := l.Transition(ctx, "O1", StatusPending, StatusPaid)
			require.NoError(t, err)
			_, err = l.Transition(ctx, "O2", StatusPending, StatusPaid)
			require.NoError(t, err)
			_, err = l.Transition(ctx, "O2", StatusPaid, StatusPaidNoStock)
			require.NoError(t, err)

			days, err := l.DailyPaid(ctx, time.Now().Add(-time.Hour))
			require.NoError(t, err)
			require.Len(t, days, 1)
			assert.Equal(t, time.Now().UTC().Format(DayLayout), days[0].Day)
			assert.Equal(t, int64(2), days[0].Count)

			days, err = l.DailyPaid(ctx, time.Now().Add(time.Hour))
			require.NoError(t, err)
			assert.Empty(t, days)
		})
	}
}

func TestGroupByDay(t *testing.T) {
	day := func(s string) time.Time {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)
		return ts
	}
	got := groupByDay([]time.Time{
		day("2026-03-02T23:59:00Z"),
		day("2026-03-01T10:00:00Z"),
		day("2026-03-03T06:00:00+07:00"), // 2 Maret 23:00 UTC
		day("2026-02-20T10:00:00Z"),      // sebelum since
	}, day("2026-03-01T00:00:00Z"))
	assert.Equal(t, []DayCount{{Day: "2026-03-01", Count: 1}, {Day: "2026-03-02", Count: 2}}, got)
}
