package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-digital-shop/internal/postgres/pgtest"
	"github.com/ariefcatur/go-digital-shop/internal/redisx"
	"github.com/ariefcatur/go-digital-shop/internal/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pools(t *testing.T) map[string]Pool {
	t.Helper()
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close(db) })
	gp, err := NewGormPool(db)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redisx.New(mr.Addr(), 0)
	t.Cleanup(func() { _ = rdb.Close() })

	m := map[string]Pool{
		"memory": NewMemoryPool(),
		"sqlite": gp,
		"redis":  &RedisPool{RDB: rdb},
	}
	// Postgres ikut diuji kalau POSTGRES_DSN di-set.
	if pg := pgtest.Open(t); pg != nil {
		m["postgres"] = &PostgresPool{DB: pg}
	}
	return m
}

func code(v string) Payload { return Payload{{Label: "code", Value: v}} }

func TestPoolFIFO(t *testing.T) {
	ctx := context.Background()
	for name, p := range pools(t) {
		t.Run(name, func(t *testing.T) {
			_, err := p.Add(ctx, "A", code("X1"))
			require.NoError(t, err)
			_, err = p.Add(ctx, "A", Payload{{"email", "a@b.c"}, {"password", "pw"}})
			require.NoError(t, err)
			_, err = p.Add(ctx, "B", code("Y1"))
			require.NoError(t, err)

			n, err := p.Count(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			it, err := p.TakeOne(ctx, "A", "O1")
			require.NoError(t, err)
			require.NotNil(t, it)
			assert.Equal(t, code("X1"), it.Payload)
			assert.Equal(t, "A", it.GroupID)
			assert.Equal(t, "O1", it.ConsumedBy)
			assert.NotNil(t, it.ConsumedAt)

			it, err = p.TakeOne(ctx, "A", "O2")
			require.NoError(t, err)
			require.NotNil(t, it)
			assert.Equal(t, Payload{{"email", "a@b.c"}, {"password", "pw"}}, it.Payload)

			it, err = p.TakeOne(ctx, "A", "O3")
			require.NoError(t, err)
			assert.Nil(t, it)

			n, err = p.Count(ctx, "A")
			require.NoError(t, err)
			assert.Equal(t, 0, n)

			n, err = p.Count(ctx, "B")
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestPoolEmptyGroup(t *testing.T) {
	ctx := context.Background()
	for name, p := range pools(t) {
		t.Run(name, func(t *testing.T) {
			n, err := p.Count(ctx, "none")
			require.NoError(t, err)
			assert.Zero(t, n)
			it, err := p.TakeOne(ctx, "none", "O1")
			require.NoError(t, err)
			assert.Nil(t, it)
		})
	}
}

func TestPoolNoDoubleTake(t *testing.T) {
	ctx := context.Background()
	const units, takers = 5, 20
	for name, p := range pools(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < units; i++ {
				_, err := p.Add(ctx, "A", code(fmt.Sprintf("X%d", i)))
				require.NoError(t, err)
			}

			var (
				mu   sync.Mutex
				seen = map[int64]string{}
				wg   sync.WaitGroup
			)
			for i := 0; i < takers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					it, err := p.TakeOne(ctx, "A", fmt.Sprintf("O%d", i))
					assert.NoError(t, err)
					if it == nil {
						return
					}
					mu.Lock()
					defer mu.Unlock()
					_, dup := seen[it.ID]
					assert.False(t, dup, "item %d handed out twice", it.ID)
					seen[it.ID] = it.ConsumedBy
				}(i)
			}
			wg.Wait()
			assert.LessOrEqual(t, len(seen), units)

			// SKIP LOCKED boleh melaporkan kosong sesaat; sisa stok diambil berurutan
			for {
				it, err := p.TakeOne(ctx, "A", "drain")
				require.NoError(t, err)
				if it == nil {
					break
				}
				_, dup := seen[it.ID]
				assert.False(t, dup, "item %d handed out twice", it.ID)
				seen[it.ID] = it.ConsumedBy
			}
			assert.Len(t, seen, units)
		})
	}
}

func TestPayloadFromRow(t *testing.T) {
	p := PayloadFromRow([]string{"email", " password ", ""}, []string{"a@b.c", "pw", "extra", "more"})
	assert.Equal(t, Payload{
		{"email", "a@b.c"},
		{"password", "pw"},
		{"field3", "extra"},
		{"field4", "more"},
	}, p)

	p = PayloadFromRow([]string{"email", "pin"}, []string{"a@b.c"})
	assert.Equal(t, Payload{{"email", "a@b.c"}, {"pin", ""}}, p)
	assert.Equal(t, Payload{{"email", "a@b.c"}}, p.NonEmpty())
}
