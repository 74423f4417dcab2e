package app

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/ariefcatur/go-digital-shop/internal/checkout"
	"github.com/ariefcatur/go-digital-shop/internal/config"
	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestOpenStoresBackends(t *testing.T) {
	ctx := context.Background()

	mem, err := OpenStores(ctx, config.Config{StoreBackend: config.BackendMemory, PoolBackend: config.BackendStore}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &orders.MemoryLedger{}, mem.Ledger)
	assert.IsType(t, &inventory.MemoryPool{}, mem.Pool)
	assert.Nil(t, mem.Redis)
	require.NoError(t, mem.Close())

	lite, err := OpenStores(ctx, config.Config{
		StoreBackend: config.BackendSQLite, PoolBackend: config.BackendStore, SQLitePath: ":memory:",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &orders.GormLedger{}, lite.Ledger)
	assert.IsType(t, &inventory.GormPool{}, lite.Pool)
	require.NoError(t, lite.Close())

	mr := miniredis.RunT(t)
	withRedis, err := OpenStores(ctx, config.Config{
		StoreBackend: config.BackendMemory, PoolBackend: config.BackendRedis, RedisAddr: mr.Addr(),
	}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &inventory.RedisPool{}, withRedis.Pool)
	require.NotNil(t, withRedis.Redis)
	require.NoError(t, withRedis.Close())
}

func TestNewServiceCatalog(t *testing.T) {
	st, err := OpenStores(context.Background(), config.Config{StoreBackend: config.BackendMemory, PoolBackend: config.BackendStore}, zap.NewNop())
	require.NoError(t, err)
	defer st.Close()

	svc, stop, err := NewService(config.Config{Catalog: "A=1000", AdminChatID: 9}, st, nil, nil, zap.NewNop())
	require.NoError(t, err)
	defer stop()
	price, ok := svc.Catalog.Price("A")
	assert.True(t, ok)
	assert.Equal(t, int64(1000), price)
	assert.Equal(t, int64(9), svc.AdminID)
	assert.Equal(t, checkout.NopEvents, svc.Events)

	_, _, err = NewService(config.Config{Catalog: "A=abc"}, st, nil, nil, zap.NewNop())
	assert.Error(t, err)
}
