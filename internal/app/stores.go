// Package app wires config into the concrete stores and services every binary shares.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ariefcatur/go-digital-shop/internal/config"
	"github.com/ariefcatur/go-digital-shop/internal/inventory"
	"github.com/ariefcatur/go-digital-shop/internal/orders"
	"github.com/ariefcatur/go-digital-shop/internal/postgres"
	"github.com/ariefcatur/go-digital-shop/internal/redisx"
	"github.com/ariefcatur/go-digital-shop/internal/sqlite"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Stores holds the ledger and the pool picked by config, plus Redis when configured.
type Stores struct {
	Ledger orders.Ledger
	Pool   inventory.Pool
	Redis  *redis.Client

	closers []func() error
}

// OpenStores connects to the configured backends. On error nothing is left open.
func OpenStores(ctx context.Context, cfg config.Config, log *zap.Logger) (*Stores, error) {
	s := &Stores{}
	ready := false
	defer func() {
		if !ready {
			_ = s.Close()
		}
	}()

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		db, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		s.closers = append(s.closers, func() error { db.Close(); return nil })
		if err := postgres.Migrate(ctx, db); err != nil {
			return nil, err
		}
		s.Ledger = &orders.Repo{DB: db}
		s.Pool = &inventory.PostgresPool{DB: db}
	case config.BackendSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, func() error { return sqlite.Close(db) })
		ledger, err := orders.NewGormLedger(db)
		if err != nil {
			return nil, err
		}
		pool, err := inventory.NewGormPool(db)
		if err != nil {
			return nil, err
		}
		s.Ledger, s.Pool = ledger, pool
	case config.BackendMemory:
		log.Warn("memory_store_in_use", zap.String("note", "orders and stock are lost on restart"))
		s.Ledger = orders.NewMemoryLedger()
		s.Pool = inventory.NewMemoryPool()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	if cfg.RedisAddr != "" {
		rdb := redisx.New(cfg.RedisAddr, cfg.RedisDB)
		s.closers = append(s.closers, rdb.Close)
		if err := redisx.Ping(ctx, rdb); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
		s.Redis = rdb
	}
	if cfg.PoolBackend == config.BackendRedis {
		if s.Redis == nil {
			return nil, errors.New("redis pool requires REDIS_ADDR")
		}
		s.Pool = &inventory.RedisPool{RDB: s.Redis}
	}

	log.Info("stores_ready",
		zap.String("store", cfg.StoreBackend),
		zap.String("pool", cfg.PoolBackend),
		zap.Bool("redis", s.Redis != nil))
	ready = true
	return s, nil
}

// Close releases everything in reverse open order.
func (s *Stores) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
