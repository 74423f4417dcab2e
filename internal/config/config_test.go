package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, BackendSQLite, cfg.StoreBackend)
	assert.Equal(t, BackendStore, cfg.PoolBackend)
	assert.Equal(t, DispatchInline, cfg.DispatchMode)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, 10*time.Second, cfg.BuyRateWindow)
	assert.Equal(t, 48*time.Hour, cfg.DedupTTL)
	assert.False(t, cfg.VerifyPayments)
	assert.Equal(t, "shop.payment.notified", cfg.PaymentTopic)
	assert.Equal(t, "shop.payment.notified.dlq", cfg.PaymentDLQTopic)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("POOL_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("DISPATCH_MODE", "kafka")
	t.Setenv("ADMIN_CHAT_ID", "-100123")
	t.Setenv("PAKASIR_VERIFY_WEBHOOK", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, BackendRedis, cfg.PoolBackend)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, int64(-100123), cfg.AdminChatID)
	assert.True(t, cfg.VerifyPayments)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]map[string]string{
		"unknown store":      {"STORE_BACKEND": "mongo"},
		"redis pool no addr": {"POOL_BACKEND": "redis"},
		"kafka no brokers":   {"DISPATCH_MODE": "kafka"},
		"zero workers":       {"WORKERS": "0"},
		"bad rate limit":     {"BUY_RATE_LIMIT": "x"},
		"bad admin id":       {"ADMIN_CHAT_ID": "admin"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestRequireBot(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.RequireBot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOT_TOKEN")

	cfg.BotToken = "t"
	cfg.WebhookSecret = "s"
	cfg.PakasirSlug = "shop"
	cfg.PakasirAPIKey = "k"
	cfg.PakasirWebhookSecret = "p"
	assert.NoError(t, cfg.RequireBot())
}
