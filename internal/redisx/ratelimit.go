package redisx

import (
	"context"
	"fmt"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"time"
)

// KEYS[1]=limit key, ARGV: now(ms), windowStart(ms), windowSec, member, limit.
// Return jumlah request di window, atau -1 kalau sudah lewat limit.
var rateLimitScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local windowStart = tonumber(ARGV[2])
local windowSec = tonumber(ARGV[3])
local member = ARGV[4]

redis.call('ZREMRANGEBYSCORE', key, '0', windowStart)
local count = redis.call('ZCARD', key)
if count < tonumber(ARGV[5]) then
  redis.call('ZADD', key, now, member)
  redis.call('EXPIRE', key, windowSec)
  return count + 1
end
return -1
`)

// Limiter is a per-buyer sliding window over Redis.
type Limiter struct {
	RDB    *redis.Client
	Limit  int
	Window time.Duration
}

// Allow reports whether chatID may press buy again. Redis error = tetap lolos
// (fail-open), error dikembalikan supaya bisa di-log.
func (l *Limiter) Allow(ctx context.Context, chatID int64) (bool, error) {
	now := time.Now()
	windowSec := int64(l.Window / time.Second)
	if windowSec <= 0 {
		windowSec = 1
	}
	nowMs := now.UnixMilli()
	windowStart := nowMs - windowSec*1000
	member := fmt.Sprintf("%d-%s", nowMs, uuid.NewString())

	res, err := rateLimitScript.Run(ctx, l.RDB, []string{fmt.Sprintf(KeyRateLimitBuy, chatID)},
		nowMs, windowStart, windowSec, member, l.Limit).Int()
	if err != nil {
		return true, err
	}
	return res >= 0, nil
}
