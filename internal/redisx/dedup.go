package redisx

import (
	"context"
	"fmt"
	"github.com/redis/go-redis/v9"
	"time"
)

// Dedup remembers ids it has seen for TTL.
type Dedup struct {
	RDB *redis.Client
	TTL time.Duration
}

// Claim returns true the first time (scope, id) is seen. SETNX, jadi aman dipanggil paralel.
func (d *Dedup) Claim(ctx context.Context, scope, id string) (bool, error) {
	ttl := d.TTL
	if ttl <= 0 {
		ttl = TTLDedup
	}
	return d.RDB.SetNX(ctx, fmt.Sprintf(KeyDedup, scope, id), "1", ttl).Result()
}
