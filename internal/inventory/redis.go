package inventory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/ariefcatur/go-digital-shop/internal/redisx"
	"github.com/ariefcatur/go-digital-shop/internal/storage"
	"github.com/redis/go-redis/v9"
)

// KEYS[1]=available list, ARGV: item key prefix, order id, consumed_at(unix ms).
// LPOP + tandai consumed dalam satu script, jadi id yang sama tidak mungkin keluar dua kali.
var takeOneScript = redis.NewScript(`
local id = redis.call('LPOP', KEYS[1])
if not id then
  return false
end
local key = ARGV[1] .. id
redis.call('HSET', key, 'consumed_by', ARGV[2], 'consumed_at', ARGV[3])
local fields = redis.call('HMGET', key, 'group', 'payload', 'created_at')
return {id, fields[1], fields[2], fields[3]}
`)

// RedisPool keeps available ids in a list per group and each unit in a hash.
type RedisPool struct{ RDB *redis.Client }

func availableKey(groupID string) string { return fmt.Sprintf(redisx.KeyStockAvailable, groupID) }

func itemKey(id int64) string { return redisx.KeyStockItemPrefix + strconv.FormatInt(id, 10) }

func (p *RedisPool) Count(ctx context.Context, groupID string) (int, error) {
	n, err := p.RDB.LLen(ctx, availableKey(groupID)).Result()
	if err != nil {
		return 0, storage.Unavailable("count stock", err)
	}
	return int(n), nil
}

func (p *RedisPool) TakeOne(ctx context.Context, groupID, orderID string) (*Item, error) {
	now := time.Now().UTC()
	res, err := takeOneScript.Run(ctx, p.RDB, []string{availableKey(groupID)},
		redisx.KeyStockItemPrefix, orderID, now.UnixMilli()).Slice()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storage.Unavailable("take stock", err)
	}
	if len(res) != 4 {
		return nil, storage.Unavailable("take stock", fmt.Errorf("unexpected script reply %v", res))
	}

	idStr, _ := res[0].(string)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, storage.Unavailable("take stock", fmt.Errorf("bad item id %q", idStr))
	}
	it := &Item{ID: id, GroupID: groupID, ConsumedBy: orderID, ConsumedAt: &now}
	if s, ok := res[2].(string); ok {
		if it.Payload, err = decodePayload([]byte(s)); err != nil {
			return nil, storage.Unavailable("decode stock payload", err)
		}
	}
	if s, ok := res[3].(string); ok {
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			it.CreatedAt = time.UnixMilli(ms).UTC()
		}
	}
	return it, nil
}

func (p *RedisPool) Add(ctx context.Context, groupID string, payload Payload) (*Item, error) {
	raw, err := payload.encode()
	if err != nil {
		return nil, err
	}
	id, err := p.RDB.Incr(ctx, redisx.KeyStockSeq).Result()
	if err != nil {
		return nil, storage.Unavailable("add stock", err)
	}
	now := time.Now().UTC()
	_, err = p.RDB.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, itemKey(id),
			"group", groupID,
			"payload", string(raw),
			"created_at", now.UnixMilli(),
		)
		pipe.RPush(ctx, availableKey(groupID), id)
		return nil
	})
	if err != nil {
		return nil, storage.Unavailable("add stock", err)
	}
	return &Item{ID: id, GroupID: groupID, Payload: payload, CreatedAt: time.UnixMilli(now.UnixMilli()).UTC()}, nil
}
