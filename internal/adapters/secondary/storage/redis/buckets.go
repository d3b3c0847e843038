package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/admin/loventia/discover/internal/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

// INCR и установка TTL одним шагом: окно начинается с первого запроса
var incrementScript = redis.NewScript(`
local count = redis.call('INCR', KEYS[1])
if count == 1 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
end
local ttl = redis.call('PTTL', KEYS[1])
if ttl < 0 then
	redis.call('PEXPIRE', KEYS[1], ARGV[1])
	ttl = tonumber(ARGV[1])
end
return {count, ttl}
`)

// BucketStore окна rate limit в Redis, общие для всех инстансов
type BucketStore struct {
	client *redis.Client
	prefix string
}

func NewBucketStore(client *redis.Client, prefix string) *BucketStore {
	return &BucketStore{client: client, prefix: prefix}
}

var _ ratelimit.BucketStore = (*BucketStore)(nil)

func (s *BucketStore) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (ratelimit.Bucket, error) {
	res, err := incrementScript.Run(ctx, s.client, []string{s.prefix + key}, window.Milliseconds()).Int64Slice()
	if err != nil {
		return ratelimit.Bucket{}, fmt.Errorf("redis bucket increment failed: %w", err)
	}
	if len(res) != 2 {
		return ratelimit.Bucket{}, fmt.Errorf("redis bucket increment: unexpected reply %v", res)
	}

	return ratelimit.Bucket{
		Count:   int(res[0]),
		ResetAt: now.Add(time.Duration(res[1]) * time.Millisecond),
	}, nil
}

// Sweep истечение ключей делает сам Redis
func (s *BucketStore) Sweep(context.Context, time.Time) (int, error) {
	return 0, nil
}
