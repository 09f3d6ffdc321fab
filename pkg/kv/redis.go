package kv

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// decrScript decrements the integer at KEYS[1] by ARGV[1], saturating at
// zero, and returns the new value. Evaluated server-side so the
// read-clamp-write sequence is atomic across processes.
var decrScript = redis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]))
if current == nil then
	current = 0
end
local next = current - tonumber(ARGV[1])
if next < 0 then
	next = 0
end
redis.call("SET", KEYS[1], next)
return next
`)

// Redis is a Store backed by a shared Redis instance, suitable for
// multi-process deployments of the rate coordinator.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing Redis client.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("kv get %q: %w", key, err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("kv set %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("kv delete %q: %w", key, err)
	}
	return nil
}

func (r *Redis) Incr(ctx context.Context, key string, n int64) (int64, error) {
	val, err := r.client.IncrBy(ctx, key, n).Result()
	if err != nil {
		return 0, fmt.Errorf("kv incr %q: %w", key, err)
	}
	return val, nil
}

func (r *Redis) Decr(ctx context.Context, key string, n int64) (int64, error) {
	val, err := decrScript.Run(ctx, r.client, []string{key}, n).Int64()
	if err != nil {
		return 0, fmt.Errorf("kv decr %q: %w", key, err)
	}
	return val, nil
}
