package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	pendingKey     = "jobs:pending"
	dataKeyStem    = "jobs:data:"
	deadLetterStem = "jobs:deadletter:"
	deadLetterTTL  = time.Hour
)

// dequeueScript atomically claims the earliest due job: it finds the
// lowest-scored member at or before ARGV[1] (now), removes it from the
// pending set, and fetches and deletes its payload in one round trip.
var dequeueScript = redis.NewScript(`
local members = redis.call("ZRANGEBYSCORE", KEYS[1], "-inf", ARGV[1], "LIMIT", 0, 1)
if #members == 0 then
	return false
end
local id = members[1]
redis.call("ZREM", KEYS[1], id)
local dataKey = ARGV[2] .. id
local payload = redis.call("GET", dataKey)
redis.call("DEL", dataKey)
return payload
`)

// RedisQueue is a Queue backed by a Redis sorted set (delayed visibility,
// scored by run time) plus a string per job body. Grounded in the same
// Job/QueueBackend shape the pack's Redis work-queue reference uses,
// trimmed to the single-consumer-group, no-priority case this service
// needs.
type RedisQueue struct {
	client *redis.Client
}

// NewRedisQueue wraps an existing Redis client.
func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client}
}

func (q *RedisQueue) Enqueue(ctx context.Context, class string, args any, delay time.Duration) (Job, error) {
	payload, err := json.Marshal(args)
	if err != nil {
		return Job{}, fmt.Errorf("marshaling job args: %w", err)
	}

	now := time.Now()
	job := Job{
		ID:        uuid.NewString(),
		Class:     class,
		Args:      payload,
		CreatedAt: now,
		RunAt:     now.Add(delay),
	}
	return job, q.store(ctx, job)
}

func (q *RedisQueue) Dequeue(ctx context.Context) (Job, bool, error) {
	result, err := dequeueScript.Run(ctx, q.client, []string{pendingKey}, time.Now().Unix(), dataKeyStem).Result()
	if err != nil {
		if err == redis.Nil {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("dequeuing job: %w", err)
	}

	raw, ok := result.(string)
	if !ok {
		// The script returned false (Lua boolean) because no job was due.
		return Job{}, false, nil
	}

	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return Job{}, false, fmt.Errorf("decoding dequeued job: %w", err)
	}
	return job, true, nil
}

func (q *RedisQueue) Reschedule(ctx context.Context, job Job, delay time.Duration) error {
	job.Attempts++
	job.RunAt = time.Now().Add(delay)
	return q.store(ctx, job)
}

func (q *RedisQueue) Discard(ctx context.Context, job Job) error {
	if err := q.client.Del(ctx, dataKeyStem+job.ID).Err(); err != nil {
		return fmt.Errorf("discarding job %s: %w", job.ID, err)
	}
	if err := q.client.ZRem(ctx, pendingKey, job.ID).Err(); err != nil {
		return fmt.Errorf("discarding job %s: %w", job.ID, err)
	}
	return nil
}

// RecordDeadLetter persists a terminally failed job's last error and
// attempt count into a bounded-retention Redis hash, so an operator can
// inspect recent discards with redis-cli without grepping logs. Runtime
// calls this through an optional-interface check, not through Queue
// itself, so the minimal Queue contract stays unchanged for other
// backends.
func (q *RedisQueue) RecordDeadLetter(ctx context.Context, job Job, lastErr error, attempts int) error {
	key := deadLetterStem + job.ID
	pipe := q.client.Pipeline()
	pipe.HSet(ctx, key, map[string]any{
		"class":    job.Class,
		"args":     string(job.Args),
		"attempts": attempts,
		"error":    lastErr.Error(),
	})
	pipe.Expire(ctx, key, deadLetterTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("recording dead letter for job %s: %w", job.ID, err)
	}
	return nil
}

func (q *RedisQueue) store(ctx context.Context, job Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshaling job: %w", err)
	}

	pipe := q.client.Pipeline()
	pipe.Set(ctx, dataKeyStem+job.ID, body, 0)
	pipe.ZAdd(ctx, pendingKey, redis.Z{Score: float64(job.RunAt.Unix()), Member: job.ID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("storing job %s: %w", job.ID, err)
	}
	return nil
}
