package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

var errFakeUpstream = errors.New("upstream exploded")

func newTestQueue(t *testing.T) *RedisQueue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client)
}

func TestRedisQueueEnqueueDequeue(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	job, err := q.Enqueue(ctx, ClassFetchUser, map[string]string{"login": "octocat"}, 0)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	got, ok, err := q.Dequeue(ctx)
	if err != nil {
		t.Fatalf("Dequeue: %v", err)
	}
	if !ok {
		t.Fatal("Dequeue: expected a job")
	}
	if got.ID != job.ID || got.Class != ClassFetchUser {
		t.Fatalf("got %+v, want id %q class %q", got, job.ID, ClassFetchUser)
	}

	if _, ok, err := q.Dequeue(ctx); err != nil || ok {
		t.Fatalf("Dequeue after drain = ok:%v err:%v, want ok:false", ok, err)
	}
}

func TestRedisQueueDelayNotYetDue(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	if _, err := q.Enqueue(ctx, ClassFetchRepo, nil, time.Hour); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if _, ok, err := q.Dequeue(ctx); err != nil || ok {
		t.Fatalf("Dequeue before due = ok:%v err:%v, want ok:false", ok, err)
	}
}

func TestRedisQueueReschedule(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	if _, err := q.Enqueue(ctx, ClassProcessAvatar, nil, 0); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	claimed, ok, err := q.Dequeue(ctx)
	if err != nil || !ok {
		t.Fatalf("Dequeue: ok:%v err:%v", ok, err)
	}

	if err := q.Reschedule(ctx, claimed, time.Hour); err != nil {
		t.Fatalf("Reschedule: %v", err)
	}

	if _, ok, err := q.Dequeue(ctx); err != nil || ok {
		t.Fatalf("Dequeue right after reschedule = ok:%v err:%v, want ok:false", ok, err)
	}
}

func TestRedisQueueRecordDeadLetter(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	job, err := q.Enqueue(ctx, ClassFetchOrg, nil, 0)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := q.RecordDeadLetter(ctx, job, errFakeUpstream, 5); err != nil {
		t.Fatalf("RecordDeadLetter: %v", err)
	}

	fields, err := q.client.HGetAll(ctx, deadLetterStem+job.ID).Result()
	if err != nil {
		t.Fatalf("HGetAll: %v", err)
	}
	if fields["class"] != ClassFetchOrg {
		t.Errorf("class = %q, want %q", fields["class"], ClassFetchOrg)
	}
	if fields["attempts"] != "5" {
		t.Errorf("attempts = %q, want 5", fields["attempts"])
	}
	if fields["error"] != errFakeUpstream.Error() {
		t.Errorf("error = %q, want %q", fields["error"], errFakeUpstream.Error())
	}

	ttl, err := q.client.TTL(ctx, deadLetterStem+job.ID).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > deadLetterTTL {
		t.Errorf("ttl = %v, want (0, %v]", ttl, deadLetterTTL)
	}
}

func TestRedisQueueDiscard(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t)

	job, err := q.Enqueue(ctx, ClassHandleEvent, nil, 0)
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := q.Discard(ctx, job); err != nil {
		t.Fatalf("Discard: %v", err)
	}

	if _, ok, err := q.Dequeue(ctx); err != nil || ok {
		t.Fatalf("Dequeue after discard = ok:%v err:%v, want ok:false", ok, err)
	}
}
