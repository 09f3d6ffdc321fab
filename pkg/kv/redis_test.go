package kv

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *Redis {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedis(client)
}

func TestRedisGetSetDelete(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	if _, ok, err := r.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok:%v err:%v, want ok:false", ok, err)
	}

	if err := r.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := r.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("Get(k) = %q, ok:%v err:%v, want v, true, nil", val, ok, err)
	}

	if err := r.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := r.Get(ctx, "k"); ok {
		t.Fatal("Get after Delete should be absent")
	}
}

func TestRedisDecrSaturatesAtZero(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	tests := []struct {
		name string
		n    int64
		want int64
	}{
		{"decr from zero", 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Decr(ctx, "counter-"+tt.name, tt.n)
			if err != nil {
				t.Fatalf("Decr: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRedisIncrThenDecr(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)

	if _, err := r.Incr(ctx, "n", 10); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	got, err := r.Decr(ctx, "n", 3)
	if err != nil {
		t.Fatalf("Decr: %v", err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}

	got, err = r.Decr(ctx, "n", 100)
	if err != nil {
		t.Fatalf("Decr: %v", err)
	}
	if got != 0 {
		t.Errorf("got %d, want 0 (saturated)", got)
	}
}
