package kv

import (
	"context"
	"testing"
	"time"
)

func TestMemoryGetSetDelete(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, ok, err := m.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok:%v err:%v, want ok:false", ok, err)
	}

	if err := m.Set(ctx, "k", []byte("v"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok, err := m.Get(ctx, "k")
	if err != nil || !ok || string(val) != "v" {
		t.Fatalf("Get(k) = %q, ok:%v err:%v, want v, true, nil", val, ok, err)
	}

	if err := m.Delete(ctx, "k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("Get after Delete should be absent")
	}
}

func TestMemoryTTLExpiresOnRead(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if err := m.Set(ctx, "k", []byte("v"), time.Millisecond); err != nil {
		t.Fatalf("Set: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	if _, ok, err := m.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("Get after expiry = ok:%v err:%v, want ok:false", ok, err)
	}
	m.mu.Lock()
	_, stillThere := m.entries["k"]
	m.mu.Unlock()
	if stillThere {
		t.Fatal("expired entry should be removed on read")
	}
}

func TestMemoryIncrDecr(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(m *Memory) (int64, error)
		want int64
	}{
		{
			name: "incr from zero",
			run:  func(m *Memory) (int64, error) { return m.Incr(ctx, "n", 5) },
			want: 5,
		},
		{
			name: "decr saturates at zero",
			run:  func(m *Memory) (int64, error) { return m.Decr(ctx, "n", 100) },
			want: 0,
		},
		{
			name: "decr never negative after repeated calls",
			run: func(m *Memory) (int64, error) {
				m.Decr(ctx, "n", 1)
				m.Decr(ctx, "n", 1)
				return m.Decr(ctx, "n", 1)
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMemory()
			got, err := tt.run(m)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMemoryIncrThenDecr(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if _, err := m.Incr(ctx, "n", 10); err != nil {
		t.Fatalf("Incr: %v", err)
	}
	got, err := m.Decr(ctx, "n", 3)
	if err != nil {
		t.Fatalf("Decr: %v", err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
}
