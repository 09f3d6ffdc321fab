package kv

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type entry struct {
	value   []byte
	expires time.Time // zero means no expiration
}

func (e entry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// Memory is a thread-safe in-process Store. Expired entries are treated as
// absent and removed lazily on read.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]entry)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if e.expired(time.Now()) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expires time.Time
	if ttl > 0 {
		expires = time.Now().Add(ttl)
	}
	m.entries[key] = entry{value: append([]byte(nil), value...), expires: expires}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *Memory) Incr(_ context.Context, key string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustLocked(key, n), nil
}

func (m *Memory) Decr(_ context.Context, key string, n int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := m.adjustLocked(key, -n)
	if result < 0 {
		result = 0
		m.entries[key] = entry{value: []byte("0")}
	}
	return result, nil
}

// adjustLocked must be called with mu held.
func (m *Memory) adjustLocked(key string, delta int64) int64 {
	var current int64
	if e, ok := m.entries[key]; ok && !e.expired(time.Now()) {
		current, _ = strconv.ParseInt(string(e.value), 10, 64)
	}
	next := current + delta
	existing := m.entries[key]
	existing.value = []byte(strconv.FormatInt(next, 10))
	m.entries[key] = existing
	return next
}
