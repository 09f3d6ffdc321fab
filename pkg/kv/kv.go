// Package kv provides a small key-value abstraction used by the rate
// coordinator to share its records. It has two adapters: an in-memory
// one for tests and single-process use, and a Redis-backed one for
// multi-process deployments.
package kv

import (
	"context"
	"time"
)

// Store is the KV abstraction every adapter implements.
type Store interface {
	// Get returns the value for key, or ok=false if absent or expired.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Set writes value for key. A zero ttl means no expiration.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. It is not an error if key does not exist.
	Delete(ctx context.Context, key string) error

	// Incr adds n to the integer stored at key (default 0) and returns the
	// new value. Must be atomic across processes.
	Incr(ctx context.Context, key string, n int64) (int64, error)

	// Decr subtracts n from the integer stored at key, saturating at zero.
	// Must be atomic across processes.
	Decr(ctx context.Context, key string, n int64) (int64, error)
}
