// Package ratelimit coordinates outbound calls to a rate-limited upstream
// API by sharing one record per resource class in a kv.Store.
package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"github.com/wisbric/ghingest/internal/telemetry"
	"github.com/wisbric/ghingest/pkg/kv"
)

const (
	buffer     = 5 * time.Second
	minSleep   = 1 * time.Second
	minTTL     = 60 * time.Second
	lowWater   = 0.10
	keyPrefix  = "rate_limit:"
)

// Record is the JSON document stored per resource class.
type Record struct {
	Limit     int64     `json:"limit"`
	Remaining int64     `json:"remaining"`
	Reset     time.Time `json:"reset"`
}

// Coordinator throttles calls against a single resource class ahead of time
// and records the server's rate-limit headers after each response.
type Coordinator struct {
	store    kv.Store
	logger   *slog.Logger
	resource string

	// sleep is swappable in tests so they don't actually block.
	sleep func(ctx context.Context, d time.Duration)
}

// New creates a Coordinator for the given resource class (e.g. "core",
// "search") backed by store.
func New(store kv.Store, logger *slog.Logger, resource string) *Coordinator {
	return &Coordinator{
		store:    store,
		logger:   logger,
		resource: resource,
		sleep:    interruptibleSleep,
	}
}

func (c *Coordinator) key() string {
	return keyPrefix + c.resource
}

// CheckLimit blocks until it is safe to make the next call, sleeping if the
// last recorded record shows the window is exhausted and not yet reset.
func (c *Coordinator) CheckLimit(ctx context.Context) error {
	c.logger.Debug("checking rate limit", "resource", c.resource)

	raw, ok, err := c.store.Get(ctx, c.key())
	if err != nil {
		return fmt.Errorf("reading rate limit record: %w", err)
	}
	if !ok {
		return nil
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		c.logger.Warn("discarding unparseable rate limit record", "resource", c.resource, "error", err)
		return c.store.Delete(ctx, c.key())
	}

	now := time.Now()
	if rec.Remaining == 0 && rec.Reset.After(now) {
		d := rec.Reset.Sub(now) + buffer
		if d < minSleep {
			d = minSleep
		}
		c.logger.Warn("rate limit exhausted, sleeping", "resource", c.resource, "sleep", d)
		telemetry.RateLimitSleepSeconds.WithLabelValues(c.resource).Observe(d.Seconds())
		c.sleep(ctx, d)
		c.logger.Info("rate limit sleep complete, resuming", "resource", c.resource)
		return c.store.Delete(ctx, c.key())
	}

	if rec.Limit > 0 && float64(rec.Remaining) < float64(rec.Limit)*lowWater {
		c.logger.Warn("rate limit low water", "resource", c.resource, "remaining", rec.Remaining, "limit", rec.Limit)
	}

	return nil
}

// RecordLimit extracts limit/remaining/reset from response headers and
// stores them. Headers missing any of the three fields are ignored.
func (c *Coordinator) RecordLimit(ctx context.Context, headers http.Header) error {
	limit, limitOK := headerInt(headers, "X-RateLimit-Limit")
	remaining, remainingOK := headerInt(headers, "X-RateLimit-Remaining")
	resetEpoch, resetOK := headerInt(headers, "X-RateLimit-Reset")
	if !limitOK || !remainingOK || !resetOK {
		return nil
	}

	reset := time.Unix(resetEpoch, 0)
	rec := Record{Limit: limit, Remaining: remaining, Reset: reset}
	telemetry.RateLimitRemaining.WithLabelValues(c.resource).Set(float64(remaining))

	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshaling rate limit record: %w", err)
	}

	ttl := time.Until(reset) + 2*buffer
	if ttl < minTTL {
		ttl = minTTL
	}

	if err := c.store.Set(ctx, c.key(), body, ttl); err != nil {
		return fmt.Errorf("storing rate limit record: %w", err)
	}
	return nil
}

// headerInt looks up a header case-insensitively, tolerating both a scalar
// value and the first element of a repeated header.
func headerInt(headers http.Header, canonical string) (int64, bool) {
	key := textproto.CanonicalMIMEHeaderKey(canonical)
	values := headers[key]
	if len(values) == 0 {
		return 0, false
	}
	n, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func interruptibleSleep(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
