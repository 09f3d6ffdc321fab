// Package ingest implements the ingestion worker: a single long-running
// loop that runs an ingestion cycle, backs off by error class, and sleeps
// between cycles until canceled (spec.md §4.12).
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/wisbric/ghingest/pkg/githubapi"
	"github.com/wisbric/ghingest/pkg/orchestrator"
)

const (
	// DefaultPollInterval is used when no interval is configured or the
	// configured value cannot be parsed.
	DefaultPollInterval = 60 * time.Second

	rateLimitedBackoff = 300 * time.Second
	serverErrorBackoff = 30 * time.Second
	genericBackoff     = 30 * time.Second
)

// Cycler runs one fetch-and-enqueue cycle. *orchestrator.Orchestrator
// satisfies this.
type Cycler interface {
	RunCycle(ctx context.Context) (orchestrator.Result, error)
}

// Worker runs ingestion cycles until its context is canceled.
type Worker struct {
	cycler       Cycler
	logger       *slog.Logger
	pollInterval time.Duration
}

// New builds a Worker. pollInterval, if non-zero, takes precedence over
// the INGESTION_POLL_INTERVAL environment variable and the 60s default.
func New(cycler Cycler, logger *slog.Logger, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = ResolvePollInterval(os.Getenv("INGESTION_POLL_INTERVAL"), logger)
	}
	return &Worker{cycler: cycler, logger: logger, pollInterval: pollInterval}
}

// ResolvePollInterval parses raw as a whole number of seconds, falling
// back to DefaultPollInterval (with a warning) on any parse failure or
// non-positive value.
func ResolvePollInterval(raw string, logger *slog.Logger) time.Duration {
	if raw == "" {
		return DefaultPollInterval
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds <= 0 {
		logger.Warn("invalid INGESTION_POLL_INTERVAL, falling back to default",
			"value", raw, "default", DefaultPollInterval)
		return DefaultPollInterval
	}
	return time.Duration(seconds) * time.Second
}

// Run loops until ctx is canceled, invoking one cycle per iteration and
// sleeping pollInterval between them (after a failed cycle, its
// error-class backoff instead). It returns without running a cycle if ctx
// is already canceled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("ingestion worker started", "poll_interval", w.pollInterval)

	for {
		if ctx.Err() != nil {
			w.logger.Info("ingestion worker stopping")
			return nil
		}

		result, err := w.cycler.RunCycle(ctx)
		switch {
		case err == nil:
			w.logger.Info("ingestion cycle complete",
				"events_fetched", result.EventsFetched, "jobs_enqueued", result.JobsEnqueued)
		case errors.Is(err, githubapi.ErrRateLimited):
			w.logger.Warn("ingestion cycle rate limited", "error", err)
			if !w.interruptibleSleep(ctx, rateLimitedBackoff) {
				return nil
			}
			continue
		case errors.Is(err, githubapi.ErrServerError):
			w.logger.Error("ingestion cycle failed with server error", "error", err)
			if !w.interruptibleSleep(ctx, serverErrorBackoff) {
				return nil
			}
			continue
		default:
			w.logger.Error("ingestion cycle failed", "error", err)
			if !w.interruptibleSleep(ctx, genericBackoff) {
				return nil
			}
			continue
		}

		if !w.interruptibleSleep(ctx, w.pollInterval) {
			return nil
		}
	}
}

// interruptibleSleep waits for d or ctx cancellation, whichever comes
// first. It returns false if ctx was canceled, so the caller can return
// promptly instead of starting another cycle.
func (w *Worker) interruptibleSleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
