package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/wisbric/ghingest/internal/telemetry"
)

// Handler executes one job's work. It returns the error its class-specific
// logic produced (or nil on success); Runtime classifies that error against
// the retry table and decides whether to reschedule or discard.
type Handler func(ctx context.Context, job Job) error

// Runtime dequeues jobs and drives them through their registered handler,
// applying the per-class retry policy from spec.md §4.11 on failure.
type Runtime struct {
	queue    Queue
	logger   *slog.Logger
	handlers map[string]Handler
}

// NewRuntime builds a Runtime over queue. Register handlers with Handle
// before calling RunOnce.
func NewRuntime(queue Queue, logger *slog.Logger) *Runtime {
	return &Runtime{
		queue:    queue,
		logger:   logger,
		handlers: make(map[string]Handler),
	}
}

// Handle registers the handler invoked for jobs of the given class.
func (r *Runtime) Handle(class string, h Handler) {
	r.handlers[class] = h
}

// RunOnce claims and processes a single due job. It returns false if no job
// was due, so callers can poll it in a loop with their own idle backoff.
func (r *Runtime) RunOnce(ctx context.Context) (bool, error) {
	job, ok, err := r.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}

	handler, known := r.handlers[job.Class]
	if !known {
		r.logger.Error("no handler registered for job class", "job_id", job.ID, "class", job.Class)
		_ = r.queue.Discard(ctx, job)
		return true, nil
	}

	runErr := handler(ctx, job)
	if runErr == nil {
		telemetry.JobAttemptsTotal.WithLabelValues(job.Class, "success").Inc()
		if err := r.queue.Discard(ctx, job); err != nil {
			r.logger.Error("discarding completed job", "job_id", job.ID, "class", job.Class, "error", err)
		}
		return true, nil
	}

	attempt := job.Attempts + 1
	d := classify(job.Class, attempt, runErr)

	if d.retry && attempt < d.maxAttempts {
		telemetry.JobAttemptsTotal.WithLabelValues(job.Class, "retry").Inc()
		r.logger.Warn("job failed, rescheduling",
			"job_id", job.ID, "class", job.Class, "attempt", attempt, "delay", d.delay, "error", runErr)
		if err := r.queue.Reschedule(ctx, job, d.delay); err != nil {
			r.logger.Error("rescheduling job", "job_id", job.ID, "class", job.Class, "error", err)
			return true, err
		}
		return true, nil
	}

	outcome := "discarded"
	if d.retry {
		outcome = "exhausted"
	}
	telemetry.JobAttemptsTotal.WithLabelValues(job.Class, outcome).Inc()
	r.logger.Error("job failed permanently",
		"job_id", job.ID, "class", job.Class, "attempts", attempt, "args", string(job.Args), "error", runErr)
	if recorder, ok := r.queue.(deadLetterRecorder); ok {
		if err := recorder.RecordDeadLetter(ctx, job, runErr, attempt); err != nil {
			r.logger.Error("recording dead letter", "job_id", job.ID, "class", job.Class, "error", err)
		}
	}
	if err := r.queue.Discard(ctx, job); err != nil {
		r.logger.Error("discarding failed job", "job_id", job.ID, "class", job.Class, "error", err)
	}
	return true, nil
}

// deadLetterRecorder is satisfied by Queue implementations that can
// persist terminal failures for operator inspection. *RedisQueue
// implements it; queues that don't are simply skipped.
type deadLetterRecorder interface {
	RecordDeadLetter(ctx context.Context, job Job, lastErr error, attempts int) error
}

// idlePoll is how long RunLoop waits after an empty dequeue before
// checking again.
const idlePoll = 500 * time.Millisecond

// RunLoop calls RunOnce until ctx is canceled, sleeping idlePoll whenever
// the queue has nothing due.
func (r *Runtime) RunLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		did, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.Error("job runtime iteration failed", "error", err)
		}
		if !did {
			select {
			case <-ctx.Done():
				return
			case <-time.After(idlePoll):
			}
		}
	}
}
