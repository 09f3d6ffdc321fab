package jobs

import (
	"context"
	"time"
)

// Queue is the minimal at-least-once, delayed-visibility job queue the
// runtime drives. It does not deduplicate; the same class+args may be
// enqueued more than once (spec.md §4.10).
type Queue interface {
	// Enqueue schedules a new job of the given class to run after delay
	// (zero means immediately).
	Enqueue(ctx context.Context, class string, args any, delay time.Duration) (Job, error)

	// Dequeue claims the next due job, or returns ok=false if none is due.
	Dequeue(ctx context.Context) (job Job, ok bool, err error)

	// Reschedule returns job to the queue to run again after delay, with
	// its attempt count incremented.
	Reschedule(ctx context.Context, job Job, delay time.Duration) error

	// Discard permanently removes job from the queue.
	Discard(ctx context.Context, job Job) error
}
