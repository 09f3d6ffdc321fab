// Package orchestrator runs one fetch-and-enqueue cycle: list public
// events, filter to pushes, and enqueue a handle-event job per event
// (spec.md §4.14).
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wisbric/ghingest/internal/telemetry"
	"github.com/wisbric/ghingest/pkg/githubapi"
	"github.com/wisbric/ghingest/pkg/jobs"
)

const pushEventType = "PushEvent"

// Result summarizes one cycle.
type Result struct {
	EventsFetched int
	JobsEnqueued  int
}

// Orchestrator runs ingestion cycles: one call to the upstream client,
// followed by one enqueue per observed push event. It does not save or
// classify anything itself; that happens in the handle-event job.
type Orchestrator struct {
	client *githubapi.Client
	queue  jobs.Queue
}

// New wires an Orchestrator from its collaborators.
func New(client *githubapi.Client, queue jobs.Queue) *Orchestrator {
	return &Orchestrator{client: client, queue: queue}
}

// RunCycle lists public events, filters to pushes, and enqueues a
// handle-event job per push. A NotModified response from upstream is not
// an error: it yields a zero Result.
func (o *Orchestrator) RunCycle(ctx context.Context) (Result, error) {
	defer func(start time.Time) {
		telemetry.CycleDurationSeconds.Observe(time.Since(start).Seconds())
	}(time.Now())

	events, err := o.client.ListPublicEvents(ctx)
	if err != nil {
		if errors.Is(err, githubapi.ErrNotModified) {
			return Result{}, nil
		}
		return Result{}, err
	}

	result := Result{EventsFetched: len(events)}
	telemetry.EventsFetchedTotal.Add(float64(len(events)))

	for _, event := range events {
		if event.Type != pushEventType {
			continue
		}
		if _, err := o.queue.Enqueue(ctx, jobs.ClassHandleEvent, event, 0); err != nil {
			return result, fmt.Errorf("enqueuing handle-event job for %q: %w", event.ID, err)
		}
		telemetry.JobsEnqueuedTotal.WithLabelValues(jobs.ClassHandleEvent).Inc()
		result.JobsEnqueued++
	}

	return result, nil
}
