package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/wisbric/ghingest/pkg/githubapi"
)

// fakeQueue is an in-process Queue double for exercising Runtime without a
// Redis dependency.
type fakeQueue struct {
	pending     []Job
	rescheduled []Job
	discarded   []Job
}

func (f *fakeQueue) Enqueue(_ context.Context, class string, args any, delay time.Duration) (Job, error) {
	job := Job{ID: "job-1", Class: class, RunAt: time.Now().Add(delay)}
	f.pending = append(f.pending, job)
	return job, nil
}

func (f *fakeQueue) Dequeue(_ context.Context) (Job, bool, error) {
	if len(f.pending) == 0 {
		return Job{}, false, nil
	}
	job := f.pending[0]
	f.pending = f.pending[1:]
	return job, true, nil
}

func (f *fakeQueue) Reschedule(_ context.Context, job Job, delay time.Duration) error {
	job.Attempts++
	f.rescheduled = append(f.rescheduled, job)
	return nil
}

func (f *fakeQueue) Discard(_ context.Context, job Job) error {
	f.discarded = append(f.discarded, job)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeDeadLetterQueue adds the optional RecordDeadLetter capability
// RedisQueue has, to verify Runtime's optional-interface check without a
// Redis dependency.
type fakeDeadLetterQueue struct {
	fakeQueue
	recorded []Job
}

func (f *fakeDeadLetterQueue) RecordDeadLetter(_ context.Context, job Job, lastErr error, attempts int) error {
	job.Attempts = attempts
	f.recorded = append(f.recorded, job)
	return nil
}

func TestRuntimeRunOnceSuccessDiscards(t *testing.T) {
	q := &fakeQueue{pending: []Job{{ID: "j1", Class: ClassFetchUser}}}
	rt := NewRuntime(q, testLogger())
	rt.Handle(ClassFetchUser, func(ctx context.Context, job Job) error { return nil })

	did, err := rt.RunOnce(context.Background())
	if err != nil || !did {
		t.Fatalf("RunOnce = did:%v err:%v", did, err)
	}
	if len(q.discarded) != 1 {
		t.Fatalf("expected 1 discard, got %d", len(q.discarded))
	}
	if len(q.rescheduled) != 0 {
		t.Fatalf("expected 0 reschedules, got %d", len(q.rescheduled))
	}
}

func TestRuntimeRunOnceRetriesServerError(t *testing.T) {
	q := &fakeQueue{pending: []Job{{ID: "j1", Class: ClassFetchRepo, Attempts: 0}}}
	rt := NewRuntime(q, testLogger())
	rt.Handle(ClassFetchRepo, func(ctx context.Context, job Job) error {
		return &githubapi.APIError{Kind: githubapi.ErrServerError, StatusCode: 500}
	})

	if _, err := rt.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(q.rescheduled) != 1 {
		t.Fatalf("expected 1 reschedule, got %d", len(q.rescheduled))
	}
	if len(q.discarded) != 0 {
		t.Fatalf("expected 0 discards, got %d", len(q.discarded))
	}
}

func TestRuntimeRunOnceDiscardsClientError(t *testing.T) {
	q := &fakeQueue{pending: []Job{{ID: "j1", Class: ClassFetchOrg}}}
	rt := NewRuntime(q, testLogger())
	rt.Handle(ClassFetchOrg, func(ctx context.Context, job Job) error {
		return &githubapi.APIError{Kind: githubapi.ErrClientError, StatusCode: 404}
	})

	if _, err := rt.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(q.discarded) != 1 {
		t.Fatalf("expected 1 discard, got %d", len(q.discarded))
	}
}

func TestRuntimeRunOnceExhaustsRetries(t *testing.T) {
	q := &fakeQueue{pending: []Job{{ID: "j1", Class: ClassFetchUser, Attempts: 5}}}
	rt := NewRuntime(q, testLogger())
	rt.Handle(ClassFetchUser, func(ctx context.Context, job Job) error {
		return &githubapi.APIError{Kind: githubapi.ErrServerError, StatusCode: 502}
	})

	if _, err := rt.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(q.discarded) != 1 {
		t.Fatalf("expected exhausted retry to discard, got %d discards, %d reschedules",
			len(q.discarded), len(q.rescheduled))
	}
}

func TestRuntimeRunOnceNoHandlerDiscards(t *testing.T) {
	q := &fakeQueue{pending: []Job{{ID: "j1", Class: "unregistered"}}}
	rt := NewRuntime(q, testLogger())

	if _, err := rt.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(q.discarded) != 1 {
		t.Fatalf("expected 1 discard, got %d", len(q.discarded))
	}
}

func TestRuntimeRunOnceEmptyQueue(t *testing.T) {
	q := &fakeQueue{}
	rt := NewRuntime(q, testLogger())

	did, err := rt.RunOnce(context.Background())
	if err != nil || did {
		t.Fatalf("RunOnce on empty queue = did:%v err:%v, want false, nil", did, err)
	}
}

func TestRuntimeRunOnceRecordsDeadLetterOnTerminalFailure(t *testing.T) {
	q := &fakeDeadLetterQueue{fakeQueue: fakeQueue{pending: []Job{{ID: "j1", Class: ClassFetchOrg}}}}
	rt := NewRuntime(q, testLogger())
	rt.Handle(ClassFetchOrg, func(ctx context.Context, job Job) error {
		return &githubapi.APIError{Kind: githubapi.ErrClientError, StatusCode: 404}
	})

	if _, err := rt.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(q.recorded) != 1 {
		t.Fatalf("expected 1 dead letter recorded, got %d", len(q.recorded))
	}
	if len(q.discarded) != 1 {
		t.Fatalf("expected the job to still be discarded, got %d", len(q.discarded))
	}
}

func TestRuntimeRunOnceDoesNotRecordDeadLetterOnRetry(t *testing.T) {
	q := &fakeDeadLetterQueue{fakeQueue: fakeQueue{pending: []Job{{ID: "j1", Class: ClassFetchRepo}}}}
	rt := NewRuntime(q, testLogger())
	rt.Handle(ClassFetchRepo, func(ctx context.Context, job Job) error {
		return &githubapi.APIError{Kind: githubapi.ErrServerError, StatusCode: 500}
	})

	if _, err := rt.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(q.recorded) != 0 {
		t.Fatalf("expected no dead letter on a retryable failure, got %d", len(q.recorded))
	}
}

func TestRuntimeUnknownErrorDiscarded(t *testing.T) {
	q := &fakeQueue{pending: []Job{{ID: "j1", Class: ClassHandleEvent}}}
	rt := NewRuntime(q, testLogger())
	rt.Handle(ClassHandleEvent, func(ctx context.Context, job Job) error {
		return errors.New("boom")
	})

	if _, err := rt.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(q.discarded) != 1 {
		t.Fatalf("expected 1 discard, got %d", len(q.discarded))
	}
}
