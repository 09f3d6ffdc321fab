package jobs

import (
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/wisbric/ghingest/pkg/avatar"
	"github.com/wisbric/ghingest/pkg/blobdownload"
	"github.com/wisbric/ghingest/pkg/githubapi"
	"github.com/wisbric/ghingest/pkg/store"
)

// deadlockBackoff and rateLimitBackoff hold the two fixed-interval retry
// delays as cenkalti/backoff/v5 policies. Attempt counting itself lives on
// the Job (it must survive a process restart, which the library's own
// in-memory counter would not), so only NextBackOff's constant is used.
var (
	deadlockBackoff  = backoff.NewConstantBackOff(5 * time.Second)
	rateLimitBackoff = backoff.NewConstantBackOff(time.Hour)
)

// decision is the outcome of classifying a job failure against the
// per-class retry table (spec.md §4.11).
type decision struct {
	retry       bool
	delay       time.Duration
	maxAttempts int
}

// exponentialDelay implements the (attempts^4)+2s backoff curve used by
// ServerError/DownloadError classes. It does not match
// backoff.ExponentialBackOff's multiplier-based growth, so it is computed
// by hand rather than via the library.
func exponentialDelay(attempts int) time.Duration {
	return time.Duration(math.Pow(float64(attempts), 4))*time.Second + 2*time.Second
}

func fixedDelay(b *backoff.ConstantBackOff) time.Duration {
	d, _ := b.NextBackOff()
	return d
}

// classify maps a job class and the error its handler returned to a retry
// decision. A zero-value decision (retry=false) means discard.
func classify(class string, attempts int, err error) decision {
	switch class {
	case ClassHandleEvent:
		if store.IsDeadlock(err) || store.IsConnectionNotEstablished(err) {
			return decision{retry: true, delay: fixedDelay(deadlockBackoff), maxAttempts: 3}
		}
		return decision{}

	case ClassFetchUser, ClassFetchRepo, ClassFetchOrg:
		switch {
		case errors.Is(err, githubapi.ErrServerError):
			return decision{retry: true, delay: exponentialDelay(attempts), maxAttempts: 5}
		case errors.Is(err, githubapi.ErrRateLimited):
			return decision{retry: true, delay: fixedDelay(rateLimitBackoff), maxAttempts: 3}
		case errors.Is(err, githubapi.ErrClientError):
			return decision{}
		default:
			return decision{}
		}

	case ClassProcessAvatar:
		switch {
		case errors.Is(err, avatar.ErrInvalidURL):
			return decision{}
		case errors.Is(err, blobdownload.ErrFileSizeExceeded):
			return decision{}
		case errors.Is(err, store.ErrRecordNotFound):
			return decision{}
		case errors.Is(err, blobdownload.ErrDownloadError):
			return decision{retry: true, delay: exponentialDelay(attempts), maxAttempts: 5}
		default:
			// Storage-service failures (S3 errors) retry on the same curve
			// as download failures.
			return decision{retry: true, delay: exponentialDelay(attempts), maxAttempts: 5}
		}

	default:
		return decision{}
	}
}
