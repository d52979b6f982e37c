package collector

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/pool"
)

// ErrTooManyFailures is returned by a worker when a bucket failed more often in a
// row than RetryPolicy.MaxConsecutiveFailures allows.
var ErrTooManyFailures = errors.New("too many consecutive failures")

// ErrorClass is the outcome of classifying a measurement error.
type ErrorClass int

const (
	ClassTransient ErrorClass = iota // log, back off, keep probing
	ClassFatal                       // stop the worker
	ClassCanceled                    // context ended
)

func (c ErrorClass) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassFatal:
		return "fatal"
	case ClassCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Classify sorts measurement errors. Connection, store and timeout errors are
// transient; a closed pool is fatal.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassTransient
	case errors.Is(err, pool.ErrPoolClosed):
		return ClassFatal
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ClassCanceled
	default:
		return ClassTransient
	}
}

const (
	DefaultFailureBackoff    = 100 * time.Millisecond
	DefaultMaxFailureBackoff = 30 * time.Second
)

// RetryPolicy controls how workers react to failing buckets.
type RetryPolicy struct {
	// FailureBackoff is the pause after the first failure of a bucket. It doubles
	// with every further consecutive failure. Zero retries immediately.
	FailureBackoff time.Duration
	// MaxFailureBackoff caps the backoff.
	MaxFailureBackoff time.Duration
	// MaxConsecutiveFailures stops the worker once a bucket failed this often in a
	// row. Zero never gives up.
	MaxConsecutiveFailures int
}

// DefaultRetryPolicy backs off from 100ms up to 30s and never gives up.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		FailureBackoff:    DefaultFailureBackoff,
		MaxFailureBackoff: DefaultMaxFailureBackoff,
	}
}

// Backoff returns the pause after the given number of consecutive failures,
// with a small random jitter (+-10%).
func (p RetryPolicy) Backoff(failures int) time.Duration {
	if p.FailureBackoff <= 0 || failures <= 0 {
		return 0
	}

	backoff := p.FailureBackoff
	for i := 1; i < failures; i++ {
		backoff *= 2
		if p.MaxFailureBackoff > 0 && backoff >= p.MaxFailureBackoff {
			backoff = p.MaxFailureBackoff
			break
		}
	}
	if p.MaxFailureBackoff > 0 && backoff > p.MaxFailureBackoff {
		backoff = p.MaxFailureBackoff
	}

	jitter := float64(backoff) * (0.9 + 0.2*rand.Float64())
	return time.Duration(jitter)
}

// exhausted reports whether the give-up threshold was reached
func (p RetryPolicy) exhausted(failures int) bool {
	return p.MaxConsecutiveFailures > 0 && failures >= p.MaxConsecutiveFailures
}
