package probe

import (
	"fmt"
	"time"
)

// StoreError is returned when a set, get or delete against a store fails during a
// measurement.
type StoreError struct {
	Op     string // "set", "get" or "delete"
	State  State  // state the measurement was in when the operation failed
	Bucket string
	Key    string
	Err    error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("bucket %s: %s of marker %s failed in state %s: %v", e.Bucket, e.Op, e.Key, e.State, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// TimeoutError is returned when the marker did not become visible on the destination
// before the configured deadline.
type TimeoutError struct {
	Bucket string
	Key    string
	Waited time.Duration
	Polls  int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("bucket %s: marker %s not replicated after %s (%d polls)", e.Bucket, e.Key, e.Waited, e.Polls)
}

// Timeout marks the error as a timeout (net.Error style).
func (e *TimeoutError) Timeout() bool {
	return true
}
