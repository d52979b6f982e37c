package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/pool"
	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/ValentinKolb/xdcrlag/lib/sink"
	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/lib/targets"
	"github.com/lni/dragonboat/v4/logger"
)

// bucket is everything a worker needs to probe one bucket. The pools and the
// counters are shared by all workers.
type bucket struct {
	target targets.BucketTarget
	src    *pool.Pool[store.IClient]
	dst    *pool.Pool[store.IClient]
	stats  *bucketStats
}

// backoffState is private to a single worker
type backoffState struct {
	failures int
	retryAt  time.Time
}

// Worker repeatedly measures the lag of every bucket.
type Worker struct {
	id      int
	config  Config
	buckets []*bucket
	prober  *probe.Prober
	sink    sink.ISink
	logger  logger.ILogger
}

// Run loops over all buckets until ctx is done, the configured number of
// iterations is reached or a fatal error occurs. It returns ctx.Err() on
// cancellation and nil after the last iteration.
func (w *Worker) Run(ctx context.Context) error {
	states := make([]backoffState, len(w.buckets))

	for iteration := 0; w.config.Iterations <= 0 || iteration < w.config.Iterations; {
		attempted := false

		for i, b := range w.buckets {
			if err := ctx.Err(); err != nil {
				return err
			}
			if time.Now().Before(states[i].retryAt) {
				continue
			}
			attempted = true

			if err := w.measure(ctx, b, &states[i]); err != nil {
				return err
			}
		}

		if attempted {
			iteration++
			continue
		}

		// every bucket is backing off
		if err := sleep(ctx, time.Until(earliest(states))); err != nil {
			return err
		}
	}
	return nil
}

// measure probes a single bucket. Only fatal errors, cancellation and the give-up
// policy are returned, everything else is logged.
func (w *Worker) measure(ctx context.Context, b *bucket, state *backoffState) error {
	sample, err := w.prober.Measure(ctx, b.src, b.dst, b.target.Bucket)
	if err != nil {
		switch Classify(err) {
		case ClassFatal:
			return fmt.Errorf("worker %d: bucket %s: %w", w.id, b.target.Bucket, err)
		case ClassCanceled:
			if ctx.Err() != nil {
				return ctx.Err()
			}
		}

		b.stats.recordFailure(err)
		state.failures++
		w.logger.Warningf("worker %d: measuring bucket %s failed (%d in a row): %v", w.id, b.target.Bucket, state.failures, err)

		if w.config.Retry.exhausted(state.failures) {
			return fmt.Errorf("%w: bucket %s failed %d times in a row: %w", ErrTooManyFailures, b.target.Bucket, state.failures, err)
		}
		state.retryAt = time.Now().Add(w.config.Retry.Backoff(state.failures))
		return nil
	}

	*state = backoffState{}
	sample.Cluster = w.config.Cluster
	b.stats.recordSample(sample)

	tags := sink.Tags{Cluster: w.config.Cluster, Bucket: b.target.Bucket, Collector: w.config.Name}
	if err := w.sink.Append(sample, tags); err != nil {
		w.logger.Warningf("worker %d: sink rejected sample of bucket %s: %v", w.id, b.target.Bucket, err)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Functions
// --------------------------------------------------------------------------

func earliest(states []backoffState) time.Time {
	var first time.Time
	for i, s := range states {
		if i == 0 || s.retryAt.Before(first) {
			first = s.retryAt
		}
	}
	return first
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
