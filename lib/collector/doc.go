// Package collector runs the replication lag probes.
//
// A Collector owns one source and one destination connection pool per bucket and a
// fixed number of workers. Every worker loops over all buckets, measures the lag of
// each bucket with a probe.Prober and forwards the samples to a sink. All workers
// share the same pools, so with the default of 10 workers up to 10 measurements per
// bucket are in flight at any time, each with its own marker key.
//
// Failure Policy:
//
//	Errors never leave a worker unless they are fatal (closed pools) or the
//	configured give-up threshold is reached. Transient errors are logged and the
//	failing bucket is skipped for an exponentially growing, jittered backoff,
//	while the remaining buckets keep being probed. Setting
//	RetryPolicy.FailureBackoff to zero restores a plain "log and continue" loop.
//
// Usage Example:
//
//	c, err := collector.New(collector.DefaultConfig(), targets, factory, sink)
//	if err != nil {
//		return err
//	}
//	defer c.Close()
//
//	// blocks until ctx is cancelled
//	return c.Run(ctx)
package collector
