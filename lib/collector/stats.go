package collector

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/pool"
	"github.com/ValentinKolb/xdcrlag/lib/probe"
)

// BucketStats is a snapshot of the counters of one bucket.
type BucketStats struct {
	Bucket      string        `json:"bucket"`
	Samples     uint64        `json:"samples"`
	Failures    uint64        `json:"failures"`
	Timeouts    uint64        `json:"timeouts"`
	LastLatency time.Duration `json:"last_latency"`
	LastError   string        `json:"last_error,omitempty"`
	Source      pool.Stats    `json:"source_pool"`
	Destination pool.Stats    `json:"destination_pool"`
}

// bucketStats holds the live counters of one bucket, shared by all workers
type bucketStats struct {
	samples     atomic.Uint64
	failures    atomic.Uint64
	timeouts    atomic.Uint64
	lastLatency atomic.Int64
	lastError   atomic.Pointer[string]
}

func (s *bucketStats) recordSample(sample probe.Sample) {
	s.samples.Add(1)
	s.lastLatency.Store(int64(sample.Latency))
}

func (s *bucketStats) recordFailure(err error) {
	s.failures.Add(1)

	var timeoutErr *probe.TimeoutError
	if errors.As(err, &timeoutErr) {
		s.timeouts.Add(1)
	}

	msg := err.Error()
	s.lastError.Store(&msg)
}

func (s *bucketStats) snapshot(b *bucket) BucketStats {
	stats := BucketStats{
		Bucket:      b.target.Bucket,
		Samples:     s.samples.Load(),
		Failures:    s.failures.Load(),
		Timeouts:    s.timeouts.Load(),
		LastLatency: time.Duration(s.lastLatency.Load()),
		Source:      b.src.Stats(),
		Destination: b.dst.Stats(),
	}
	if msg := s.lastError.Load(); msg != nil {
		stats.LastError = *msg
	}
	return stats
}
