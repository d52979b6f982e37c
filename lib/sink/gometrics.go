package sink

import (
	"context"
	"sort"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/rcrowley/go-metrics"
)

// GoMetricsSink aggregates samples into one timer per cluster and bucket.
// Report writes a periodic summary of all timers to the log.
type GoMetricsSink struct {
	registry metrics.Registry
	logger   logger.ILogger
}

// NewGoMetricsSink creates a sink with a private registry.
func NewGoMetricsSink() *GoMetricsSink {
	return &GoMetricsSink{
		registry: metrics.NewRegistry(),
		logger:   Logger,
	}
}

func (s *GoMetricsSink) Append(sample probe.Sample, tags Tags) error {
	metrics.GetOrRegisterTimer(timerName(tags), s.registry).Update(sample.Latency)
	return nil
}

// Snapshot returns a snapshot of the timer for the given tags (nil if no sample
// was recorded yet).
func (s *GoMetricsSink) Snapshot(tags Tags) metrics.Timer {
	if t, ok := s.registry.Get(timerName(tags)).(metrics.Timer); ok {
		return t.Snapshot()
	}
	return nil
}

// Report logs a summary every interval until ctx is done.
func (s *GoMetricsSink) Report(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.report()
		}
	}
}

// report writes one line per timer, sorted by name
func (s *GoMetricsSink) report() {
	var names []string
	timers := make(map[string]metrics.Timer)
	s.registry.Each(func(name string, i interface{}) {
		if t, ok := i.(metrics.Timer); ok {
			names = append(names, name)
			timers[name] = t.Snapshot()
		}
	})
	sort.Strings(names)

	for _, name := range names {
		t := timers[name]
		ps := t.Percentiles([]float64{0.5, 0.95, 0.99})
		s.logger.Infof("%s | count=%d min=%s mean=%s p50=%s p95=%s p99=%s max=%s",
			name, t.Count(),
			time.Duration(t.Min()), time.Duration(t.Mean()),
			time.Duration(ps[0]), time.Duration(ps[1]), time.Duration(ps[2]),
			time.Duration(t.Max()))
	}
}

func timerName(tags Tags) string {
	return tags.Collector + "." + tags.Cluster + "." + tags.Bucket
}
