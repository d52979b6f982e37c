package sink

import (
	"fmt"
	"io"
	"math"
	"net/http"
	"sync/atomic"

	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/VictoriaMetrics/metrics"
	"github.com/puzpuzpuz/xsync/v3"
)

// DefaultMetricPrefix is the prefix of all exported metric names
const DefaultMetricPrefix = "xdcr_lag"

// VMSink exports samples in the Prometheus text format:
//
//	{prefix}_milliseconds{cluster,bucket,collector}       - histogram of lag samples
//	{prefix}_samples_total{cluster,bucket,collector}      - counter of samples
//	{prefix}_last_milliseconds{cluster,bucket,collector}  - gauge of the latest sample
type VMSink struct {
	prefix string
	set    *metrics.Set
	last   *xsync.MapOf[string, *atomic.Uint64]
}

// NewVMSink creates a sink with its own metrics set. An empty prefix selects
// DefaultMetricPrefix.
func NewVMSink(prefix string) *VMSink {
	if prefix == "" {
		prefix = DefaultMetricPrefix
	}
	return &VMSink{
		prefix: prefix,
		set:    metrics.NewSet(),
		last:   xsync.NewMapOf[string, *atomic.Uint64](),
	}
}

func (s *VMSink) Append(sample probe.Sample, tags Tags) error {
	labels := fmt.Sprintf("{cluster=%q,bucket=%q,collector=%q}", tags.Cluster, tags.Bucket, tags.Collector)
	ms := sample.Milliseconds()

	s.set.GetOrCreateHistogram(s.prefix + "_milliseconds" + labels).Update(ms)
	s.set.GetOrCreateCounter(s.prefix + "_samples_total" + labels).Inc()

	// the gauge reads the latest value through a callback
	gaugeName := s.prefix + "_last_milliseconds" + labels
	last, loaded := s.last.LoadOrCompute(gaugeName, func() *atomic.Uint64 { return &atomic.Uint64{} })
	last.Store(math.Float64bits(ms))
	if !loaded {
		s.set.GetOrCreateGauge(gaugeName, func() float64 {
			return math.Float64frombits(last.Load())
		})
	}
	return nil
}

// WritePrometheus writes all metrics of the sink to w.
func (s *VMSink) WritePrometheus(w io.Writer) {
	s.set.WritePrometheus(w)
}

// Handler serves the metrics of the sink (e.g. on /metrics).
func (s *VMSink) Handler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	s.WritePrometheus(w)
}
