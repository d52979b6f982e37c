// Package sink contains the destinations for lag samples. The collector hands every
// sample to an ISink and never waits for more than the Append call itself.
//
// Implementations:
//
//   - VMSink: exports samples as Prometheus metrics using VictoriaMetrics/metrics
//     (histogram, sample counter and last value gauge per cluster and bucket).
//
//   - GoMetricsSink: aggregates samples in rcrowley/go-metrics timers and writes a
//     periodic percentile summary to the log.
//
//   - LogSink: logs every sample.
//
//   - Multi: fans out to several sinks.
package sink
