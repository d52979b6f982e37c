package sink

import (
	"errors"

	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("sink")

// Tags identify where a sample came from.
type Tags struct {
	Cluster   string
	Bucket    string
	Collector string
}

// ISink receives lag samples. Append must be safe for concurrent use and should
// not block for long: it is called from the probing workers.
type ISink interface {
	Append(sample probe.Sample, tags Tags) (err error)
}

// Multi forwards every sample to all contained sinks.
type Multi []ISink

func (m Multi) Append(sample probe.Sample, tags Tags) error {
	var errs []error
	for _, s := range m {
		if err := s.Append(sample, tags); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes every sample to the log.
type LogSink struct {
	Logger logger.ILogger
}

func (l LogSink) Append(sample probe.Sample, tags Tags) error {
	log := l.Logger
	if log == nil {
		log = Logger
	}
	log.Debugf("%s | cluster=%s bucket=%s lag=%.2fms", tags.Collector, tags.Cluster, tags.Bucket, sample.Milliseconds())
	return nil
}
