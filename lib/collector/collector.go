package collector

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/pool"
	"github.com/ValentinKolb/xdcrlag/lib/probe"
	"github.com/ValentinKolb/xdcrlag/lib/sink"
	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/ValentinKolb/xdcrlag/lib/targets"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
	"golang.org/x/sync/errgroup"
)

var Logger = logger.GetLogger("collector")

const (
	DefaultName    = "xdcr_lag"
	DefaultWorkers = 10
)

// Config configures a Collector.
type Config struct {
	// Cluster is attached to every sample (e.g. the name of the source cluster)
	Cluster string
	// Name of the collector, attached to every sample
	Name string
	// Workers is the number of parallel probing loops
	Workers int
	// PoolSize is the capacity of each connection pool. Defaults to Workers.
	PoolSize int
	// Iterations per worker, 0 runs until cancelled
	Iterations int
	Probe      probe.Config
	Retry      RetryPolicy
}

// DefaultConfig returns the configuration of the classic collector: 10 workers,
// 50ms polling and no give-up threshold.
func DefaultConfig() Config {
	return Config{
		Name:    DefaultName,
		Workers: DefaultWorkers,
		Probe:   probe.DefaultConfig(),
		Retry:   DefaultRetryPolicy(),
	}
}

// String returns a human-readable representation of the configuration
func (c Config) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString(fmt.Sprintf("\n=== %s ===\n", title))
	}
	addField := func(name string, value interface{}) {
		sb.WriteString(fmt.Sprintf("  %-26s: %v\n", name, value))
	}
	durationOrOff := func(d time.Duration) string {
		if d <= 0 {
			return "off"
		}
		return d.String()
	}

	addSection("Collector")
	addField("Name", c.Name)
	addField("Cluster", c.Cluster)
	addField("Workers", c.Workers)
	addField("Pool Size", c.PoolSize)
	if c.Iterations > 0 {
		addField("Iterations", c.Iterations)
	} else {
		addField("Iterations", "unbounded")
	}

	addSection("Probe")
	addField("Poll Interval", c.Probe.PollInterval)
	addField("Max Poll Interval", durationOrOff(c.Probe.MaxPollInterval))
	addField("Deadline", durationOrOff(c.Probe.Deadline))
	addField("Cleanup Timeout", c.Probe.CleanupTimeout.String())
	addField("Key Prefix", c.Probe.KeyPrefix)

	addSection("Retry")
	addField("Failure Backoff", durationOrOff(c.Retry.FailureBackoff))
	addField("Max Failure Backoff", durationOrOff(c.Retry.MaxFailureBackoff))
	if c.Retry.MaxConsecutiveFailures > 0 {
		addField("Max Consecutive Failures", c.Retry.MaxConsecutiveFailures)
	} else {
		addField("Max Consecutive Failures", "never give up")
	}

	return sb.String()
}

// ClientFactory opens a new store client for bucket on host.
type ClientFactory func(ctx context.Context, host, bucket string, creds targets.Credentials) (store.IClient, error)

// Option configures optional parts of a Collector.
type Option func(*Collector)

// WithProbeOptions passes options to the underlying prober.
func WithProbeOptions(opts ...probe.Option) Option {
	return func(c *Collector) {
		c.probeOpts = append(c.probeOpts, opts...)
	}
}

// WithLogger replaces the logger used by the workers.
func WithLogger(l logger.ILogger) Option {
	return func(c *Collector) {
		c.logger = l
	}
}

// Collector runs Config.Workers workers over a fixed set of buckets.
type Collector struct {
	config    Config
	buckets   []*bucket
	index     *xsync.MapOf[string, *bucket]
	prober    *probe.Prober
	probeOpts []probe.Option
	sink      sink.ISink
	logger    logger.ILogger
}

// New creates a source and a destination pool for every target. No connection
// is opened before the first measurement.
func New(config Config, bucketTargets []targets.BucketTarget, factory ClientFactory, s sink.ISink, opts ...Option) (*Collector, error) {
	if len(bucketTargets) == 0 {
		return nil, targets.ErrNoBuckets
	}
	if factory == nil {
		return nil, errors.New("collector: no client factory given")
	}
	if s == nil {
		return nil, errors.New("collector: no sink given")
	}
	if config.Name == "" {
		config.Name = DefaultName
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.PoolSize <= 0 {
		config.PoolSize = config.Workers
	}

	c := &Collector{
		config: config,
		index:  xsync.NewMapOf[string, *bucket](),
		sink:   s,
		logger: Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.prober = probe.NewProber(config.Probe, c.probeOpts...)
	c.config.Probe = c.prober.Config()

	closeClient := func(client store.IClient) error { return client.Close() }
	for _, target := range bucketTargets {
		target := target
		if _, loaded := c.index.Load(target.Bucket); loaded {
			return nil, fmt.Errorf("collector: bucket %s configured twice", target.Bucket)
		}

		b := &bucket{target: target, stats: &bucketStats{}}
		b.src = pool.New[store.IClient](target.Bucket+"@source", config.PoolSize,
			func(ctx context.Context) (store.IClient, error) {
				return factory(ctx, target.SourceHost, target.Bucket, target.Credentials)
			}, closeClient)
		b.dst = pool.New[store.IClient](target.Bucket+"@destination", config.PoolSize,
			func(ctx context.Context) (store.IClient, error) {
				return factory(ctx, target.DestinationHost, target.Bucket, target.Credentials)
			}, closeClient)

		c.index.Store(target.Bucket, b)
		c.buckets = append(c.buckets, b)
	}

	return c, nil
}

// Config returns the effective configuration.
func (c *Collector) Config() Config {
	return c.config
}

// Run starts all workers and blocks until they exit. It returns nil when ctx is
// cancelled and the first worker error otherwise.
func (c *Collector) Run(ctx context.Context) error {
	c.logger.Infof("starting %d workers for %d buckets", c.config.Workers, len(c.buckets))

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < c.config.Workers; i++ {
		w := c.worker(i)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	err := g.Wait()
	if err != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		c.logger.Infof("collector stopped: %v", ctx.Err())
		return nil
	}
	if err != nil {
		c.logger.Errorf("collector stopped: %v", err)
	}
	return err
}

// Close closes all connection pools. Handles still in use are closed when they
// are released.
func (c *Collector) Close() error {
	var errs []error
	for _, b := range c.buckets {
		errs = append(errs, b.src.Close(), b.dst.Close())
	}
	return errors.Join(errs...)
}

// Stats returns the counters of every bucket in configuration order.
func (c *Collector) Stats() []BucketStats {
	stats := make([]BucketStats, 0, len(c.buckets))
	for _, b := range c.buckets {
		stats = append(stats, b.stats.snapshot(b))
	}
	return stats
}

// BucketStats returns the counters of a single bucket.
func (c *Collector) BucketStats(name string) (BucketStats, bool) {
	b, ok := c.index.Load(name)
	if !ok {
		return BucketStats{}, false
	}
	return b.stats.snapshot(b), true
}

func (c *Collector) worker(id int) *Worker {
	return &Worker{
		id:      id,
		config:  c.config,
		buckets: c.buckets,
		prober:  c.prober,
		sink:    c.sink,
		logger:  c.logger,
	}
}
