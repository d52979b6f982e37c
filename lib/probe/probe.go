package probe

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("probe")

const (
	// DefaultKeyPrefix is prepended to every marker key
	DefaultKeyPrefix = "xdcr_track_"
	// DefaultPollInterval is the wait between two reads of the destination
	DefaultPollInterval = 50 * time.Millisecond
	// DefaultDeadline bounds how long a single measurement polls the destination
	DefaultDeadline = 30 * time.Second
	// DefaultCleanupTimeout bounds the removal of the marker of a failed measurement
	DefaultCleanupTimeout = 2 * time.Second
)

// ClientPool is the part of a connection pool the prober needs.
type ClientPool interface {
	Acquire(ctx context.Context) (store.IClient, error)
	Release(c store.IClient)
	Discard(c store.IClient)
}

// Config controls the polling behaviour of a Prober.
type Config struct {
	// PollInterval is the wait between two reads of the destination.
	PollInterval time.Duration
	// MaxPollInterval enables exponential backoff: the interval doubles after every
	// unsuccessful read until it reaches MaxPollInterval. Values <= PollInterval
	// keep the interval fixed.
	MaxPollInterval time.Duration
	// Deadline bounds the polling phase. Zero disables the deadline and polls until
	// the marker appears or the context ends.
	Deadline time.Duration
	// KeyPrefix is prepended to every generated marker key.
	KeyPrefix string
	// CleanupTimeout bounds the best-effort marker deletion after a failure. The
	// handle is discarded when the deletion does not finish in time.
	CleanupTimeout time.Duration
	// SkipCleanupOnFailure disables the best-effort marker deletion after a failure.
	SkipCleanupOnFailure bool
}

// DefaultConfig returns the configuration used when nothing else is specified.
func DefaultConfig() Config {
	return Config{
		PollInterval:   DefaultPollInterval,
		Deadline:       DefaultDeadline,
		CleanupTimeout: DefaultCleanupTimeout,
		KeyPrefix:      DefaultKeyPrefix,
	}
}

// Sample is one lag measurement.
type Sample struct {
	Bucket    string        `json:"bucket"`
	Cluster   string        `json:"cluster,omitempty"`
	Key       string        `json:"key"`
	Latency   time.Duration `json:"latency"`
	Timestamp time.Time     `json:"timestamp"`
}

// Milliseconds returns the latency in (fractional) milliseconds.
func (s Sample) Milliseconds() float64 {
	return float64(s.Latency) / float64(time.Millisecond)
}

// Option configures a Prober.
type Option func(*Prober)

// WithKeyGenerator replaces the random marker key generator.
func WithKeyGenerator(gen func() string) Option {
	return func(p *Prober) {
		p.newKey = gen
	}
}

// WithObserver registers a callback for state transitions.
func WithObserver(o Observer) Option {
	return func(p *Prober) {
		p.observer = o
	}
}

// Prober measures replication lag. A Prober is stateless between measurements
// and safe for concurrent use.
type Prober struct {
	config   Config
	newKey   func() string
	observer Observer
}

// NewProber creates a Prober. Zero values in config fall back to the defaults.
func NewProber(config Config, opts ...Option) *Prober {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = DefaultKeyPrefix
	}
	if config.CleanupTimeout <= 0 {
		config.CleanupTimeout = DefaultCleanupTimeout
	}

	p := &Prober{config: config}
	p.newKey = p.randomKey
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration of the prober.
func (p *Prober) Config() Config {
	return p.config
}

// Measure performs a single lag measurement for bucket, using one handle from src
// and one from dst. Both handles are returned to their pools before Measure returns;
// a handle that looks broken is discarded instead of released.
func (p *Prober) Measure(ctx context.Context, src, dst ClientPool, bucket string) (Sample, error) {
	m := &measurement{prober: p, bucket: bucket, state: StateIdle}

	srcClient, err := src.Acquire(ctx)
	if err != nil {
		m.transition(StateFailed)
		return Sample{}, err
	}
	srcBroken := false
	defer func() { giveBack(src, srcClient, srcBroken) }()

	dstClient, err := dst.Acquire(ctx)
	if err != nil {
		m.transition(StateFailed)
		return Sample{}, err
	}
	dstBroken := false
	defer func() { giveBack(dst, dstClient, dstBroken) }()

	m.key = p.newKey()

	// Write the marker (the key is its own value)
	if err := srcClient.Set(m.key, []byte(m.key)); err != nil {
		srcBroken = BrokenHandle(err)
		return Sample{}, m.fail("set", err)
	}
	t0 := time.Now()
	m.transition(StateMarkerWritten)

	// Wait for the marker on the destination
	t1, err := p.poll(ctx, m, dstClient)
	if err != nil {
		var storeErr *StoreError
		if errors.As(err, &storeErr) {
			dstBroken = BrokenHandle(storeErr.Err)
		}
		m.transition(StateFailed)
		srcBroken = !p.cleanup(m, srcClient)
		return Sample{}, err
	}
	m.transition(StateReplicated)

	// Remove the marker again
	if err := srcClient.Delete(m.key); err != nil {
		srcBroken = BrokenHandle(err)
		return Sample{}, m.fail("delete", err)
	}
	m.transition(StateCleaned)

	return Sample{
		Bucket:    bucket,
		Key:       m.key,
		Latency:   t1.Sub(t0),
		Timestamp: t1,
	}, nil
}

// BrokenHandle reports whether a handle that returned err should be thrown away.
// Errors reported by the store itself leave the handle usable, unless the handle
// was closed; any other error (transport, timeout) is treated as a broken handle.
func BrokenHandle(err error) bool {
	var storeErr *store.Error
	if errors.As(err, &storeErr) {
		return storeErr.Code == store.RetCClosed
	}
	return err != nil
}

func giveBack(p ClientPool, c store.IClient, broken bool) {
	if broken {
		Logger.Debugf("discarding broken handle")
		p.Discard(c)
		return
	}
	p.Release(c)
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// poll reads the marker from the destination until it is present, the deadline
// expires or ctx is done
func (p *Prober) poll(ctx context.Context, m *measurement, client store.IClient) (time.Time, error) {
	pollCtx := ctx
	if p.config.Deadline > 0 {
		var cancel context.CancelFunc
		pollCtx, cancel = context.WithTimeout(ctx, p.config.Deadline)
		defer cancel()
	}

	m.transition(StatePolling)

	start := time.Now()
	interval := p.config.PollInterval
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for polls := 1; ; polls++ {
		value, ok, err := client.Get(m.key)
		if err != nil {
			return time.Time{}, &StoreError{Op: "get", State: StatePolling, Bucket: m.bucket, Key: m.key, Err: err}
		}
		if ok && len(value) > 0 {
			return time.Now(), nil
		}

		select {
		case <-pollCtx.Done():
			if ctx.Err() != nil {
				return time.Time{}, ctx.Err()
			}
			return time.Time{}, &TimeoutError{Bucket: m.bucket, Key: m.key, Waited: time.Since(start), Polls: polls}
		case <-timer.C:
		}

		interval = p.nextInterval(interval)
		timer.Reset(interval)
	}
}

// nextInterval applies the optional exponential poll backoff
func (p *Prober) nextInterval(current time.Duration) time.Duration {
	if p.config.MaxPollInterval <= p.config.PollInterval {
		return p.config.PollInterval
	}
	return min(current*2, p.config.MaxPollInterval)
}

// cleanup deletes a marker that was written by a failed measurement. It waits at
// most CleanupTimeout and reports whether the handle is still usable.
func (p *Prober) cleanup(m *measurement, client store.IClient) bool {
	if p.config.SkipCleanupOnFailure || m.key == "" || !m.written {
		return true
	}

	done := make(chan error, 1)
	go func() {
		done <- client.Delete(m.key)
	}()

	timer := time.NewTimer(p.config.CleanupTimeout)
	defer timer.Stop()

	select {
	case err := <-done:
		if err != nil {
			Logger.Warningf("bucket %s: failed to remove orphan marker %s: %v", m.bucket, m.key, err)
			return !BrokenHandle(err)
		}
		return true
	case <-timer.C:
		Logger.Warningf("bucket %s: gave up removing orphan marker %s after %s", m.bucket, m.key, p.config.CleanupTimeout)
		return false
	}
}

// randomKey returns the prefix followed by the hex encoded bytes of a random UUID
func (p *Prober) randomKey() string {
	id := uuid.New()
	return p.config.KeyPrefix + hex.EncodeToString(id[:])
}

// measurement tracks the state of one Measure call
type measurement struct {
	prober  *Prober
	bucket  string
	key     string
	state   State
	written bool
}

func (m *measurement) transition(to State) {
	from := m.state
	m.state = to
	if to == StateMarkerWritten {
		m.written = true
	}

	Logger.Debugf("bucket %s: marker %s %s -> %s", m.bucket, m.key, from, to)
	if m.prober.observer != nil {
		m.prober.observer(m.bucket, m.key, from, to)
	}
}

// fail wraps err into a StoreError for the current state and enters StateFailed
func (m *measurement) fail(op string, err error) error {
	storeErr := &StoreError{Op: op, State: m.state, Bucket: m.bucket, Key: m.key, Err: err}
	m.transition(StateFailed)
	return storeErr
}
