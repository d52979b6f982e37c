package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("pool")

// ErrPoolClosed is returned by Acquire once the pool has been closed.
var ErrPoolClosed = errors.New("pool is closed")

// Factory creates a new handle. It is called with the context of the Acquire call
// that needs the handle.
type Factory[C any] func(ctx context.Context) (C, error)

// Closer releases the resources of a handle that leaves the pool for good.
type Closer[C any] func(c C) error

// ConnectionError is returned by Acquire when the factory could not create a handle,
// e.g. because the host is unreachable or rejected the credentials.
type ConnectionError struct {
	Pool string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("pool %s: connection failed: %v", e.Pool, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// Stats is a point-in-time snapshot of a pool.
type Stats struct {
	Capacity int `json:"capacity"` // maximum number of handles
	Open     int `json:"open"`     // handles currently created (idle + in use)
	Idle     int `json:"idle"`     // handles waiting in the free list
	InUse    int `json:"in_use"`   // handles currently acquired
}

// Pool is a fixed-capacity pool of handles of type C.
type Pool[C any] struct {
	name    string
	factory Factory[C]
	closer  Closer[C]

	idle  chan C        // free list
	slots chan struct{} // one token per open handle

	mu     sync.RWMutex // guards closed against concurrent Release
	closed bool
}

// New creates a pool holding at most size handles (minimum 1).
// A nil closer means handles need no cleanup.
func New[C any](name string, size int, factory Factory[C], closer Closer[C]) *Pool[C] {
	if size < 1 {
		size = 1
	}
	if closer == nil {
		closer = func(C) error { return nil }
	}

	return &Pool[C]{
		name:    name,
		factory: factory,
		closer:  closer,
		idle:    make(chan C, size),
		slots:   make(chan struct{}, size),
	}
}

// Name returns the name of the pool.
func (p *Pool[C]) Name() string {
	return p.name
}

// Acquire returns an idle handle or creates a new one if the pool has free capacity.
// If neither is possible it blocks until a handle is released or ctx is done.
//
// Thread-safety: This method is safe for concurrent use.
func (p *Pool[C]) Acquire(ctx context.Context) (C, error) {
	var zero C

	if p.isClosed() {
		return zero, ErrPoolClosed
	}

	// Prefer reusing an idle handle
	select {
	case c := <-p.idle:
		return c, nil
	default:
	}

	select {
	case c := <-p.idle:
		return c, nil
	case p.slots <- struct{}{}:
		// Got capacity for a new handle
		if p.isClosed() {
			<-p.slots
			return zero, ErrPoolClosed
		}

		c, err := p.factory(ctx)
		if err != nil {
			<-p.slots
			return zero, &ConnectionError{Pool: p.name, Err: err}
		}
		Logger.Debugf("pool %s: opened handle %d/%d", p.name, len(p.slots), cap(p.slots))
		return c, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Release gives a handle back to the pool. After Close the handle is closed instead.
//
// Thread-safety: This method is safe for concurrent use.
func (p *Pool[C]) Release(c C) {
	p.mu.RLock()
	if !p.closed {
		// never blocks: at most cap(idle) handles exist
		p.idle <- c
		p.mu.RUnlock()
		return
	}
	p.mu.RUnlock()

	p.dispose(c)
}

// Discard closes a handle (e.g. a broken connection) and frees its slot so that a
// fresh handle can be created by the next Acquire.
//
// Thread-safety: This method is safe for concurrent use.
func (p *Pool[C]) Discard(c C) {
	p.dispose(c)
}

// Close closes all idle handles and makes further Acquire calls fail with ErrPoolClosed.
// Handles that are in use are closed when they are released.
func (p *Pool[C]) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	var errs []error
	for {
		select {
		case c := <-p.idle:
			if err := p.dispose(c); err != nil {
				errs = append(errs, err)
			}
		default:
			return errors.Join(errs...)
		}
	}
}

// Stats returns a snapshot of the pool's usage.
func (p *Pool[C]) Stats() Stats {
	open, idle := len(p.slots), len(p.idle)
	return Stats{
		Capacity: cap(p.slots),
		Open:     open,
		Idle:     idle,
		InUse:    max(open-idle, 0),
	}
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (p *Pool[C]) isClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.closed
}

// dispose closes a handle and returns its slot token
func (p *Pool[C]) dispose(c C) error {
	err := p.closer(c)
	if err != nil {
		Logger.Warningf("pool %s: failed to close handle: %v", p.name, err)
	}
	select {
	case <-p.slots:
	default:
	}
	return err
}
