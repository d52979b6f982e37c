package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// handle is a trivial pooled resource
type handle struct {
	id     int64
	closed atomic.Bool
}

// newCountingPool creates a pool whose factory hands out numbered handles
func newCountingPool(size int) (*Pool[*handle], *atomic.Int64) {
	var created atomic.Int64
	p := New[*handle]("test", size,
		func(ctx context.Context) (*handle, error) {
			return &handle{id: created.Add(1)}, nil
		},
		func(h *handle) error {
			h.closed.Store(true)
			return nil
		},
	)
	return p, &created
}

func TestAcquireReusesReleasedHandle(t *testing.T) {
	p, created := newCountingPool(2)
	ctx := context.Background()

	h1, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	p.Release(h1)

	h2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if h1 != h2 {
		t.Errorf("Expected released handle to be reused")
	}
	if created.Load() != 1 {
		t.Errorf("Expected 1 handle to be created, got %d", created.Load())
	}
	p.Release(h2)

	stats := p.Stats()
	if stats.Open != 1 || stats.Idle != 1 || stats.InUse != 0 || stats.Capacity != 2 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
}

func TestAcquireBlocksWhenExhausted(t *testing.T) {
	p, _ := newCountingPool(1)
	ctx := context.Background()

	h, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	acquired := make(chan *handle)
	go func() {
		h2, err := p.Acquire(ctx)
		if err != nil {
			t.Errorf("Second acquire failed: %v", err)
		}
		acquired <- h2
	}()

	select {
	case <-acquired:
		t.Fatalf("Second acquire did not block on an exhausted pool")
	case <-time.After(50 * time.Millisecond):
		// Expected, pool is exhausted
	}

	p.Release(h)

	select {
	case h2 := <-acquired:
		if h2 != h {
			t.Errorf("Expected the released handle to be handed over")
		}
	case <-time.After(time.Second):
		t.Fatalf("Second acquire did not unblock after release")
	}
}

func TestAcquireHonoursContext(t *testing.T) {
	p, _ := newCountingPool(1)

	h, _ := p.Acquire(context.Background())
	defer p.Release(h)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := p.Acquire(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected DeadlineExceeded, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Acquire did not return promptly after the deadline")
	}
}

func TestFactoryFailureKeepsCapacity(t *testing.T) {
	boom := errors.New("host unreachable")
	var fail atomic.Bool
	fail.Store(true)

	p := New[*handle]("flaky", 1,
		func(ctx context.Context) (*handle, error) {
			if fail.Load() {
				return nil, boom
			}
			return &handle{}, nil
		}, nil)

	for i := 0; i < 3; i++ {
		_, err := p.Acquire(context.Background())
		var connErr *ConnectionError
		if !errors.As(err, &connErr) {
			t.Fatalf("Expected ConnectionError, got %v", err)
		}
		if !errors.Is(err, boom) {
			t.Errorf("Expected ConnectionError to wrap the factory error")
		}
	}

	if stats := p.Stats(); stats.Open != 0 {
		t.Fatalf("Failed connections must not hold capacity, stats: %+v", stats)
	}

	// once the host is back the single slot is still available
	fail.Store(false)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if _, err := p.Acquire(ctx); err != nil {
		t.Errorf("Expected acquire to succeed after recovery, got %v", err)
	}
}

func TestDiscardFreesSlot(t *testing.T) {
	p, created := newCountingPool(1)
	ctx := context.Background()

	h, _ := p.Acquire(ctx)
	p.Discard(h)
	if !h.closed.Load() {
		t.Errorf("Discarded handle was not closed")
	}

	h2, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire after discard failed: %v", err)
	}
	if h2 == h || created.Load() != 2 {
		t.Errorf("Expected a fresh handle after discard")
	}
}

func TestClose(t *testing.T) {
	p, _ := newCountingPool(2)
	ctx := context.Background()

	idle, _ := p.Acquire(ctx)
	busy, _ := p.Acquire(ctx)
	p.Release(idle)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !idle.closed.Load() {
		t.Errorf("Idle handle was not closed on Close")
	}
	if busy.closed.Load() {
		t.Errorf("Busy handle must not be closed before it is released")
	}

	p.Release(busy)
	if !busy.closed.Load() {
		t.Errorf("Handle released after Close was not closed")
	}

	if _, err := p.Acquire(ctx); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Expected ErrPoolClosed, got %v", err)
	}
	if stats := p.Stats(); stats.Open != 0 {
		t.Errorf("Expected no open handles after close, got %+v", stats)
	}
}

func TestConcurrentAcquireRelease(t *testing.T) {
	const size = 4
	p, created := newCountingPool(size)

	var inUse, maxInUse atomic.Int64
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h, err := p.Acquire(context.Background())
				if err != nil {
					t.Errorf("Acquire failed: %v", err)
					return
				}
				n := inUse.Add(1)
				for {
					m := maxInUse.Load()
					if n <= m || maxInUse.CompareAndSwap(m, n) {
						break
					}
				}
				inUse.Add(-1)
				p.Release(h)
			}
		}()
	}
	wg.Wait()

	if maxInUse.Load() > size {
		t.Errorf("Pool handed out %d handles at once, capacity is %d", maxInUse.Load(), size)
	}
	if created.Load() > size {
		t.Errorf("Pool created %d handles, capacity is %d", created.Load(), size)
	}
	if stats := p.Stats(); stats.InUse != 0 {
		t.Errorf("Expected all handles to be released, got %+v", stats)
	}
}
