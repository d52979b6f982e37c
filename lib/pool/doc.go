// Package pool implements a bounded, goroutine-safe pool of reusable client handles.
// The lag collector creates one pool per bucket and cluster side; all workers share it.
//
// Handles are created lazily by a Factory the first time a slot is needed, so no
// network connection is established before the first Acquire. The number of open
// handles never exceeds the configured size. When all handles are in use, Acquire
// blocks until another goroutine calls Release or Discard, or until its context ends.
//
// Usage Example:
//
//	p := pool.New("bucket-1@source", 10,
//		func(ctx context.Context) (store.IClient, error) { return dial(ctx) },
//		func(c store.IClient) error { return c.Close() },
//	)
//	defer p.Close()
//
//	c, err := p.Acquire(ctx)
//	if err != nil {
//		return err
//	}
//	defer p.Release(c)
//
// Failure Handling:
//
//	A failing Factory yields a *ConnectionError and gives the capacity slot back,
//	so an unreachable host never shrinks the pool.
package pool
