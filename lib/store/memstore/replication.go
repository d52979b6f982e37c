package memstore

import (
	"sync"
	"sync/atomic"
	"time"
)

// Link copies every write of a source store to a destination store after a delay,
// imitating asynchronous cross-datacenter replication.
type Link struct {
	src    *Store
	dst    *Store
	delay  time.Duration
	paused atomic.Bool
	closed atomic.Bool
	wg     sync.WaitGroup
}

// Replicate connects src to dst. Writes made on src after this call become visible on
// dst once delay has elapsed. A zero delay replicates synchronously.
func Replicate(src, dst *Store, delay time.Duration) *Link {
	l := &Link{src: src, dst: dst, delay: delay}

	src.linksMu.Lock()
	src.links = append(src.links, l)
	src.linksMu.Unlock()

	return l
}

// Pause stops the link: writes made while paused are dropped and never reach dst.
func (l *Link) Pause() {
	l.paused.Store(true)
}

// Resume restarts a paused link. Dropped writes are not replayed.
func (l *Link) Resume() {
	l.paused.Store(false)
}

// Wait blocks until all scheduled replications have been applied.
func (l *Link) Wait() {
	l.wg.Wait()
}

// Close detaches the link from its source and waits for in-flight replications.
func (l *Link) Close() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}

	l.src.linksMu.Lock()
	for i, other := range l.src.links {
		if other == l {
			l.src.links = append(l.src.links[:i], l.src.links[i+1:]...)
			break
		}
	}
	l.src.linksMu.Unlock()

	l.wg.Wait()
}

// apply writes the event to the destination, bypassing its fault function
func (l *Link) apply(op Op, key string, value []byte) {
	switch op {
	case OpSet:
		l.dst.data.Store(key, value)
	case OpDelete:
		l.dst.data.Delete(key)
	}
}

// replicate forwards a write to every attached link
func (s *Store) replicate(op Op, key string, value []byte) {
	s.linksMu.RLock()
	defer s.linksMu.RUnlock()

	for _, l := range s.links {
		if l.paused.Load() || l.closed.Load() {
			continue
		}
		if l.delay <= 0 {
			l.apply(op, key, value)
			continue
		}

		l.wg.Add(1)
		link := l
		time.AfterFunc(l.delay, func() {
			defer link.wg.Done()
			link.apply(op, key, value)
		})
	}
}
