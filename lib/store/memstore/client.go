package memstore

import (
	"sync/atomic"

	"github.com/ValentinKolb/xdcrlag/lib/store"
)

// client is a closable handle onto a shared Store, the in-memory analogue of one
// RPC connection.
type client struct {
	s      *Store
	closed atomic.Bool
}

// Client returns a new handle for the store.
func (s *Store) Client() store.IClient {
	s.openClients.Add(1)
	return &client{s: s}
}

func (c *client) Set(key string, value []byte) error {
	if c.closed.Load() {
		return errClosed
	}
	return c.s.Set(key, value)
}

func (c *client) Get(key string) ([]byte, bool, error) {
	if c.closed.Load() {
		return nil, false, errClosed
	}
	return c.s.Get(key)
}

func (c *client) Delete(key string) error {
	if c.closed.Load() {
		return errClosed
	}
	return c.s.Delete(key)
}

func (c *client) Has(key string) (bool, error) {
	if c.closed.Load() {
		return false, errClosed
	}
	return c.s.Has(key)
}

func (c *client) Close() error {
	if c.closed.CompareAndSwap(false, true) {
		c.s.openClients.Add(-1)
	}
	return nil
}

var errClosed = store.NewError(store.RetCClosed, "memstore client is closed")
