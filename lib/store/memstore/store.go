package memstore

import (
	"sync"
	"sync/atomic"

	"github.com/ValentinKolb/xdcrlag/lib/store"
	"github.com/puzpuzpuz/xsync/v3"
)

// Op names a store operation, used for fault injection and statistics.
type Op string

const (
	OpSet    Op = "set"
	OpGet    Op = "get"
	OpDelete Op = "delete"
	OpHas    Op = "has"
)

// FaultFunc is consulted before every operation. A non-nil return value is returned
// to the caller instead of executing the operation.
type FaultFunc func(op Op, key string) error

var _ store.IStore = (*Store)(nil)

// Store is an in-memory key-value store.
type Store struct {
	name  string
	data  *xsync.MapOf[string, []byte]
	fault atomic.Pointer[FaultFunc]
	ops   *xsync.MapOf[Op, *atomic.Uint64]

	linksMu sync.RWMutex
	links   []*Link

	openClients atomic.Int64
}

// New creates a new empty store. The name is only used for diagnostics.
func New(name string) *Store {
	return &Store{
		name: name,
		data: xsync.NewMapOf[string, []byte](),
		ops:  xsync.NewMapOf[Op, *atomic.Uint64](),
	}
}

// Name returns the name the store was created with.
func (s *Store) Name() string {
	return s.name
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (s *Store) Set(key string, value []byte) error {
	if err := s.before(OpSet, key); err != nil {
		return err
	}
	v := cloneBytes(value)
	s.data.Store(key, v)
	s.replicate(OpSet, key, v)
	return nil
}

func (s *Store) Get(key string) ([]byte, bool, error) {
	if err := s.before(OpGet, key); err != nil {
		return nil, false, err
	}
	v, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return cloneBytes(v), true, nil
}

func (s *Store) Delete(key string) error {
	if err := s.before(OpDelete, key); err != nil {
		return err
	}
	s.data.Delete(key)
	s.replicate(OpDelete, key, nil)
	return nil
}

func (s *Store) Has(key string) (bool, error) {
	if err := s.before(OpHas, key); err != nil {
		return false, err
	}
	_, ok := s.data.Load(key)
	return ok, nil
}

// --------------------------------------------------------------------------
// Fault Injection & Inspection
// --------------------------------------------------------------------------

// SetFault installs f as the fault function of the store. Passing nil removes it.
func (s *Store) SetFault(f FaultFunc) {
	if f == nil {
		s.fault.Store(nil)
		return
	}
	s.fault.Store(&f)
}

// FailNext makes the next call of op (for any key) return err. Later calls succeed.
func (s *Store) FailNext(op Op, err error) {
	var fired atomic.Bool
	s.SetFault(func(o Op, _ string) error {
		if o == op && fired.CompareAndSwap(false, true) {
			return err
		}
		return nil
	})
}

// Len returns the number of keys currently stored.
func (s *Store) Len() int {
	return s.data.Size()
}

// Count returns how many times op was invoked (including injected failures).
func (s *Store) Count(op Op) uint64 {
	if c, ok := s.ops.Load(op); ok {
		return c.Load()
	}
	return 0
}

// OpenClients returns the number of handles created by Client that are not closed yet.
func (s *Store) OpenClients() int64 {
	return s.openClients.Load()
}

// before counts the operation and evaluates the fault function
func (s *Store) before(op Op, key string) error {
	c, _ := s.ops.LoadOrCompute(op, func() *atomic.Uint64 { return &atomic.Uint64{} })
	c.Add(1)

	if f := s.fault.Load(); f != nil {
		return (*f)(op, key)
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	c := make([]byte, len(b))
	copy(c, b)
	return c
}
