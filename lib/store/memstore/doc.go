// Package memstore provides an in-memory implementation of store.IStore together with a
// simulated replication link between two stores. It is used to exercise the lag probe
// without real clusters: the link copies writes from a source store to a destination
// store after a configurable delay, and both stores support fault injection.
//
// Usage Example:
//
//	src, dst := memstore.New("source"), memstore.New("destination")
//	link := memstore.Replicate(src, dst, 120*time.Millisecond)
//	defer link.Close()
//
//	client := src.Client() // store.IClient, usable as a pooled handle
//	_ = client.Set("k", []byte("v"))
//
// Thread Safety:
//
//	All methods are safe for concurrent use.
package memstore
