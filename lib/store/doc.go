// Package store defines the small key-value surface the replication lag collector
// relies on. The collector never interprets stored data: it only writes marker keys,
// reads them back on another cluster and deletes them again.
//
// Key Components:
//
//   - IStore: Set, Get, Delete and Has against one bucket on one host.
//
//   - IClient: an IStore that owns a connection and can be closed. Connection pools
//     (see lib/pool) hand out IClient values and close them on shutdown.
//
//   - Error: a structured error with a RetCode, used by implementations to report
//     store level failures (as opposed to transport failures).
//
// Implementations:
//
//   - rpc/client: the production client speaking the framed RPC protocol over
//     tcp, unix sockets or http.
//
//   - memstore: an in-memory store with a simulated replication link and fault
//     injection, used by tests and by the "probe --simulate" command.
package store
