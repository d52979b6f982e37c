// Package server exposes store.IStore implementations over the RPC transports.
//
// The collector itself only needs the client side. The server is used by the
// "xdcrlag sandbox" command, which serves two in-memory clusters joined by a
// simulated replication link, and by the end-to-end tests of the rpc packages.
//
// Every bucket is registered as its own shard (see common.ShardID). Requests for
// unknown shards are answered with an error message.
//
// Thread Safety:
//
//	RegisterBucket may be called before or while serving. Serve blocks and must be
//	called only once.
package server
