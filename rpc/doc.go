// Package rpc is the network layer between the collector and the clusters.
//
// The package is organized into several subpackages:
//
//   - common: the Message protocol, shard ids, client/server configuration and
//     the logger setup.
//
//   - transport: pluggable transports (tcp, unix sockets, http) moving opaque
//     payloads tagged with a shard id, including authentication.
//
//   - serializer: message encodings (binary, json, gob).
//
//   - client: store.IClient backed by a transport and a serializer.
//
//   - server: exposes store.IStore implementations, used by the sandbox command
//     and tests.
package rpc
