// Package transport defines the contract between the RPC client/server and the
// network. Implementations move opaque byte slices tagged with a shard id; they
// know nothing about messages or serializers.
//
// Key Components:
//
//   - IRPCClientTransport: connects to one or more endpoints, authenticates and
//     sends requests.
//
//   - IRPCServerTransport: accepts connections, checks credentials and routes
//     requests to a ServerHandleFunc.
//
// Implementations live in the tcp, unix and http subpackages; tcp and unix share
// the framed protocol of the base package.
package transport
