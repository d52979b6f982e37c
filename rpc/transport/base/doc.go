// Package base implements the framed protocol shared by the tcp and unix transports.
// Protocol specific parts (dialing, listening, socket options) are injected through
// IClientConnector and IServerConnector.
//
// Wire Format:
//
//	Every message is a frame of shardID (8 bytes), requestID (8 bytes), payload
//	length (4 bytes) and the payload, all big endian. Responses carry the requestID
//	of their request, so a single connection can have many requests in flight.
//
// Authentication:
//
//	requestID 0 is reserved for the credential handshake. A client configured with
//	a username sends its credentials as the first frame of every new connection
//	and waits for the answer: an empty payload on success, an error message
//	otherwise. A server configured with credentials closes connections that send
//	requests before authenticating.
//
// Client Behaviour:
//
//   - Multiple connections per endpoint, selected round robin.
//   - Failed requests are retried with exponential backoff and jitter.
//   - A broken connection fails all its pending requests and reconnects (and
//     re-authenticates). If that fails, the next request tries again.
//
// Server Behaviour:
//
//   - One goroutine per connection plus a bounded number of workers per connection.
//   - Read buffers are reused through a sync.Pool.
//   - Close stops the listener and closes all open connections.
package base
