// Package http implements the RPC transport over plain HTTP. Every request is a
// POST to /{shardId} whose body is the serialized message; the response body is
// the serialized answer.
//
// Credentials are sent with every request as basic auth and checked by the server
// before the handler runs (401 on failure).
//
// Thread Safety:
//
//	The client transport is safe for concurrent use. Endpoints are selected round
//	robin with an atomic counter.
package http
