// Package serializer converts RPC messages to and from bytes.
//
// Key Components:
//
//   - IRPCSerializer: the interface all serializers implement. New looks a
//     serializer up by the name used on the command line.
//
//   - binarySerializerImpl: a compact format that only encodes present fields,
//     announced by a flag byte. Smallest payloads and the fewest allocations.
//
//   - jsonSerializerImpl: human-readable, useful when debugging with the http
//     transport (e.g. with curl). Unknown fields are rejected.
//
//   - gobSerializerImpl: Go's gob encoding, mostly for completeness.
//
// Client and server must be configured with the same serializer; nothing on the
// wire identifies the format.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use.
package serializer
