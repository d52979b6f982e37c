// Package unix implements the framed RPC transport over Unix domain sockets on top
// of the base package. Useful when the collector runs next to a local proxy and
// for tests.
package unix
