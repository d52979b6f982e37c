package transport

import (
	"github.com/ValentinKolb/xdcrlag/rpc/common"
)

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests
// This function is called by a server transport layer when a request is received
// It takes a shardId and a request as parameters and returns a response
type ServerHandleFunc func(shardId uint64, req []byte) (resp []byte)

// IRPCServerTransport is the interface for the listening side of the RPC transport
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler should be called when an authenticated request is received
	RegisterHandler(handler ServerHandleFunc)
	// Listen starts the transport layer and blocks until Close is called.
	// Credentials are checked with config.Authenticate.
	Listen(config common.ServerConfig) error
	// Addr returns the address the transport listens on, or "" if it is not listening yet.
	Addr() string
	// Close stops listening and closes all open connections
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration and
	// authenticates with config.Username and config.Password
	Connect(config common.ClientConfig) error
	// Send sends a request to the server and returns the response
	Send(shardId uint64, req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
