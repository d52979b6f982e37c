// Package tcp implements the framed RPC transport over TCP sockets on top of the
// base package. It only adds dialing, listening and the socket options of
// common.TCPConf and common.SocketConf (no delay, keep alive, linger, buffer sizes).
package tcp
