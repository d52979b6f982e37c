// Package common provides the data structures shared by the RPC client, server and
// transports.
//
// Key Components:
//
//   - Message: the single structure used for every request and response. Which
//     fields are set depends on the MessageType. Failed store operations carry
//     their store.RetCode, so clients can rebuild a *store.Error.
//
//   - ShardID: maps a bucket name to the shard id sent in every frame.
//
//   - ClientConfig / ServerConfig: connection, authentication and socket settings
//     for the two sides of a connection.
//
//   - Logger: a formatter for dragonboat's logger package. InitLoggers installs it
//     and applies the configured level to all loggers of the module.
package common
