// Package cmd implements the command-line interface of xdcrlag, the cross
// datacenter replication lag collector.
//
// The package is organized into several subpackages:
//
//   - collect: Runs the collector until interrupted and exports the samples
//   - probe: Measures every bucket a fixed number of times (optionally against simulated clusters)
//   - sandbox: Serves a replicated pair of in-memory clusters over RPC
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See xdcrlag -help for a list of all commands.
package cmd
