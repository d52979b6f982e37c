// Package probe performs single round-trip replication lag measurements.
//
// A measurement writes a fresh marker key to the source cluster, polls the destination
// cluster until the marker shows up and finally deletes the marker from the source.
// The time between the completed write and the first successful read on the
// destination is the replication lag.
//
// State Machine:
//
//	Idle -> MarkerWritten -> Polling -> Replicated -> Cleaned
//	  \___________\______________\___________\__________-> Failed
//
// Guarantees:
//
//   - Both client handles are released to their pools on every exit path.
//   - Marker keys are random (UUID v4), so concurrent measurements never share a key.
//   - Polling is bounded by Config.Deadline; expiry yields a *TimeoutError.
//   - If a measurement fails after the marker was written, the marker is deleted
//     from the source on a best-effort basis.
package probe
