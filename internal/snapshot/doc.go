// Package snapshot captures and restores point-in-time matrix
// configuration.
//
// A snapshot freezes the live routing table and the current device
// inventory into an immutable record. Restore replays the captured routing
// through the line protocol and the captured names through the structured
// API; both are absolute writes, so replaying the same snapshot twice ends
// in the same state. Restore never aborts on an individual failure — it
// accumulates per-entry errors and reports them alongside the success
// counts, leaving the overall verdict to the caller.
package snapshot
