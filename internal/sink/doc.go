// Package sink decouples the simulation loop from persistence.
//
// The tick loop only ever enqueues: every write is a non-blocking TrySend
// into a bounded buffer consumed by a writer goroutine. When a buffer is
// full the record is dropped and a counter incremented, so persistence
// failure never stalls or crashes the simulation.
package sink
