// Package exec models a constant order-entry latency.
//
// Accepted intents wait in a delay queue keyed by release time
// (submitted_at + latency). Advance drains everything due, in release-time
// order with ties broken by acceptance sequence, so equal-timestamp
// submissions are never reordered.
package exec
