// Package model defines shared data types used across the simulation core.
//
// Conventions:
//   - Prices: float64, aligned to a symbol's tick size at the book boundary
//   - Quantities: int64 contracts
//   - Timestamps: int64 microseconds of simulated time since Unix epoch
//   - IDs: uint64 monotonic counters for orders, uuid.UUID for fills
package model
