// Package writer implements batch writers for the simulation output streams.
//
// Writers:
//   - Fill writer (fills table)
//   - Market state writer (market_state table)
//   - Analytics writer (analytics table)
//
// Each writer drains one sink buffer, accumulates rows, and flushes with
// pgx.Batch either when the batch fills or on a timer. All writers use
// append-only semantics (never update, only insert).
package writer
