// Package database provides connection pool management for TimescaleDB.
//
// The simulator writes only time-series output (fills, market states,
// analytics rows), so a single TimescaleDB pool is all it needs.
package database
