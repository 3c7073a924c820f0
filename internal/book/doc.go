// Package book implements a per-symbol price-time priority order book.
//
// Matching rules:
//   - Market orders walk the opposite side from best price outward; any
//     unfilled remainder is discarded (market orders never rest).
//   - Limit orders match while crossing, bounded by their limit price; the
//     remainder rests FIFO at its price level.
//   - Ties at a price break by earlier submission time, then lower order id.
//
// Prices are aligned to the symbol's tick size at the boundary and keyed
// internally as integer ticks, so level lookup never compares raw floats.
// A crossed book (best bid >= best ask with both sides populated) indicates
// corrupted matching state and panics.
package book
