// Package liquidity tracks per-symbol depth and market impact.
//
// Fills deplete depth and contribute a square-root-law price nudge that the
// price process drains at the start of the next tick. Between fills, depth
// recovers exponentially toward its baseline, floored at a configurable
// fraction of baseline and never overshooting.
package liquidity
