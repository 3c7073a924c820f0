// Package analytics derives microstructure metrics from the post-match
// book and the tick's fill stream: spread, mid, depth imbalance, effective
// spread, price impact, realized volatility and VWAP. Computation is pure;
// the rolling price history is owned by the caller.
package analytics
