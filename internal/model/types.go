package model

import "github.com/google/uuid"

// -----------------------------------------------------------------------------
// Enums
// -----------------------------------------------------------------------------

// Side is the direction of an order or fill.
type Side int8

const (
	// Buy bids for quantity.
	Buy Side = iota
	// Sell offers quantity.
	Sell
)

// String returns the lowercase wire name of the side.
func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Sign returns +1 for buys and -1 for sells, the direction a fill pushes price.
func (s Side) Sign() float64 {
	if s == Buy {
		return 1
	}
	return -1
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderKind is the execution style of an order.
type OrderKind int8

const (
	// Limit orders rest at their price when not immediately matched.
	Limit OrderKind = iota
	// Market orders consume liquidity; any unfilled remainder is discarded.
	Market
)

// String returns the lowercase wire name of the kind.
func (k OrderKind) String() string {
	if k == Market {
		return "market"
	}
	return "limit"
}

// OrderStatus is the outcome of a submission, reported to the caller.
type OrderStatus string

const (
	StatusFilled          OrderStatus = "filled"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusResting         OrderStatus = "resting"
	StatusRejected        OrderStatus = "rejected"
)

// -----------------------------------------------------------------------------
// Static Types
// -----------------------------------------------------------------------------

// Symbol holds the immutable parameters of one simulated instrument.
// Created at startup; never mutated afterwards.
type Symbol struct {
	ID                 string  // Primary key (e.g., "SYN-ALPHA")
	InitialPrice       float64 // Starting reference price
	TickSize           float64 // Minimum price increment
	BaseLiquidity      float64 // Baseline depth for the liquidity model
	Volatility         float64 // Brownian coefficient (per sqrt(second))
	MomentumFactor     float64 // Weight of the k-tick momentum term
	MomentumLookback   int     // k, in ticks
	MeanReversionSpeed float64 // Pull toward the fair-price anchor
}

// -----------------------------------------------------------------------------
// Order Flow Types
// -----------------------------------------------------------------------------

// Order is a request to trade. Once accepted it is owned exclusively by the
// order book; only Remaining is mutated, on partial fill.
type Order struct {
	ID          uint64 // Engine-wide monotonic id
	Symbol      string
	Side        Side
	Kind        OrderKind
	Quantity    int64   // Original quantity, > 0
	Remaining   int64   // Unfilled quantity
	LimitPrice  float64 // Required for limit orders, ignored for market
	SubmittedAt int64   // Simulated time (µs since epoch)
}

// OrderIntent is an agent's desired action for one tick: either a new order
// or, when CancelID is nonzero, cancellation of a previously placed order.
type OrderIntent struct {
	AgentID    int
	OrderID    uint64 // Pre-allocated id for new orders
	CancelID   uint64 // Nonzero = cancel that order instead of placing one
	Side       Side
	Kind       OrderKind
	Quantity   int64
	LimitPrice float64
}

// Fill is one executed quantity against one order. Immutable once created;
// the atomic unit handed to the liquidity model, analytics and persistence.
// Each match event produces a maker fill and a taker fill of equal quantity.
type Fill struct {
	FillID    uuid.UUID
	OrderID   uint64
	Symbol    string
	Side      Side
	Price     float64
	Quantity  int64
	Timestamp int64 // Simulated time (µs since epoch)
	Taker     bool  // true on the aggressor side of the match
}

// -----------------------------------------------------------------------------
// Book View Types
// -----------------------------------------------------------------------------

// PriceLevel is an aggregated view of one price in a book snapshot.
type PriceLevel struct {
	Price      float64
	Quantity   int64 // Sum of resting remaining quantities at this price
	OrderCount int
}

// BookSnapshot is a depth-limited view of one symbol's book, best price first.
type BookSnapshot struct {
	Symbol    string
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp int64
}

// -----------------------------------------------------------------------------
// Per-Tick Output Types
// -----------------------------------------------------------------------------

// MarketState is the per-symbol snapshot rebuilt once per tick.
// Read-only to all consumers.
type MarketState struct {
	Symbol         string
	LastPrice      float64 // Last trade price (reference price until first trade)
	ReferencePrice float64 // Stochastic process output
	Volume         int64   // Accumulated traded quantity since start
	Liquidity      float64 // Current depth from the liquidity model
	RealizedVol    float64 // Rolling stdev of log returns
	Momentum       float64 // Momentum term of the last price step
	Spread         float64 // Best ask - best bid, 0 when one-sided
	Timestamp      int64   // Simulated time (µs since epoch)
}

// AnalyticsRow is the microstructure metrics row produced per symbol per tick.
type AnalyticsRow struct {
	Symbol          string
	BidAskSpread    float64
	MidPrice        float64
	Imbalance       float64 // (bid_depth - ask_depth) / (bid_depth + ask_depth)
	BidDepth        int64
	AskDepth        int64
	EffectiveSpread float64 // Fill-weighted 2*|price - pre-match mid|
	PriceImpact     float64 // Post-match mid shift, signed
	RealizedVol     float64
	VWAP            float64 // Volume-weighted over this tick's fills
	Timestamp       int64   // Simulated time (µs since epoch)
}
