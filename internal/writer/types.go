package writer

import (
	"time"
)

// WriterConfig contains configuration for batch writers.
type WriterConfig struct {
	// BatchSize is the number of rows to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultWriterConfig returns sensible defaults.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     1000,
		FlushInterval: 1 * time.Second,
	}
}

// fillRow represents a row to be inserted into the fills table.
type fillRow struct {
	Timestamp int64 // Microseconds
	FillID    string
	OrderID   int64
	Symbol    string
	Side      string // "buy" or "sell"
	Price     float64
	Quantity  int64
}

// marketStateRow represents a row for the market_state table.
type marketStateRow struct {
	Timestamp  int64
	Symbol     string
	LastPrice  float64
	Volume     int64
	Liquidity  float64
	Volatility float64
	Momentum   float64
	Spread     float64
}

// analyticsRow represents a row for the analytics table.
type analyticsRow struct {
	Timestamp          int64
	Symbol             string
	BidAskSpread       float64
	MidPrice           float64
	Imbalance          float64
	BidDepth           int64
	AskDepth           int64
	EffectiveSpread    float64
	PriceImpact        float64
	RealizedVolatility float64
}

// WriterMetrics holds metrics for a writer.
type WriterMetrics struct {
	Inserts   int64
	Conflicts int64
	Errors    int64
	Flushes   int64
}
