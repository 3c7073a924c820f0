package agent

import (
	"math"
	"math/rand"

	"github.com/rickgao/market-sim/internal/model"
)

// MarketMaker quotes a two-sided limit spread centered on the reference
// price, cancel-then-requoting every tick. The spread widens as liquidity
// falls below baseline.
type MarketMaker struct {
	id         int
	halfSpread float64 // Fraction of the reference price
	quoteSize  int64

	bidID uint64
	askID uint64
}

// NewMarketMaker creates a maker quoting quoteSize at reference
// ± halfSpread (a price fraction, e.g. 0.001 = 10bps).
func NewMarketMaker(id int, halfSpread float64, quoteSize int64) *MarketMaker {
	return &MarketMaker{id: id, halfSpread: halfSpread, quoteSize: quoteSize}
}

func (m *MarketMaker) ID() int           { return m.id }
func (m *MarketMaker) Archetype() string { return "market_maker" }

// Act replaces the previous quote pair with a fresh one.
func (m *MarketMaker) Act(v View, _ *rand.Rand) []model.OrderIntent {
	var intents []model.OrderIntent
	if m.bidID != 0 {
		intents = append(intents, model.OrderIntent{AgentID: m.id, CancelID: m.bidID})
	}
	if m.askID != 0 {
		intents = append(intents, model.OrderIntent{AgentID: m.id, CancelID: m.askID})
	}

	// Thin books get wider quotes.
	scale := 1.0
	if v.LiquidityRatio > 0 {
		scale = 1 / math.Sqrt(v.LiquidityRatio)
	}
	ref := v.State.ReferencePrice
	half := ref * m.halfSpread * scale
	if half < v.TickSize {
		half = v.TickSize
	}

	bidPrice := ref - half
	askPrice := ref + half
	if bidPrice < v.TickSize {
		bidPrice = v.TickSize
	}

	m.bidID = v.NextID()
	m.askID = v.NextID()
	intents = append(intents,
		model.OrderIntent{
			AgentID: m.id, OrderID: m.bidID,
			Side: model.Buy, Kind: model.Limit,
			Quantity: m.quoteSize, LimitPrice: bidPrice,
		},
		model.OrderIntent{
			AgentID: m.id, OrderID: m.askID,
			Side: model.Sell, Kind: model.Limit,
			Quantity: m.quoteSize, LimitPrice: askPrice,
		},
	)
	return intents
}
