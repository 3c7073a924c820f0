package agent

import (
	"math"
	"math/rand"

	"github.com/rickgao/market-sim/internal/model"
)

// InformedTrader trades in the direction of recent short-horizon momentum,
// sized proportional to conviction.
type InformedTrader struct {
	id        int
	threshold float64 // Minimum |return| before acting
	baseSize  int64
	maxSize   int64
}

// NewInformedTrader creates an informed trader. threshold is the momentum
// magnitude (as a return) below which the agent stays out.
func NewInformedTrader(id int, threshold float64, baseSize, maxSize int64) *InformedTrader {
	return &InformedTrader{id: id, threshold: threshold, baseSize: baseSize, maxSize: maxSize}
}

func (a *InformedTrader) ID() int           { return a.id }
func (a *InformedTrader) Archetype() string { return "informed_trader" }

func (a *InformedTrader) Act(v View, _ *rand.Rand) []model.OrderIntent {
	return momentumIntent(a.id, v, v.ShortMomentum, a.threshold, a.baseSize, a.maxSize)
}

// MomentumTrader reacts like an informed trader but to a longer lookback
// window, and only acts on a fraction of ticks.
type MomentumTrader struct {
	id        int
	threshold float64
	baseSize  int64
	maxSize   int64
	rate      float64 // Probability of acting on a given tick
}

// NewMomentumTrader creates a momentum trader with the given activity rate.
func NewMomentumTrader(id int, threshold float64, baseSize, maxSize int64, rate float64) *MomentumTrader {
	return &MomentumTrader{id: id, threshold: threshold, baseSize: baseSize, maxSize: maxSize, rate: rate}
}

func (a *MomentumTrader) ID() int           { return a.id }
func (a *MomentumTrader) Archetype() string { return "momentum_trader" }

func (a *MomentumTrader) Act(v View, rng *rand.Rand) []model.OrderIntent {
	// Draw unconditionally so the rng stream stays aligned across ticks.
	draw := rng.Float64()
	if draw >= a.rate {
		return nil
	}
	return momentumIntent(a.id, v, v.LongMomentum, a.threshold, a.baseSize, a.maxSize)
}

// momentumIntent builds a market order in the trend direction, sized by
// conviction (momentum magnitude relative to the action threshold).
func momentumIntent(id int, v View, momentum, threshold float64, baseSize, maxSize int64) []model.OrderIntent {
	if math.Abs(momentum) < threshold || threshold <= 0 {
		return nil
	}

	conviction := math.Abs(momentum) / threshold
	qty := int64(float64(baseSize) * conviction)
	if qty < 1 {
		qty = 1
	}
	if qty > maxSize {
		qty = maxSize
	}

	side := model.Buy
	if momentum < 0 {
		side = model.Sell
	}
	return []model.OrderIntent{{
		AgentID:  id,
		OrderID:  v.NextID(),
		Side:     side,
		Kind:     model.Market,
		Quantity: qty,
	}}
}
