package agent

import (
	"math/rand"

	"github.com/rickgao/market-sim/internal/model"
)

// NoiseTrader emits a small order in a random direction with random size,
// independent of the price trend.
type NoiseTrader struct {
	id      int
	maxSize int64
	rate    float64 // Probability of acting on a given tick
}

// NewNoiseTrader creates a noise trader with the given max order size and
// per-tick activity rate.
func NewNoiseTrader(id int, maxSize int64, rate float64) *NoiseTrader {
	return &NoiseTrader{id: id, maxSize: maxSize, rate: rate}
}

func (n *NoiseTrader) ID() int           { return n.id }
func (n *NoiseTrader) Archetype() string { return "noise_trader" }

func (n *NoiseTrader) Act(v View, rng *rand.Rand) []model.OrderIntent {
	if rng.Float64() >= n.rate {
		return nil
	}

	side := model.Buy
	if rng.Intn(2) == 1 {
		side = model.Sell
	}
	qty := 1 + rng.Int63n(n.maxSize)

	intent := model.OrderIntent{
		AgentID:  n.id,
		OrderID:  v.NextID(),
		Side:     side,
		Quantity: qty,
	}
	if rng.Float64() < 0.5 {
		intent.Kind = model.Market
	} else {
		// Passive limit a few ticks inside the touch.
		intent.Kind = model.Limit
		offset := float64(1+rng.Intn(4)) * v.TickSize
		if side == model.Buy {
			intent.LimitPrice = v.Mid - offset
		} else {
			intent.LimitPrice = v.Mid + offset
		}
		if intent.LimitPrice < v.TickSize {
			intent.LimitPrice = v.TickSize
		}
	}
	return []model.OrderIntent{intent}
}
