package agent

import (
	"math/rand"

	"github.com/rickgao/market-sim/internal/model"
)

// View is the read-only market picture handed to each agent for one tick.
type View struct {
	State   model.MarketState
	BestBid float64
	BestAsk float64
	HasBid  bool
	HasAsk  bool
	Mid     float64 // Book mid, falling back to the reference price

	// Returns over the short and long momentum lookbacks, 0 while the
	// price history is warming up.
	ShortMomentum float64
	LongMomentum  float64

	// LiquidityRatio is current depth / baseline depth, in (0, 1].
	LiquidityRatio float64

	TickSize float64
	Now      int64

	// NextID allocates an order id from the owning shard, letting agents
	// track their own resting orders across ticks.
	NextID func() uint64
}

// Agent is one autonomous participant. Act reads the view and returns zero
// or more intents; implementations mutate only their own internal state.
type Agent interface {
	ID() int
	Archetype() string
	Act(v View, rng *rand.Rand) []model.OrderIntent
}
