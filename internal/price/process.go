package price

import (
	"math"
	"math/rand"

	"github.com/rickgao/market-sim/internal/model"
)

// Process holds the stochastic price state for one symbol.
type Process struct {
	sym model.Symbol
	dt  float64 // Tick interval in seconds

	current  float64
	anchor   float64
	momentum float64 // Momentum term of the last step, for MarketState

	// Ring of recent prices for the k-tick momentum lookback.
	history []float64
	head    int
	count   int
}

// New creates a process at the symbol's initial price. The anchor for
// mean reversion is the initial price.
func New(sym model.Symbol, tickSeconds float64) *Process {
	lookback := sym.MomentumLookback
	if lookback < 1 {
		lookback = 1
	}
	p := &Process{
		sym:     sym,
		dt:      tickSeconds,
		current: sym.InitialPrice,
		anchor:  sym.InitialPrice,
		history: make([]float64, lookback+1),
	}
	p.push(sym.InitialPrice)
	return p
}

// Step advances the reference price by one tick. The accumulated impact
// from the liquidity model is applied before the stochastic terms.
func (p *Process) Step(impact float64, rng *rand.Rand) float64 {
	brownian := rng.NormFloat64() * p.sym.Volatility * math.Sqrt(p.dt)
	p.momentum = p.sym.MomentumFactor * (p.current - p.lookbackPrice())
	meanReversion := p.sym.MeanReversionSpeed * (p.current - p.anchor)

	next := p.current + impact + brownian + p.momentum - meanReversion
	if next < p.sym.TickSize {
		next = p.sym.TickSize
	}

	p.current = next
	p.push(next)
	return next
}

// Current returns the reference price after the last step.
func (p *Process) Current() float64 { return p.current }

// Momentum returns the momentum term of the last step.
func (p *Process) Momentum() float64 { return p.momentum }

// push appends a price to the lookback ring.
func (p *Process) push(v float64) {
	p.history[p.head] = v
	p.head = (p.head + 1) % len(p.history)
	if p.count < len(p.history) {
		p.count++
	}
}

// lookbackPrice returns the price k ticks ago, or the oldest available
// price while the ring is still warming up.
func (p *Process) lookbackPrice() float64 {
	oldest := p.head - p.count
	if oldest < 0 {
		oldest += len(p.history)
	}
	return p.history[oldest]
}
