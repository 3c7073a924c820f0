package liquidity

import (
	"math"

	"github.com/rickgao/market-sim/internal/model"
)

// Params tunes the impact and recovery behavior of one symbol.
type Params struct {
	ImpactCoefficient float64 // Scale of the square-root impact law
	DepletionFactor   float64 // Depth removed per unit of filled quantity
	RecoveryRate      float64 // Fraction of the deficit recovered per tick
	MinRatio          float64 // Floor as a fraction of baseline
}

// DefaultParams returns the defaults used when config leaves a field unset.
func DefaultParams() Params {
	return Params{
		ImpactCoefficient: 0.1,
		DepletionFactor:   1.0,
		RecoveryRate:      0.1,
		MinRatio:          0.05,
	}
}

// Model is the liquidity state of one symbol. Mutated only by the owning
// shard: ApplyFill on taker fills, Recover once per tick.
type Model struct {
	params   Params
	baseline float64
	current  float64
	floor    float64
	pending  float64 // Accumulated impact, drained by the price process
}

// New creates a liquidity model at its baseline depth.
func New(baseline float64, params Params) *Model {
	if params.MinRatio <= 0 {
		params.MinRatio = DefaultParams().MinRatio
	}
	return &Model{
		params:   params,
		baseline: baseline,
		current:  baseline,
		floor:    baseline * params.MinRatio,
	}
}

// ApplyFill depletes depth and accumulates the fill's price impact.
// Buy fills push the impact up, sell fills down. Returns the signed impact
// contributed by this fill.
func (m *Model) ApplyFill(f model.Fill) float64 {
	impact := m.params.ImpactCoefficient * math.Sqrt(float64(f.Quantity)/m.current) * f.Side.Sign()
	m.pending += impact

	m.current -= float64(f.Quantity) * m.params.DepletionFactor
	if m.current < m.floor {
		m.current = m.floor
	}
	return impact
}

// Recover moves depth toward baseline for the given number of elapsed
// ticks. Never overshoots baseline.
func (m *Model) Recover(elapsedTicks float64) {
	if elapsedTicks <= 0 || m.current >= m.baseline {
		return
	}
	m.current += (m.baseline - m.current) * m.params.RecoveryRate * elapsedTicks
	if m.current > m.baseline {
		m.current = m.baseline
	}
}

// DrainImpact returns the accumulated impact and resets it to zero.
func (m *Model) DrainImpact() float64 {
	impact := m.pending
	m.pending = 0
	return impact
}

// Current returns the current depth.
func (m *Model) Current() float64 { return m.current }

// Baseline returns the baseline depth.
func (m *Model) Baseline() float64 { return m.baseline }

// Floor returns the depth floor.
func (m *Model) Floor() float64 { return m.floor }
