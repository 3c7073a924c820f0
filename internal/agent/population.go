package agent

// PopulationConfig sets the archetype mix and per-archetype parameters.
type PopulationConfig struct {
	MarketMakers    int
	NoiseTraders    int
	InformedTraders int
	MomentumTraders int

	MakerHalfSpread   float64 // Fraction of price, per side
	MakerQuoteSize    int64
	NoiseMaxSize      int64
	NoiseRate         float64
	InformedThreshold float64
	InformedBaseSize  int64
	InformedMaxSize   int64
	MomentumThreshold float64
	MomentumBaseSize  int64
	MomentumMaxSize   int64
	MomentumRate      float64
}

// DefaultPopulationConfig returns the standard 40-agent mix.
func DefaultPopulationConfig() PopulationConfig {
	return PopulationConfig{
		MarketMakers:    5,
		NoiseTraders:    20,
		InformedTraders: 10,
		MomentumTraders: 5,

		MakerHalfSpread:   0.001,
		MakerQuoteSize:    50,
		NoiseMaxSize:      10,
		NoiseRate:         0.8,
		InformedThreshold: 0.0005,
		InformedBaseSize:  10,
		InformedMaxSize:   40,
		MomentumThreshold: 0.002,
		MomentumBaseSize:  20,
		MomentumMaxSize:   60,
		MomentumRate:      0.25,
	}
}

// NewPopulation builds the agent set with ids assigned in archetype order
// (makers, then noise, informed, momentum). Iteration over the returned
// slice is the fixed per-tick action order.
func NewPopulation(cfg PopulationConfig) []Agent {
	agents := make([]Agent, 0,
		cfg.MarketMakers+cfg.NoiseTraders+cfg.InformedTraders+cfg.MomentumTraders)

	id := 0
	for i := 0; i < cfg.MarketMakers; i++ {
		id++
		agents = append(agents, NewMarketMaker(id, cfg.MakerHalfSpread, cfg.MakerQuoteSize))
	}
	for i := 0; i < cfg.NoiseTraders; i++ {
		id++
		agents = append(agents, NewNoiseTrader(id, cfg.NoiseMaxSize, cfg.NoiseRate))
	}
	for i := 0; i < cfg.InformedTraders; i++ {
		id++
		agents = append(agents, NewInformedTrader(id, cfg.InformedThreshold, cfg.InformedBaseSize, cfg.InformedMaxSize))
	}
	for i := 0; i < cfg.MomentumTraders; i++ {
		id++
		agents = append(agents, NewMomentumTrader(id, cfg.MomentumThreshold, cfg.MomentumBaseSize, cfg.MomentumMaxSize, cfg.MomentumRate))
	}
	return agents
}
