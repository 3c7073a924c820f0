package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultTickInterval      = 100 * time.Millisecond
	DefaultLatency           = 10 * time.Millisecond
	DefaultImpactCoefficient = 0.1
	DefaultDepletionFactor   = 1.0
	DefaultRecoveryRate      = 0.1
	DefaultLiquidityMinRatio = 0.05
	DefaultHistorySize       = 256
	DefaultVolWindow         = 50
	DefaultShortLookback     = 5
	DefaultLongLookback      = 20

	DefaultMarketMakers    = 5
	DefaultNoiseTraders    = 20
	DefaultInformedTraders = 10
	DefaultMomentumTraders = 5

	DefaultDBPort        = 5432
	DefaultDBSSLMode     = "prefer"
	DefaultMaxConns      = 10
	DefaultMinConns      = 2
	DefaultBatchSize     = 1000
	DefaultFlushInterval = 1 * time.Second
	DefaultBufferSize    = 10000

	DefaultFeedAddr   = ":8080"
	DefaultHealthAddr = ":8090"
)

func (c *SimulatorConfig) applyDefaults() {
	// Simulation defaults
	if c.Simulation.TickInterval == 0 {
		c.Simulation.TickInterval = DefaultTickInterval
	}
	if c.Simulation.Latency == 0 {
		c.Simulation.Latency = DefaultLatency
	}
	if c.Simulation.ImpactCoefficient == 0 {
		c.Simulation.ImpactCoefficient = DefaultImpactCoefficient
	}
	if c.Simulation.DepletionFactor == 0 {
		c.Simulation.DepletionFactor = DefaultDepletionFactor
	}
	if c.Simulation.RecoveryRate == 0 {
		c.Simulation.RecoveryRate = DefaultRecoveryRate
	}
	if c.Simulation.LiquidityMinRatio == 0 {
		c.Simulation.LiquidityMinRatio = DefaultLiquidityMinRatio
	}
	if c.Simulation.HistorySize == 0 {
		c.Simulation.HistorySize = DefaultHistorySize
	}
	if c.Simulation.VolWindow == 0 {
		c.Simulation.VolWindow = DefaultVolWindow
	}
	if c.Simulation.ShortLookback == 0 {
		c.Simulation.ShortLookback = DefaultShortLookback
	}
	if c.Simulation.LongLookback == 0 {
		c.Simulation.LongLookback = DefaultLongLookback
	}

	// Agents defaults: a zero mix means "use the standard population".
	// Explicit partial mixes are left alone so a config can disable an
	// archetype outright.
	if c.Agents.MarketMakers == 0 && c.Agents.NoiseTraders == 0 &&
		c.Agents.InformedTraders == 0 && c.Agents.MomentumTraders == 0 {
		c.Agents.MarketMakers = DefaultMarketMakers
		c.Agents.NoiseTraders = DefaultNoiseTraders
		c.Agents.InformedTraders = DefaultInformedTraders
		c.Agents.MomentumTraders = DefaultMomentumTraders
	}

	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	// Writers defaults
	if c.Writers.BatchSize == 0 {
		c.Writers.BatchSize = DefaultBatchSize
	}
	if c.Writers.FlushInterval == 0 {
		c.Writers.FlushInterval = DefaultFlushInterval
	}
	if c.Writers.BufferSize == 0 {
		c.Writers.BufferSize = DefaultBufferSize
	}

	// Feed and health defaults
	if c.Feed.Addr == "" {
		c.Feed.Addr = DefaultFeedAddr
	}
	if c.Health.Addr == "" {
		c.Health.Addr = DefaultHealthAddr
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
