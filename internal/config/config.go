package config

import "time"

// SimulatorConfig is the root configuration for a simulator instance.
type SimulatorConfig struct {
	Instance   InstanceConfig   `yaml:"instance"`
	Simulation SimulationConfig `yaml:"simulation"`
	Symbols    []SymbolConfig   `yaml:"symbols"`
	Agents     AgentsConfig     `yaml:"agents"`
	Database   DatabaseConfig   `yaml:"database"`
	Writers    WritersConfig    `yaml:"writers"`
	Feed       FeedConfig       `yaml:"feed"`
	Health     HealthConfig     `yaml:"health"`
}

// InstanceConfig identifies this simulator.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// SimulationConfig holds the engine tuning knobs.
type SimulationConfig struct {
	Seed         int64         `yaml:"seed"`
	TickInterval time.Duration `yaml:"tick_interval"`
	Latency      time.Duration `yaml:"latency"`

	ImpactCoefficient float64 `yaml:"impact_coefficient"`
	DepletionFactor   float64 `yaml:"depletion_factor"`
	RecoveryRate      float64 `yaml:"recovery_rate"`
	LiquidityMinRatio float64 `yaml:"liquidity_min_ratio"`

	HistorySize   int `yaml:"history_size"`
	VolWindow     int `yaml:"vol_window"`
	ShortLookback int `yaml:"short_lookback"`
	LongLookback  int `yaml:"long_lookback"`
	MaxParallel   int `yaml:"max_parallel"`
}

// SymbolConfig describes one simulated instrument.
type SymbolConfig struct {
	ID                 string  `yaml:"id"`
	InitialPrice       float64 `yaml:"initial_price"`
	TickSize           float64 `yaml:"tick_size"`
	BaseLiquidity      float64 `yaml:"base_liquidity"`
	Volatility         float64 `yaml:"volatility"`
	MomentumFactor     float64 `yaml:"momentum_factor"`
	MomentumLookback   int     `yaml:"momentum_lookback"`
	MeanReversionSpeed float64 `yaml:"mean_reversion_speed"`
}

// AgentsConfig holds the per-symbol agent population mix and behavior.
type AgentsConfig struct {
	MarketMakers    int `yaml:"market_makers"`
	NoiseTraders    int `yaml:"noise_traders"`
	InformedTraders int `yaml:"informed_traders"`
	MomentumTraders int `yaml:"momentum_traders"`

	MakerHalfSpread   float64 `yaml:"maker_half_spread"`
	MakerSize         int64   `yaml:"maker_size"`
	NoiseRate         float64 `yaml:"noise_rate"`
	NoiseMaxSize      int64   `yaml:"noise_max_size"`
	InformedThreshold float64 `yaml:"informed_threshold"`
	InformedMaxSize   int64   `yaml:"informed_max_size"`
	MomentumThreshold float64 `yaml:"momentum_threshold"`
	MomentumRate      float64 `yaml:"momentum_rate"`
	MomentumMaxSize   int64   `yaml:"momentum_max_size"`
}

// DatabaseConfig holds the TimescaleDB connection for simulation output.
type DatabaseConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// FeedConfig holds the WebSocket broadcast feed settings.
type FeedConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// HealthConfig holds the HTTP health endpoint settings.
type HealthConfig struct {
	Addr string `yaml:"addr"`
}
