package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *SimulatorConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if len(c.Symbols) == 0 {
		return errors.New("at least one symbol is required")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for i, s := range c.Symbols {
		if err := s.validate(fmt.Sprintf("symbols[%d]", i)); err != nil {
			return err
		}
		if seen[s.ID] {
			return fmt.Errorf("symbols[%d]: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
	}

	if c.Simulation.TickInterval <= 0 {
		return errors.New("simulation.tick_interval must be positive")
	}
	if c.Simulation.Latency < 0 {
		return errors.New("simulation.latency must be >= 0")
	}
	if c.Simulation.LiquidityMinRatio <= 0 || c.Simulation.LiquidityMinRatio >= 1 {
		return fmt.Errorf("simulation.liquidity_min_ratio must be in (0, 1), got %v", c.Simulation.LiquidityMinRatio)
	}
	if c.Simulation.ShortLookback >= c.Simulation.LongLookback {
		return fmt.Errorf("simulation.short_lookback (%d) must be less than long_lookback (%d)",
			c.Simulation.ShortLookback, c.Simulation.LongLookback)
	}

	if c.Agents.MarketMakers < 0 || c.Agents.NoiseTraders < 0 ||
		c.Agents.InformedTraders < 0 || c.Agents.MomentumTraders < 0 {
		return errors.New("agents counts must be >= 0")
	}
	total := c.Agents.MarketMakers + c.Agents.NoiseTraders +
		c.Agents.InformedTraders + c.Agents.MomentumTraders
	if total == 0 {
		return errors.New("agents: population is empty")
	}

	if c.Database.Enabled {
		if err := c.Database.Timescale.validate("database.timescale"); err != nil {
			return err
		}
	}

	if c.Writers.BatchSize < 1 {
		return errors.New("writers.batch_size must be >= 1")
	}
	if c.Writers.BufferSize < 1 {
		return errors.New("writers.buffer_size must be >= 1")
	}

	return nil
}

func (s *SymbolConfig) validate(prefix string) error {
	if s.ID == "" {
		return fmt.Errorf("%s.id is required", prefix)
	}
	if s.InitialPrice <= 0 {
		return fmt.Errorf("%s.initial_price must be positive", prefix)
	}
	if s.TickSize <= 0 {
		return fmt.Errorf("%s.tick_size must be positive", prefix)
	}
	if s.BaseLiquidity <= 0 {
		return fmt.Errorf("%s.base_liquidity must be positive", prefix)
	}
	if s.Volatility < 0 {
		return fmt.Errorf("%s.volatility must be >= 0", prefix)
	}
	if s.MomentumLookback < 1 {
		return fmt.Errorf("%s.momentum_lookback must be >= 1", prefix)
	}
	if s.MeanReversionSpeed < 0 || s.MeanReversionSpeed > 1 {
		return fmt.Errorf("%s.mean_reversion_speed must be in [0, 1], got %v", prefix, s.MeanReversionSpeed)
	}
	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
