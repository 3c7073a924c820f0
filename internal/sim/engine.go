package sim

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/market-sim/internal/agent"
	"github.com/rickgao/market-sim/internal/exec"
	"github.com/rickgao/market-sim/internal/model"
	"github.com/rickgao/market-sim/internal/sink"
)

// State is the orchestrator lifecycle state.
type State int32

const (
	StateInitialized State = iota
	StateRunning
	StatePaused
	StateStopped
)

// String returns the lifecycle state name.
func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateRunning:
		return "running"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config tunes the engine. Zero values select defaults.
type Config struct {
	Seed          int64         // Master seed; each shard derives its own
	TickInterval  time.Duration // Simulated and wall-clock tick cadence
	LatencyMicros int64         // Order-entry latency
	StartTime     int64         // Simulated epoch (µs); 0 = wall clock now

	ImpactCoefficient float64
	DepletionFactor   float64
	RecoveryRate      float64
	LiquidityMinRatio float64

	HistorySize   int // Rolling price history per symbol
	VolWindow     int // Realized-volatility window (ticks)
	ShortLookback int // Informed-trader momentum window (ticks)
	LongLookback  int // Momentum-trader window (ticks)
	MaxParallel   int // Concurrent shard ticks; 0 = one goroutine per shard
}

func (c *Config) applyDefaults() {
	if c.TickInterval <= 0 {
		c.TickInterval = 100 * time.Millisecond
	}
	if c.LatencyMicros <= 0 {
		c.LatencyMicros = exec.DefaultLatencyMicros
	}
	if c.StartTime == 0 {
		c.StartTime = time.Now().UnixMicro()
	}
	if c.ImpactCoefficient == 0 {
		c.ImpactCoefficient = 0.1
	}
	if c.DepletionFactor == 0 {
		c.DepletionFactor = 1.0
	}
	if c.RecoveryRate == 0 {
		c.RecoveryRate = 0.1
	}
	if c.LiquidityMinRatio == 0 {
		c.LiquidityMinRatio = 0.05
	}
	if c.HistorySize == 0 {
		c.HistorySize = 256
	}
	if c.VolWindow == 0 {
		c.VolWindow = 50
	}
	if c.ShortLookback == 0 {
		c.ShortLookback = 5
	}
	if c.LongLookback == 0 {
		c.LongLookback = 20
	}
}

// SubmitRequest is an externally submitted order.
type SubmitRequest struct {
	Symbol     string
	Side       model.Side
	Kind       model.OrderKind
	Quantity   int64
	LimitPrice float64
}

// SubmitResult reports the synchronous outcome of a submission.
type SubmitResult struct {
	OrderID        uint64
	Status         model.OrderStatus
	FilledQuantity int64
	AvgFillPrice   float64
}

// Engine drives the simulation and exposes the core's operations.
type Engine struct {
	cfg    Config
	logger *slog.Logger
	sink   sink.Sink

	shards   []*shard // Sorted by symbol id; index is the shard id space
	bySymbol map[string]*shard

	state     atomic.Int32
	simNow    atomic.Int64
	tickCount atomic.Int64

	tickMu sync.Mutex // Serializes tick execution against itself

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds an engine in the INITIALIZED state. Symbols get their own
// shard, agent population and rng stream; shard order (and therefore id
// and seed assignment) is fixed by sorting symbol ids.
func New(cfg Config, symbols []model.Symbol, popCfg agent.PopulationConfig, snk sink.Sink, logger *slog.Logger) (*Engine, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("at least one symbol is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if snk == nil {
		snk = sink.Nop{}
	}
	cfg.applyDefaults()

	sorted := make([]model.Symbol, len(symbols))
	copy(sorted, symbols)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	e := &Engine{
		cfg:      cfg,
		logger:   logger,
		sink:     snk,
		bySymbol: make(map[string]*shard, len(sorted)),
	}
	for i, sym := range sorted {
		if _, dup := e.bySymbol[sym.ID]; dup {
			return nil, fmt.Errorf("duplicate symbol %q", sym.ID)
		}
		sh := newShard(i, sym, cfg, popCfg, cfg.Seed+int64(i)*0x9E3779B9)
		e.shards = append(e.shards, sh)
		e.bySymbol[sym.ID] = sh
	}

	e.simNow.Store(cfg.StartTime)
	e.state.Store(int32(StateInitialized))

	logger.Info("simulation engine initialized",
		"symbols", len(e.shards),
		"agents_per_symbol", len(e.shards[0].agents),
		"tick_interval", cfg.TickInterval,
		"seed", cfg.Seed,
	)
	return e, nil
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

// TickCount returns the number of completed ticks.
func (e *Engine) TickCount() int64 {
	return e.tickCount.Load()
}

// Now returns the current simulated time (µs since epoch).
func (e *Engine) Now() int64 {
	return e.simNow.Load()
}

// Start transitions INITIALIZED → RUNNING and launches the free-running
// tick loop at the configured cadence.
func (e *Engine) Start(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateInitialized), int32(StateRunning)) {
		return fmt.Errorf("%w: start from %s", ErrInvalidTransition, e.State())
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.run(runCtx)
	}()

	e.logger.Info("simulation started", "tick_interval", e.cfg.TickInterval)
	return nil
}

// Pause suspends the tick loop after the in-flight tick completes.
func (e *Engine) Pause() error {
	if !e.state.CompareAndSwap(int32(StateRunning), int32(StatePaused)) {
		return fmt.Errorf("%w: pause from %s", ErrInvalidTransition, e.State())
	}
	e.logger.Info("simulation paused", "tick", e.TickCount())
	return nil
}

// Resume returns a paused loop to RUNNING.
func (e *Engine) Resume() error {
	if !e.state.CompareAndSwap(int32(StatePaused), int32(StateRunning)) {
		return fmt.Errorf("%w: resume from %s", ErrInvalidTransition, e.State())
	}
	e.logger.Info("simulation resumed", "tick", e.TickCount())
	return nil
}

// Stop tears the loop down. Terminal: a stopped engine cannot be restarted.
// The in-flight tick, if any, completes first.
func (e *Engine) Stop(ctx context.Context) error {
	prev := State(e.state.Swap(int32(StateStopped)))
	if prev == StateStopped {
		return ErrNotRunning
	}
	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("simulation stopped", "ticks", e.TickCount())
		return nil
	case <-ctx.Done():
		e.logger.Warn("simulation stop timed out")
		return ctx.Err()
	}
}

// run is the free-running tick loop. Lifecycle requests are observed only
// here, between ticks.
func (e *Engine) run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			switch e.State() {
			case StateRunning:
				if err := e.AdvanceTick(); err != nil {
					return
				}
			case StatePaused:
				// Loop stays alive, state retained.
			default:
				return
			}
		}
	}
}

// AdvanceTick processes exactly one tick across all symbols. Safe to call
// manually when the free-running loop is not started (deterministic
// stepping); returns ErrNotRunning once stopped.
func (e *Engine) AdvanceTick() error {
	if e.State() == StateStopped {
		return ErrNotRunning
	}

	e.tickMu.Lock()
	defer e.tickMu.Unlock()

	start := e.simNow.Load()
	end := start + e.cfg.TickInterval.Microseconds()

	var g errgroup.Group
	if e.cfg.MaxParallel > 0 {
		g.SetLimit(e.cfg.MaxParallel)
	}
	outputs := make([]tickOutput, len(e.shards))
	for i, sh := range e.shards {
		i, sh := i, sh
		g.Go(func() error {
			outputs[i] = sh.tick(start, end)
			return nil
		})
	}
	_ = g.Wait() // Shard ticks do not fail; errgroup bounds parallelism.

	for _, out := range outputs {
		out.publish(e.sink)
	}

	e.simNow.Store(end)
	e.tickCount.Add(1)
	return nil
}

// SubmitOrder validates and synchronously matches an external order.
func (e *Engine) SubmitOrder(req SubmitRequest) (SubmitResult, error) {
	if e.State() == StateStopped {
		return SubmitResult{}, ErrNotRunning
	}
	sh, ok := e.bySymbol[req.Symbol]
	if !ok {
		return SubmitResult{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, req.Symbol)
	}

	res, err := sh.submit(req, e.simNow.Load())
	if err != nil {
		return res, fmt.Errorf("invalid order: %w", err)
	}
	return res, nil
}

// CancelOrder removes a resting order. Returns false when the order is
// unknown or already filled.
func (e *Engine) CancelOrder(id uint64) (bool, error) {
	if e.State() == StateStopped {
		return false, ErrNotRunning
	}
	idx := int(id>>shardIDBits) - 1
	if idx < 0 || idx >= len(e.shards) {
		return false, nil
	}
	return e.shards[idx].cancel(id), nil
}

// GetOrderBook returns a depth-limited book snapshot for a symbol.
func (e *Engine) GetOrderBook(symbol string, depth int) (model.BookSnapshot, error) {
	if e.State() == StateStopped {
		return model.BookSnapshot{}, ErrNotRunning
	}
	sh, ok := e.bySymbol[symbol]
	if !ok {
		return model.BookSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	snap := sh.snapshot(depth)
	snap.Timestamp = e.simNow.Load()
	return snap, nil
}

// GetMarketState returns the last completed tick's state for a symbol.
func (e *Engine) GetMarketState(symbol string) (model.MarketState, error) {
	if e.State() == StateStopped {
		return model.MarketState{}, ErrNotRunning
	}
	sh, ok := e.bySymbol[symbol]
	if !ok {
		return model.MarketState{}, fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	return sh.marketState(), nil
}

// ListSymbols returns the configured symbol ids in sorted order.
func (e *Engine) ListSymbols() []string {
	out := make([]string, len(e.shards))
	for i, sh := range e.shards {
		out[i] = sh.sym.ID
	}
	return out
}
