package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/market-sim/internal/agent"
	"github.com/rickgao/market-sim/internal/config"
	"github.com/rickgao/market-sim/internal/database"
	"github.com/rickgao/market-sim/internal/feed"
	"github.com/rickgao/market-sim/internal/model"
	"github.com/rickgao/market-sim/internal/sim"
	"github.com/rickgao/market-sim/internal/sink"
	"github.com/rickgao/market-sim/internal/version"
	"github.com/rickgao/market-sim/internal/writer"
)

func main() {
	configPath := flag.String("config", "configs/simulator.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting simulator",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"instance_id", cfg.Instance.ID,
		"symbols", len(cfg.Symbols),
		"tick_interval", cfg.Simulation.TickInterval,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Assemble the sink chain: database queues and/or the WebSocket feed.
	var sinks sink.Multi
	var queues *sink.Queues
	var pool *pgxpool.Pool
	var writers []simWriter

	if cfg.Database.Enabled {
		logger.Info("connecting to database",
			"host", cfg.Database.Timescale.Host,
			"port", cfg.Database.Timescale.Port,
			"database", cfg.Database.Timescale.Name,
		)

		pool, err = database.Connect(ctx, cfg.Database.Timescale)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		logger.Info("database connected")

		bufSize := cfg.Writers.BufferSize
		queues = sink.NewQueues(bufSize, bufSize, bufSize)
		sinks = append(sinks, queues)

		wCfg := writer.WriterConfig{
			BatchSize:     cfg.Writers.BatchSize,
			FlushInterval: cfg.Writers.FlushInterval,
		}
		writers = []simWriter{
			writer.NewFillWriter(wCfg, queues.Fills, pool, logger),
			writer.NewStateWriter(wCfg, queues.States, pool, logger),
			writer.NewAnalyticsWriter(wCfg, queues.Analytics, pool, logger),
		}
		for _, w := range writers {
			if err := w.Start(ctx); err != nil {
				logger.Error("failed to start writer", "error", err)
				os.Exit(1)
			}
		}
	}

	var feedSrv *feed.Server
	if cfg.Feed.Enabled {
		feedSrv = feed.NewServer(cfg.Feed.Addr, logger)
		if err := feedSrv.Start(ctx); err != nil {
			logger.Error("failed to start feed server", "error", err)
			os.Exit(1)
		}
		sinks = append(sinks, feedSrv)
	}

	var snk sink.Sink = sinks
	if len(sinks) == 0 {
		snk = sink.Nop{}
	}

	// Build the engine
	engine, err := sim.New(
		simConfig(cfg),
		buildSymbols(cfg.Symbols),
		populationConfig(cfg.Agents),
		snk,
		logger,
	)
	if err != nil {
		logger.Error("failed to create engine", "error", err)
		os.Exit(1)
	}

	// Start health server
	healthServer := &http.Server{
		Addr:    cfg.Health.Addr,
		Handler: createHealthHandler(engine, queues, feedSrv, pool),
	}
	go func() {
		logger.Info("starting health server", "addr", cfg.Health.Addr)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	// Start the simulation
	if err := engine.Start(ctx); err != nil {
		logger.Error("failed to start engine", "error", err)
		os.Exit(1)
	}

	logger.Info("simulator running",
		"instance_id", cfg.Instance.ID,
		"symbols", engine.ListSymbols(),
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := engine.Stop(shutdownCtx); err != nil {
		logger.Warn("engine stop", "error", err)
	}
	for _, w := range writers {
		if err := w.Stop(shutdownCtx); err != nil {
			logger.Warn("writer stop", "error", err)
		}
	}
	if queues != nil {
		queues.Close()
	}
	if feedSrv != nil {
		if err := feedSrv.Stop(shutdownCtx); err != nil {
			logger.Warn("feed stop", "error", err)
		}
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("simulator stopped", "ticks", engine.TickCount())
}

// simWriter is the shared lifecycle of the batch writers.
type simWriter interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

func simConfig(cfg *config.SimulatorConfig) sim.Config {
	return sim.Config{
		Seed:              cfg.Simulation.Seed,
		TickInterval:      cfg.Simulation.TickInterval,
		LatencyMicros:     cfg.Simulation.Latency.Microseconds(),
		ImpactCoefficient: cfg.Simulation.ImpactCoefficient,
		DepletionFactor:   cfg.Simulation.DepletionFactor,
		RecoveryRate:      cfg.Simulation.RecoveryRate,
		LiquidityMinRatio: cfg.Simulation.LiquidityMinRatio,
		HistorySize:       cfg.Simulation.HistorySize,
		VolWindow:         cfg.Simulation.VolWindow,
		ShortLookback:     cfg.Simulation.ShortLookback,
		LongLookback:      cfg.Simulation.LongLookback,
		MaxParallel:       cfg.Simulation.MaxParallel,
	}
}

func buildSymbols(symbols []config.SymbolConfig) []model.Symbol {
	out := make([]model.Symbol, len(symbols))
	for i, s := range symbols {
		out[i] = model.Symbol{
			ID:                 s.ID,
			InitialPrice:       s.InitialPrice,
			TickSize:           s.TickSize,
			BaseLiquidity:      s.BaseLiquidity,
			Volatility:         s.Volatility,
			MomentumFactor:     s.MomentumFactor,
			MomentumLookback:   s.MomentumLookback,
			MeanReversionSpeed: s.MeanReversionSpeed,
		}
	}
	return out
}

// populationConfig maps the agents section onto the population defaults,
// overriding only what the config sets.
func populationConfig(a config.AgentsConfig) agent.PopulationConfig {
	pop := agent.DefaultPopulationConfig()
	pop.MarketMakers = a.MarketMakers
	pop.NoiseTraders = a.NoiseTraders
	pop.InformedTraders = a.InformedTraders
	pop.MomentumTraders = a.MomentumTraders

	if a.MakerHalfSpread > 0 {
		pop.MakerHalfSpread = a.MakerHalfSpread
	}
	if a.MakerSize > 0 {
		pop.MakerQuoteSize = a.MakerSize
	}
	if a.NoiseRate > 0 {
		pop.NoiseRate = a.NoiseRate
	}
	if a.NoiseMaxSize > 0 {
		pop.NoiseMaxSize = a.NoiseMaxSize
	}
	if a.InformedThreshold > 0 {
		pop.InformedThreshold = a.InformedThreshold
	}
	if a.InformedMaxSize > 0 {
		pop.InformedMaxSize = a.InformedMaxSize
	}
	if a.MomentumThreshold > 0 {
		pop.MomentumThreshold = a.MomentumThreshold
	}
	if a.MomentumRate > 0 {
		pop.MomentumRate = a.MomentumRate
	}
	if a.MomentumMaxSize > 0 {
		pop.MomentumMaxSize = a.MomentumMaxSize
	}
	return pop
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(engine *sim.Engine, queues *sink.Queues, feedSrv *feed.Server, pool *pgxpool.Pool) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string                 `json:"status"`
			Components map[string]interface{} `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]interface{}),
		}

		health.Components["engine"] = map[string]interface{}{
			"state":   engine.State().String(),
			"ticks":   engine.TickCount(),
			"symbols": engine.ListSymbols(),
		}
		if engine.State() == sim.StateStopped {
			health.Status = "degraded"
		}

		if pool != nil {
			if err := pool.Ping(ctx); err != nil {
				health.Status = "unhealthy"
				health.Components["timescaledb"] = map[string]string{
					"status": "disconnected",
					"error":  err.Error(),
				}
			} else {
				health.Components["timescaledb"] = "connected"
			}
		}
		if queues != nil {
			health.Components["sink"] = map[string]interface{}{
				"dropped": queues.Dropped(),
			}
		}
		if feedSrv != nil {
			health.Components["feed"] = map[string]interface{}{
				"subscribers": feedSrv.Subscribers(),
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
