// Package sim is the simulation orchestrator and the core's public surface.
//
// The engine owns one shard per symbol (book, liquidity model, price
// process, agent subset, execution engine, price history, rng). Each tick
// runs the full causal chain for every shard (price update, agent
// actions, latency-gated matching, impact application, analytics) and
// fans the outputs out to the sink without blocking. Symbols are
// independent and tick in parallel; everything within a shard is strictly
// sequential.
//
// Lifecycle: INITIALIZED → RUNNING ⇄ PAUSED → STOPPED (terminal).
// Transition requests are observed at tick boundaries only, so a tick
// always completes atomically.
package sim
