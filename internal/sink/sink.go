package sink

import "github.com/rickgao/market-sim/internal/model"

// Sink receives the simulation's per-tick outputs. Every method is
// fire-and-forget: implementations must not block and must not panic back
// into the tick loop.
type Sink interface {
	WriteFill(model.Fill)
	WriteMarketState(model.MarketState)
	WriteAnalytics(model.AnalyticsRow)
}

// Queues is the buffered Sink consumed by the persistence writers.
type Queues struct {
	Fills     *Buffer[model.Fill]
	States    *Buffer[model.MarketState]
	Analytics *Buffer[model.AnalyticsRow]
}

// NewQueues creates one bounded buffer per record type.
func NewQueues(fillCap, stateCap, analyticsCap int) *Queues {
	return &Queues{
		Fills:     NewBuffer[model.Fill](fillCap),
		States:    NewBuffer[model.MarketState](stateCap),
		Analytics: NewBuffer[model.AnalyticsRow](analyticsCap),
	}
}

func (q *Queues) WriteFill(f model.Fill) { q.Fills.TrySend(f) }

func (q *Queues) WriteMarketState(s model.MarketState) { q.States.TrySend(s) }

func (q *Queues) WriteAnalytics(r model.AnalyticsRow) { q.Analytics.TrySend(r) }

// Close closes all buffers.
func (q *Queues) Close() {
	q.Fills.Close()
	q.States.Close()
	q.Analytics.Close()
}

// Dropped returns the total records dropped across all buffers.
func (q *Queues) Dropped() int64 {
	return q.Fills.Stats().Dropped + q.States.Stats().Dropped + q.Analytics.Stats().Dropped
}

// Nop discards everything. Used when persistence is disabled and in tests.
type Nop struct{}

func (Nop) WriteFill(model.Fill)               {}
func (Nop) WriteMarketState(model.MarketState) {}
func (Nop) WriteAnalytics(model.AnalyticsRow)  {}

// Multi fans writes out to several sinks in order.
type Multi []Sink

func (m Multi) WriteFill(f model.Fill) {
	for _, s := range m {
		s.WriteFill(f)
	}
}

func (m Multi) WriteMarketState(st model.MarketState) {
	for _, s := range m {
		s.WriteMarketState(st)
	}
}

func (m Multi) WriteAnalytics(r model.AnalyticsRow) {
	for _, s := range m {
		s.WriteAnalytics(r)
	}
}
