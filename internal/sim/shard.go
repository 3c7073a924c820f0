package sim

import (
	"math/rand"
	"sync"

	"github.com/rickgao/market-sim/internal/agent"
	"github.com/rickgao/market-sim/internal/analytics"
	"github.com/rickgao/market-sim/internal/book"
	"github.com/rickgao/market-sim/internal/exec"
	"github.com/rickgao/market-sim/internal/liquidity"
	"github.com/rickgao/market-sim/internal/model"
	"github.com/rickgao/market-sim/internal/price"
	"github.com/rickgao/market-sim/internal/sink"
)

// shardIDBits is the number of low bits reserved for per-shard order
// sequence numbers; the shard index lives above them. Keeps order ids
// unique engine-wide without cross-shard coordination, which would make
// id assignment depend on goroutine scheduling.
const shardIDBits = 48

// shard owns everything for one symbol. All fields behind mu; the tick
// and every public operation on the symbol serialize through it.
type shard struct {
	mu sync.Mutex

	sym    model.Symbol
	book   *book.Book
	liq    *liquidity.Model
	proc   *price.Process
	exec   *exec.Engine
	agents []agent.Agent
	hist   *analytics.History
	rng    *rand.Rand

	idBase   uint64
	orderSeq uint64

	// Fills from external submissions since the last tick, carried into
	// the next tick's output and analytics.
	external []model.Fill

	lastPrice float64
	volume    int64
	state     model.MarketState

	volWindow     int
	shortLookback int
	longLookback  int
}

func newShard(index int, sym model.Symbol, cfg Config, popCfg agent.PopulationConfig, seed int64) *shard {
	liqParams := liquidity.Params{
		ImpactCoefficient: cfg.ImpactCoefficient,
		DepletionFactor:   cfg.DepletionFactor,
		RecoveryRate:      cfg.RecoveryRate,
		MinRatio:          cfg.LiquidityMinRatio,
	}

	s := &shard{
		sym:           sym,
		book:          book.New(sym.ID, sym.TickSize),
		liq:           liquidity.New(sym.BaseLiquidity, liqParams),
		proc:          price.New(sym, cfg.TickInterval.Seconds()),
		exec:          exec.New(cfg.LatencyMicros),
		agents:        agent.NewPopulation(popCfg),
		hist:          analytics.NewHistory(cfg.HistorySize),
		rng:           rand.New(rand.NewSource(seed)),
		idBase:        uint64(index+1) << shardIDBits,
		lastPrice:     sym.InitialPrice,
		volWindow:     cfg.VolWindow,
		shortLookback: cfg.ShortLookback,
		longLookback:  cfg.LongLookback,
	}
	s.state = model.MarketState{
		Symbol:         sym.ID,
		LastPrice:      sym.InitialPrice,
		ReferencePrice: sym.InitialPrice,
		Liquidity:      s.liq.Current(),
	}
	s.hist.Push(sym.InitialPrice)
	return s
}

// nextID allocates an order id. Caller holds mu.
func (s *shard) nextID() uint64 {
	s.orderSeq++
	return s.idBase | s.orderSeq
}

// tickOutput is one shard-tick's fan-out payload.
type tickOutput struct {
	fills []model.Fill
	state model.MarketState
	row   model.AnalyticsRow
}

// tick runs the causal chain for one symbol: price update, agent actions,
// latency-gated matching, impact application, analytics. start is the tick
// boundary; end is start + tick interval, the cutoff for intent release.
func (s *shard) tick(start, end int64) tickOutput {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Liquidity recovers one tick's worth, then the price process absorbs
	// whatever impact the previous tick's fills accumulated.
	s.liq.Recover(1)
	ref := s.proc.Step(s.liq.DrainImpact(), s.rng)
	preMid := s.book.Mid(ref)

	view := s.buildView(ref, start)
	for _, a := range s.agents {
		for _, intent := range a.Act(view, s.rng) {
			s.exec.Accept(intent, start)
		}
	}

	results := s.exec.Advance(end, s.book)

	var fills []model.Fill
	for _, r := range results {
		fills = append(fills, r.Fills...)
	}
	s.absorbFills(fills)

	// External submissions since the previous tick ride this tick's
	// output. Their liquidity and volume effects were already applied at
	// submit time.
	if len(s.external) > 0 {
		fills = append(s.external, fills...)
		s.external = nil
	}

	postMid := s.book.Mid(ref)
	s.hist.Push(postMid)

	row := analytics.Compute(analytics.Input{
		Snapshot:  s.book.Snapshot(0),
		Fills:     fills,
		History:   s.hist,
		PreMid:    preMid,
		PostMid:   postMid,
		VolWindow: s.volWindow,
		Timestamp: end,
	})
	s.state = s.buildState(ref, row.RealizedVol, end)

	return tickOutput{fills: fills, state: s.state, row: row}
}

// submit synchronously validates and matches an externally submitted
// order. Any fills are queued for the next tick's output so they reach
// the sink and analytics alongside agent flow.
func (s *shard) submit(req SubmitRequest, now int64) (SubmitResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	order := &model.Order{
		ID:          s.nextID(),
		Symbol:      s.sym.ID,
		Side:        req.Side,
		Kind:        req.Kind,
		Quantity:    req.Quantity,
		LimitPrice:  req.LimitPrice,
		SubmittedAt: now,
	}
	res, err := s.book.Submit(order)
	if err != nil {
		return SubmitResult{OrderID: order.ID, Status: model.StatusRejected}, err
	}
	s.absorbFills(res.Fills)
	s.external = append(s.external, res.Fills...)

	return SubmitResult{
		OrderID:        res.OrderID,
		Status:         res.Status,
		FilledQuantity: res.FilledQuantity,
		AvgFillPrice:   res.AvgFillPrice,
	}, nil
}

// absorbFills applies taker fills to the liquidity model and the running
// volume/last-price state. Caller holds mu.
func (s *shard) absorbFills(fills []model.Fill) {
	for _, f := range fills {
		if !f.Taker {
			continue
		}
		s.liq.ApplyFill(f)
		s.volume += f.Quantity
		s.lastPrice = f.Price
	}
}

func (s *shard) cancel(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Cancel(id)
}

func (s *shard) snapshot(depth int) model.BookSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.book.Snapshot(depth)
}

func (s *shard) marketState() model.MarketState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// buildView assembles the read-only picture agents act on. Caller holds mu.
func (s *shard) buildView(ref float64, now int64) agent.View {
	bid, hasBid := s.book.BestBid()
	ask, hasAsk := s.book.BestAsk()
	return agent.View{
		State: model.MarketState{
			Symbol:         s.sym.ID,
			LastPrice:      s.lastPrice,
			ReferencePrice: ref,
			Volume:         s.volume,
			Liquidity:      s.liq.Current(),
			Momentum:       s.proc.Momentum(),
			RealizedVol:    s.state.RealizedVol,
		},
		BestBid:        bid,
		BestAsk:        ask,
		HasBid:         hasBid,
		HasAsk:         hasAsk,
		Mid:            s.book.Mid(ref),
		ShortMomentum:  s.hist.Return(s.shortLookback),
		LongMomentum:   s.hist.Return(s.longLookback),
		LiquidityRatio: s.liq.Current() / s.liq.Baseline(),
		TickSize:       s.sym.TickSize,
		Now:            now,
		NextID:         s.nextID,
	}
}

// buildState rebuilds the per-tick MarketState snapshot. Caller holds mu.
func (s *shard) buildState(ref, realizedVol float64, ts int64) model.MarketState {
	var spread float64
	if bid, ok := s.book.BestBid(); ok {
		if ask, ok := s.book.BestAsk(); ok {
			spread = ask - bid
		}
	}
	return model.MarketState{
		Symbol:         s.sym.ID,
		LastPrice:      s.lastPrice,
		ReferencePrice: ref,
		Volume:         s.volume,
		Liquidity:      s.liq.Current(),
		RealizedVol:    realizedVol,
		Momentum:       s.proc.Momentum(),
		Spread:         spread,
		Timestamp:      ts,
	}
}

// publish fans a tick's outputs out to the sink. Runs outside mu; the
// sink contract is enqueue-only and never blocks.
func (out tickOutput) publish(snk sink.Sink) {
	for _, f := range out.fills {
		snk.WriteFill(f)
	}
	snk.WriteMarketState(out.state)
	snk.WriteAnalytics(out.row)
}
