package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rickgao/market-sim/internal/agent"
	"github.com/rickgao/market-sim/internal/model"
	"github.com/rickgao/market-sim/internal/sink"
)

func testSymbol(id string) model.Symbol {
	return model.Symbol{
		ID:                 id,
		InitialPrice:       100.0,
		TickSize:           0.01,
		BaseLiquidity:      10_000,
		Volatility:         0.02,
		MomentumFactor:     0.1,
		MomentumLookback:   5,
		MeanReversionSpeed: 0.05,
	}
}

func testConfig(seed int64) Config {
	return Config{
		Seed:         seed,
		TickInterval: 100 * time.Millisecond,
		StartTime:    1_700_000_000_000_000,
	}
}

// recorder captures everything written to it, in order.
type recorder struct {
	fills  []model.Fill
	states []model.MarketState
	rows   []model.AnalyticsRow
}

func (r *recorder) WriteFill(f model.Fill)               { r.fills = append(r.fills, f) }
func (r *recorder) WriteMarketState(s model.MarketState) { r.states = append(r.states, s) }
func (r *recorder) WriteAnalytics(a model.AnalyticsRow)  { r.rows = append(r.rows, a) }

func newTestEngine(t *testing.T, seed int64, snk sink.Sink, symbols ...model.Symbol) *Engine {
	t.Helper()
	if len(symbols) == 0 {
		symbols = []model.Symbol{testSymbol("SIM-A")}
	}
	e, err := New(testConfig(seed), symbols, agent.DefaultPopulationConfig(), snk, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestEngine_LifecycleTransitions(t *testing.T) {
	e := newTestEngine(t, 1, sink.Nop{})
	ctx := context.Background()

	if got := e.State(); got != StateInitialized {
		t.Fatalf("initial state = %v, want %v", got, StateInitialized)
	}
	if err := e.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Pause before Start = %v, want ErrInvalidTransition", err)
	}
	if err := e.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume before Start = %v, want ErrInvalidTransition", err)
	}

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got := e.State(); got != StateRunning {
		t.Fatalf("state after Start = %v, want %v", got, StateRunning)
	}
	if err := e.Start(ctx); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("second Start = %v, want ErrInvalidTransition", err)
	}

	if err := e.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if err := e.Pause(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("double Pause = %v, want ErrInvalidTransition", err)
	}
	if err := e.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if got := e.State(); got != StateStopped {
		t.Fatalf("state after Stop = %v, want %v", got, StateStopped)
	}
	if err := e.Stop(ctx); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second Stop = %v, want ErrNotRunning", err)
	}
	if err := e.Resume(); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Resume after Stop = %v, want ErrInvalidTransition", err)
	}
}

func TestEngine_StoppedRejectsOperations(t *testing.T) {
	e := newTestEngine(t, 2, sink.Nop{})
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if _, err := e.SubmitOrder(SubmitRequest{Symbol: "SIM-A"}); !errors.Is(err, ErrNotRunning) {
		t.Errorf("SubmitOrder = %v, want ErrNotRunning", err)
	}
	if _, err := e.CancelOrder(1); !errors.Is(err, ErrNotRunning) {
		t.Errorf("CancelOrder = %v, want ErrNotRunning", err)
	}
	if _, err := e.GetOrderBook("SIM-A", 5); !errors.Is(err, ErrNotRunning) {
		t.Errorf("GetOrderBook = %v, want ErrNotRunning", err)
	}
	if _, err := e.GetMarketState("SIM-A"); !errors.Is(err, ErrNotRunning) {
		t.Errorf("GetMarketState = %v, want ErrNotRunning", err)
	}
	if err := e.AdvanceTick(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("AdvanceTick = %v, want ErrNotRunning", err)
	}
}

func TestEngine_UnknownSymbol(t *testing.T) {
	e := newTestEngine(t, 3, sink.Nop{})

	if _, err := e.SubmitOrder(SubmitRequest{Symbol: "NOPE", Side: model.Buy, Kind: model.Limit, Quantity: 1, LimitPrice: 99}); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("SubmitOrder = %v, want ErrUnknownSymbol", err)
	}
	if _, err := e.GetOrderBook("NOPE", 5); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("GetOrderBook = %v, want ErrUnknownSymbol", err)
	}
	if _, err := e.GetMarketState("NOPE"); !errors.Is(err, ErrUnknownSymbol) {
		t.Errorf("GetMarketState = %v, want ErrUnknownSymbol", err)
	}
}

func TestEngine_ListSymbolsSorted(t *testing.T) {
	e := newTestEngine(t, 4, sink.Nop{}, testSymbol("ZED"), testSymbol("ALPHA"), testSymbol("MID"))
	got := e.ListSymbols()
	want := []string{"ALPHA", "MID", "ZED"}
	if len(got) != len(want) {
		t.Fatalf("ListSymbols = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ListSymbols = %v, want %v", got, want)
		}
	}
}

func TestEngine_SubmitAndCancelRoundTrip(t *testing.T) {
	e := newTestEngine(t, 5, sink.Nop{})

	res, err := e.SubmitOrder(SubmitRequest{
		Symbol:     "SIM-A",
		Side:       model.Buy,
		Kind:       model.Limit,
		Quantity:   10,
		LimitPrice: 99.50,
	})
	if err != nil {
		t.Fatalf("SubmitOrder: %v", err)
	}
	if res.Status != model.StatusResting {
		t.Fatalf("Status = %q, want %q", res.Status, model.StatusResting)
	}
	if res.OrderID == 0 {
		t.Fatal("OrderID = 0, want nonzero")
	}

	snap, err := e.GetOrderBook("SIM-A", 0)
	if err != nil {
		t.Fatalf("GetOrderBook: %v", err)
	}
	if len(snap.Bids) != 1 || snap.Bids[0].Quantity != 10 {
		t.Fatalf("Bids = %+v, want single level of 10", snap.Bids)
	}

	ok, err := e.CancelOrder(res.OrderID)
	if err != nil || !ok {
		t.Fatalf("CancelOrder = %v, %v; want true, nil", ok, err)
	}
	ok, err = e.CancelOrder(res.OrderID)
	if err != nil || ok {
		t.Fatalf("repeat CancelOrder = %v, %v; want false, nil", ok, err)
	}
	// Ids that decode to no shard are simply unknown.
	ok, err = e.CancelOrder(uint64(99) << shardIDBits)
	if err != nil || ok {
		t.Fatalf("CancelOrder for foreign id = %v, %v; want false, nil", ok, err)
	}
}

func TestEngine_SubmitRejectsInvalidOrder(t *testing.T) {
	e := newTestEngine(t, 6, sink.Nop{})

	res, err := e.SubmitOrder(SubmitRequest{
		Symbol:   "SIM-A",
		Side:     model.Buy,
		Kind:     model.Limit,
		Quantity: 0,
	})
	if err == nil {
		t.Fatal("SubmitOrder with zero quantity: want error")
	}
	if res.Status != model.StatusRejected {
		t.Errorf("Status = %q, want %q", res.Status, model.StatusRejected)
	}
}

func TestEngine_ExternalFillsReachSink(t *testing.T) {
	rec := &recorder{}
	// Empty population: the only flow is external, so every recorded fill
	// must come from SubmitOrder.
	e, err := New(testConfig(14), []model.Symbol{testSymbol("SIM-A")}, agent.PopulationConfig{}, rec, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := e.SubmitOrder(SubmitRequest{
		Symbol:     "SIM-A",
		Side:       model.Sell,
		Kind:       model.Limit,
		Quantity:   10,
		LimitPrice: 100,
	}); err != nil {
		t.Fatalf("SubmitOrder (resting sell): %v", err)
	}

	res, err := e.SubmitOrder(SubmitRequest{
		Symbol:   "SIM-A",
		Side:     model.Buy,
		Kind:     model.Market,
		Quantity: 10,
	})
	if err != nil {
		t.Fatalf("SubmitOrder (market buy): %v", err)
	}
	if res.FilledQuantity != 10 {
		t.Fatalf("FilledQuantity = %d, want 10", res.FilledQuantity)
	}

	if err := e.AdvanceTick(); err != nil {
		t.Fatalf("AdvanceTick: %v", err)
	}

	// One maker and one taker record for the matched quantity.
	if len(rec.fills) != 2 {
		t.Fatalf("sink received %d fills, want 2", len(rec.fills))
	}
	var taker, maker *model.Fill
	for i := range rec.fills {
		if rec.fills[i].Taker {
			taker = &rec.fills[i]
		} else {
			maker = &rec.fills[i]
		}
	}
	if taker == nil || maker == nil {
		t.Fatalf("fills = %+v, want one maker and one taker record", rec.fills)
	}
	if taker.Quantity != 10 || taker.Price != 100 || taker.Side != model.Buy {
		t.Errorf("taker fill = %+v, want buy 10@100", *taker)
	}
	if maker.Quantity != 10 || maker.Price != 100 || maker.Side != model.Sell {
		t.Errorf("maker fill = %+v, want sell 10@100", *maker)
	}

	// The external fills also feed the tick's analytics.
	if len(rec.rows) != 1 {
		t.Fatalf("analytics rows = %d, want 1", len(rec.rows))
	}
	if rec.rows[0].VWAP != 100 {
		t.Errorf("VWAP = %v, want 100", rec.rows[0].VWAP)
	}

	// Nothing is published twice: the next tick carries no fills.
	if err := e.AdvanceTick(); err != nil {
		t.Fatalf("AdvanceTick: %v", err)
	}
	if len(rec.fills) != 2 {
		t.Errorf("sink received %d fills after second tick, want 2", len(rec.fills))
	}
}

func TestEngine_AdvanceTickProducesOutputs(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, 7, rec)

	const ticks = 20
	for i := 0; i < ticks; i++ {
		if err := e.AdvanceTick(); err != nil {
			t.Fatalf("AdvanceTick %d: %v", i, err)
		}
	}

	if got := e.TickCount(); got != ticks {
		t.Fatalf("TickCount = %d, want %d", got, ticks)
	}
	if len(rec.states) != ticks || len(rec.rows) != ticks {
		t.Fatalf("states/rows = %d/%d, want %d each", len(rec.states), len(rec.rows), ticks)
	}

	cfg := testConfig(7)
	interval := cfg.TickInterval.Microseconds()
	for i, st := range rec.states {
		wantTS := cfg.StartTime + int64(i+1)*interval
		if st.Timestamp != wantTS {
			t.Fatalf("state[%d].Timestamp = %d, want %d", i, st.Timestamp, wantTS)
		}
		if rec.rows[i].Timestamp != wantTS {
			t.Fatalf("row[%d].Timestamp = %d, want %d", i, rec.rows[i].Timestamp, wantTS)
		}
	}
	if got := e.Now(); got != cfg.StartTime+ticks*interval {
		t.Fatalf("Now = %d, want %d", got, cfg.StartTime+ticks*interval)
	}
}

func TestEngine_LiquidityStaysWithinBounds(t *testing.T) {
	rec := &recorder{}
	sym := testSymbol("SIM-A")
	e := newTestEngine(t, 8, rec, sym)

	for i := 0; i < 200; i++ {
		if err := e.AdvanceTick(); err != nil {
			t.Fatalf("AdvanceTick %d: %v", i, err)
		}
	}

	floor := sym.BaseLiquidity * 0.05
	for i, st := range rec.states {
		if st.Liquidity < floor || st.Liquidity > sym.BaseLiquidity {
			t.Fatalf("tick %d: Liquidity = %v outside [%v, %v]", i, st.Liquidity, floor, sym.BaseLiquidity)
		}
		if st.LastPrice <= 0 || st.ReferencePrice <= 0 {
			t.Fatalf("tick %d: non-positive price in state %+v", i, st)
		}
	}
}

func TestEngine_VolumeIsMonotonic(t *testing.T) {
	rec := &recorder{}
	e := newTestEngine(t, 9, rec)

	for i := 0; i < 100; i++ {
		if err := e.AdvanceTick(); err != nil {
			t.Fatalf("AdvanceTick %d: %v", i, err)
		}
	}

	var prev int64
	for i, st := range rec.states {
		if st.Volume < prev {
			t.Fatalf("tick %d: Volume %d < previous %d", i, st.Volume, prev)
		}
		prev = st.Volume
	}
	if prev == 0 {
		t.Error("no volume traded over 100 ticks; agent flow appears dead")
	}
}

func TestEngine_DeterministicAcrossRuns(t *testing.T) {
	run := func() *recorder {
		rec := &recorder{}
		e := newTestEngine(t, 42, rec, testSymbol("SIM-A"), testSymbol("SIM-B"))
		for i := 0; i < 150; i++ {
			if err := e.AdvanceTick(); err != nil {
				t.Fatalf("AdvanceTick %d: %v", i, err)
			}
		}
		return rec
	}

	a, b := run(), run()

	if len(a.fills) != len(b.fills) {
		t.Fatalf("fill counts differ: %d vs %d", len(a.fills), len(b.fills))
	}
	if len(a.fills) == 0 {
		t.Fatal("no fills over 150 ticks")
	}
	for i := range a.fills {
		if a.fills[i] != b.fills[i] {
			t.Fatalf("fill %d differs:\n  %+v\n  %+v", i, a.fills[i], b.fills[i])
		}
	}
	for i := range a.states {
		if a.states[i] != b.states[i] {
			t.Fatalf("state %d differs:\n  %+v\n  %+v", i, a.states[i], b.states[i])
		}
	}
	for i := range a.rows {
		if a.rows[i] != b.rows[i] {
			t.Fatalf("analytics row %d differs:\n  %+v\n  %+v", i, a.rows[i], b.rows[i])
		}
	}
}

func TestEngine_DifferentSeedsDiverge(t *testing.T) {
	run := func(seed int64) *recorder {
		rec := &recorder{}
		e := newTestEngine(t, seed, rec)
		for i := 0; i < 50; i++ {
			if err := e.AdvanceTick(); err != nil {
				t.Fatalf("AdvanceTick %d: %v", i, err)
			}
		}
		return rec
	}

	a, b := run(10), run(11)
	last := len(a.states) - 1
	if a.states[last] == b.states[last] {
		t.Error("different seeds produced identical final market state")
	}
}

func TestEngine_PausedLoopDoesNotTick(t *testing.T) {
	e := newTestEngine(t, 12, sink.Nop{})
	ctx := context.Background()

	if err := e.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := e.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}

	// A tick that passed the state check before Pause may still complete.
	time.Sleep(e.cfg.TickInterval)
	before := e.TickCount()
	time.Sleep(3 * e.cfg.TickInterval)
	if got := e.TickCount(); got != before {
		t.Errorf("TickCount advanced from %d to %d while paused", before, got)
	}

	if err := e.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}

func TestEngine_ManualSteppingWithoutStart(t *testing.T) {
	e := newTestEngine(t, 13, sink.Nop{})
	// AdvanceTick is usable from INITIALIZED for deterministic stepping.
	if err := e.AdvanceTick(); err != nil {
		t.Fatalf("AdvanceTick: %v", err)
	}
	st, err := e.GetMarketState("SIM-A")
	if err != nil {
		t.Fatalf("GetMarketState: %v", err)
	}
	if st.Timestamp == 0 {
		t.Error("market state not refreshed by manual tick")
	}
}
