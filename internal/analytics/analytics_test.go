package analytics

import (
	"math"
	"testing"

	"github.com/rickgao/market-sim/internal/model"
)

func TestHistory_PushAndAt(t *testing.T) {
	h := NewHistory(3)
	for _, p := range []float64{100, 101, 102, 103} {
		h.Push(p)
	}

	if h.Len() != 3 {
		t.Errorf("Len = %d, want 3 (oldest evicted)", h.Len())
	}
	if got, ok := h.At(0); !ok || got != 103 {
		t.Errorf("At(0) = %v (%v), want 103", got, ok)
	}
	if got, ok := h.At(2); !ok || got != 101 {
		t.Errorf("At(2) = %v (%v), want 101", got, ok)
	}
	if _, ok := h.At(3); ok {
		t.Error("At(3) ok = true, want false beyond history")
	}
}

func TestHistory_Return(t *testing.T) {
	h := NewHistory(10)
	h.Push(100)
	h.Push(110)

	if got := h.Return(1); math.Abs(got-0.10) > 1e-12 {
		t.Errorf("Return(1) = %v, want 0.10", got)
	}
	if got := h.Return(5); got != 0 {
		t.Errorf("Return(5) during warmup = %v, want 0", got)
	}
}

func TestHistory_RealizedVol(t *testing.T) {
	h := NewHistory(20)
	// Constant price: zero volatility.
	for i := 0; i < 10; i++ {
		h.Push(100)
	}
	if got := h.RealizedVol(10); got != 0 {
		t.Errorf("constant-price RealizedVol = %v, want 0", got)
	}

	// Alternating prices: strictly positive volatility.
	h2 := NewHistory(20)
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			h2.Push(100)
		} else {
			h2.Push(101)
		}
	}
	if got := h2.RealizedVol(10); got <= 0 {
		t.Errorf("alternating-price RealizedVol = %v, want > 0", got)
	}
}

func testSnapshot() model.BookSnapshot {
	return model.BookSnapshot{
		Symbol: "TEST",
		Bids: []model.PriceLevel{
			{Price: 99.5, Quantity: 30, OrderCount: 2},
			{Price: 99.0, Quantity: 30, OrderCount: 1},
		},
		Asks: []model.PriceLevel{
			{Price: 100.5, Quantity: 20, OrderCount: 1},
		},
	}
}

func TestCompute_BookMetrics(t *testing.T) {
	h := NewHistory(10)
	h.Push(100)

	row := Compute(Input{
		Snapshot:  testSnapshot(),
		History:   h,
		PreMid:    100,
		PostMid:   100,
		Timestamp: 42,
	})

	if math.Abs(row.BidAskSpread-1.0) > 1e-12 {
		t.Errorf("BidAskSpread = %v, want 1.0", row.BidAskSpread)
	}
	if row.MidPrice != 100.0 {
		t.Errorf("MidPrice = %v, want 100.0", row.MidPrice)
	}
	if row.BidDepth != 60 || row.AskDepth != 20 {
		t.Errorf("depth = %d/%d, want 60/20", row.BidDepth, row.AskDepth)
	}
	if want := 0.5; math.Abs(row.Imbalance-want) > 1e-12 {
		t.Errorf("Imbalance = %v, want %v", row.Imbalance, want)
	}
	if row.Timestamp != 42 {
		t.Errorf("Timestamp = %d, want 42", row.Timestamp)
	}
}

func TestCompute_FillMetricsUseTakerFillsOnly(t *testing.T) {
	h := NewHistory(10)
	fills := []model.Fill{
		{Side: model.Sell, Price: 100.5, Quantity: 10, Taker: false},
		{Side: model.Buy, Price: 100.5, Quantity: 10, Taker: true},
		{Side: model.Sell, Price: 101.0, Quantity: 10, Taker: false},
		{Side: model.Buy, Price: 101.0, Quantity: 10, Taker: true},
	}

	row := Compute(Input{
		Snapshot: testSnapshot(),
		Fills:    fills,
		History:  h,
		PreMid:   100,
		PostMid:  100.25,
	})

	if want := 100.75; math.Abs(row.VWAP-want) > 1e-12 {
		t.Errorf("VWAP = %v, want %v", row.VWAP, want)
	}
	// 2 * (0.5*10 + 1.0*10) / 20 = 1.5
	if want := 1.5; math.Abs(row.EffectiveSpread-want) > 1e-12 {
		t.Errorf("EffectiveSpread = %v, want %v", row.EffectiveSpread, want)
	}
	if want := 0.25; math.Abs(row.PriceImpact-want) > 1e-12 {
		t.Errorf("PriceImpact = %v, want %v", row.PriceImpact, want)
	}
}

func TestCompute_EmptyBookAndNoFills(t *testing.T) {
	h := NewHistory(10)
	row := Compute(Input{
		Snapshot: model.BookSnapshot{Symbol: "TEST"},
		History:  h,
		PreMid:   100,
		PostMid:  100,
	})

	if row.BidAskSpread != 0 || row.Imbalance != 0 || row.VWAP != 0 {
		t.Errorf("empty inputs produced nonzero metrics: %+v", row)
	}
	if row.MidPrice != 100 {
		t.Errorf("MidPrice = %v, want PostMid fallback 100", row.MidPrice)
	}
}
