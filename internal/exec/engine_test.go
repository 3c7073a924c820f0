package exec

import (
	"testing"

	"github.com/rickgao/market-sim/internal/book"
	"github.com/rickgao/market-sim/internal/model"
)

func TestAdvance_HoldsUntilReleaseTime(t *testing.T) {
	e := New(10_000)
	b := book.New("TEST", 0.01)

	e.Accept(model.OrderIntent{OrderID: 1, Side: model.Buy, Kind: model.Limit, Quantity: 5, LimitPrice: 100}, 1_000_000)

	if got := e.Advance(1_005_000, b); got != nil {
		t.Errorf("Advance before release returned %d results, want none", len(got))
	}
	if e.Pending() != 1 {
		t.Errorf("Pending = %d, want 1", e.Pending())
	}

	results := e.Advance(1_010_000, b)
	if len(results) != 1 {
		t.Fatalf("Advance at release returned %d results, want 1", len(results))
	}
	if results[0].Status != model.StatusResting {
		t.Errorf("Status = %v, want resting", results[0].Status)
	}
	if e.Pending() != 0 {
		t.Errorf("Pending = %d, want 0", e.Pending())
	}
}

func TestAdvance_ReleaseOrderThenSubmissionOrder(t *testing.T) {
	e := New(10_000)
	b := book.New("TEST", 0.01)

	// Accepted out of submission-time order; same release time for 2 and 3.
	e.Accept(model.OrderIntent{OrderID: 2, Side: model.Buy, Kind: model.Limit, Quantity: 1, LimitPrice: 100}, 2_000)
	e.Accept(model.OrderIntent{OrderID: 3, Side: model.Buy, Kind: model.Limit, Quantity: 1, LimitPrice: 100}, 2_000)
	e.Accept(model.OrderIntent{OrderID: 1, Side: model.Buy, Kind: model.Limit, Quantity: 1, LimitPrice: 100}, 1_000)

	results := e.Advance(100_000, b)
	if len(results) != 3 {
		t.Fatalf("got %d results, want 3", len(results))
	}
	wantOrder := []uint64{1, 2, 3}
	for i, r := range results {
		if r.OrderID != wantOrder[i] {
			t.Errorf("results[%d].OrderID = %d, want %d", i, r.OrderID, wantOrder[i])
		}
	}
}

func TestAdvance_AppliesCancels(t *testing.T) {
	e := New(10_000)
	b := book.New("TEST", 0.01)

	e.Accept(model.OrderIntent{OrderID: 1, Side: model.Buy, Kind: model.Limit, Quantity: 5, LimitPrice: 100}, 0)
	e.Advance(10_000, b)
	if b.RestingCount() != 1 {
		t.Fatalf("RestingCount = %d, want 1", b.RestingCount())
	}

	e.Accept(model.OrderIntent{CancelID: 1}, 10_000)
	results := e.Advance(20_000, b)
	if len(results) != 0 {
		t.Errorf("cancel produced %d match results, want 0", len(results))
	}
	if b.RestingCount() != 0 {
		t.Errorf("RestingCount = %d, want 0 after cancel", b.RestingCount())
	}
}

func TestAdvance_RejectsMalformedIntentQuietly(t *testing.T) {
	e := New(10_000)
	b := book.New("TEST", 0.01)

	e.Accept(model.OrderIntent{OrderID: 1, Side: model.Buy, Kind: model.Limit, Quantity: 0, LimitPrice: 100}, 0)
	results := e.Advance(10_000, b)
	if len(results) != 0 {
		t.Errorf("malformed intent produced %d results, want 0", len(results))
	}
}

func TestNew_DefaultLatency(t *testing.T) {
	e := New(0)
	b := book.New("TEST", 0.01)

	e.Accept(model.OrderIntent{OrderID: 1, Side: model.Sell, Kind: model.Limit, Quantity: 1, LimitPrice: 101}, 0)
	if got := e.Advance(DefaultLatencyMicros-1, b); got != nil {
		t.Errorf("released before default latency elapsed")
	}
	if got := e.Advance(DefaultLatencyMicros, b); len(got) != 1 {
		t.Errorf("not released at default latency")
	}
}
