package feed

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/rickgao/market-sim/internal/model"
)

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	h := newHub[int]()
	a := h.subscribe(4)
	b := h.subscribe(4)
	defer h.unsubscribe(a)
	defer h.unsubscribe(b)

	h.broadcast(7)

	if got := <-a.ch; got != 7 {
		t.Errorf("subscriber a received %d, want 7", got)
	}
	if got := <-b.ch; got != 7 {
		t.Errorf("subscriber b received %d, want 7", got)
	}
}

func TestHub_BroadcastDropsForSlowSubscriber(t *testing.T) {
	h := newHub[int]()
	slow := h.subscribe(1)
	defer h.unsubscribe(slow)

	h.broadcast(1)
	h.broadcast(2) // dropped, buffer full

	if got := <-slow.ch; got != 1 {
		t.Errorf("received %d, want 1", got)
	}
	select {
	case got := <-slow.ch:
		t.Errorf("received unexpected %d, want drop", got)
	default:
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := newHub[int]()
	sub := h.subscribe(1)
	h.unsubscribe(sub)

	if _, ok := <-sub.ch; ok {
		t.Error("channel still open after unsubscribe")
	}
	if got := h.subscriberCount(); got != 0 {
		t.Errorf("subscriberCount = %d, want 0", got)
	}
}

func TestServer_SinkWritesDoNotBlockWithoutSubscribers(t *testing.T) {
	s := NewServer(":0", nil)

	// No subscribers attached; writes must be cheap no-ops.
	for i := 0; i < 1000; i++ {
		s.WriteFill(model.Fill{})
		s.WriteMarketState(model.MarketState{})
		s.WriteAnalytics(model.AnalyticsRow{})
	}
	if got := s.Subscribers(); got != 0 {
		t.Errorf("Subscribers = %d, want 0", got)
	}
}

func TestServer_StreamsAndReapsClosedSubscribers(t *testing.T) {
	s := NewServer(":0", nil)
	ts := httptest.NewServer(s.httpSrv.Handler)
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/fills"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	waitFor(t, func() bool { return s.fills.subscriberCount() == 1 }, "subscriber registered")

	s.WriteFill(model.Fill{Symbol: "SIM-A", Quantity: 5})

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg struct {
		Type string `json:"type"`
		Data fillMessage
	}
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if msg.Type != "fill" || msg.Data.Symbol != "SIM-A" || msg.Data.Quantity != 5 {
		t.Errorf("message = %+v, want fill for SIM-A qty 5", msg)
	}

	// Closing the client must free the subscription without waiting for
	// another broadcast.
	conn.Close()
	waitFor(t, func() bool { return s.fills.subscriberCount() == 0 }, "subscriber reaped")
}

func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("timed out waiting: %s", what)
}

func TestMessageShapes(t *testing.T) {
	fillID := uuid.NewSHA1(uuid.NameSpaceOID, []byte("SIM-A:1"))
	fm := toFillMessage(model.Fill{
		FillID:    fillID,
		OrderID:   42,
		Symbol:    "SIM-A",
		Side:      model.Sell,
		Price:     99.5,
		Quantity:  10,
		Timestamp: 123,
		Taker:     true,
	})
	if fm.FillID != fillID.String() || fm.Side != "sell" || fm.OrderID != 42 || !fm.Taker {
		t.Errorf("fill message = %+v", fm)
	}

	sm := toMarketStateMessage(model.MarketState{Symbol: "SIM-A", RealizedVol: 0.02})
	if sm.Symbol != "SIM-A" || sm.Volatility != 0.02 {
		t.Errorf("market state message = %+v", sm)
	}

	am := toAnalyticsMessage(model.AnalyticsRow{Symbol: "SIM-A", VWAP: 100.1, BidDepth: 5})
	if am.Symbol != "SIM-A" || am.VWAP != 100.1 || am.BidDepth != 5 {
		t.Errorf("analytics message = %+v", am)
	}
}
