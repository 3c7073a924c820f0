package feed

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/market-sim/internal/model"
)

const subscriberBuffer = 64

// Server streams fills, market states and analytics rows to WebSocket
// subscribers. It implements sink.Sink.
type Server struct {
	addr   string
	logger *slog.Logger

	fills  *hub[model.Fill]
	states *hub[model.MarketState]
	rows   *hub[model.AnalyticsRow]

	upgrader websocket.Upgrader
	httpSrv  *http.Server
}

// NewServer creates a feed server listening on addr.
func NewServer(addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		addr:     addr,
		logger:   logger,
		fills:    newHub[model.Fill](),
		states:   newHub[model.MarketState](),
		rows:     newHub[model.AnalyticsRow](),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws/fills", s.handleFills)
	mux.HandleFunc("/ws/market", s.handleMarket)
	mux.HandleFunc("/ws/analytics", s.handleAnalytics)
	s.httpSrv = &http.Server{Addr: addr, Handler: mux}

	return s
}

// WriteFill broadcasts a fill to subscribers. Never blocks.
func (s *Server) WriteFill(f model.Fill) {
	s.fills.broadcast(f)
}

// WriteMarketState broadcasts a market state to subscribers. Never blocks.
func (s *Server) WriteMarketState(st model.MarketState) {
	s.states.broadcast(st)
}

// WriteAnalytics broadcasts an analytics row to subscribers. Never blocks.
func (s *Server) WriteAnalytics(row model.AnalyticsRow) {
	s.rows.broadcast(row)
}

// Start begins serving WebSocket subscribers.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		if err := s.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("feed server failed", "error", err)
		}
	}()

	s.logger.Info("feed server started", "addr", s.addr)
	return nil
}

// Stop shuts the server down, closing subscriber connections.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("stopping feed server")
	return s.httpSrv.Shutdown(ctx)
}

// Subscribers returns the current subscriber count across all streams.
func (s *Server) Subscribers() int {
	return s.fills.subscriberCount() + s.states.subscriberCount() + s.rows.subscriberCount()
}

type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type fillMessage struct {
	Timestamp int64   `json:"timestamp"`
	FillID    string  `json:"fill_id"`
	OrderID   int64   `json:"order_id"`
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	Price     float64 `json:"price"`
	Quantity  int64   `json:"quantity"`
	Taker     bool    `json:"taker"`
}

type marketStateMessage struct {
	Timestamp  int64   `json:"timestamp"`
	Symbol     string  `json:"symbol"`
	LastPrice  float64 `json:"last_price"`
	Volume     int64   `json:"volume"`
	Liquidity  float64 `json:"liquidity"`
	Volatility float64 `json:"volatility"`
	Momentum   float64 `json:"momentum"`
	Spread     float64 `json:"spread"`
}

type analyticsMessage struct {
	Timestamp          int64   `json:"timestamp"`
	Symbol             string  `json:"symbol"`
	BidAskSpread       float64 `json:"bid_ask_spread"`
	MidPrice           float64 `json:"mid_price"`
	Imbalance          float64 `json:"imbalance"`
	BidDepth           int64   `json:"bid_depth"`
	AskDepth           int64   `json:"ask_depth"`
	EffectiveSpread    float64 `json:"effective_spread"`
	PriceImpact        float64 `json:"price_impact"`
	RealizedVolatility float64 `json:"realized_volatility"`
	VWAP               float64 `json:"vwap"`
}

func (s *Server) handleFills(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	stream(conn, s.fills, func(f model.Fill) envelope {
		return envelope{Type: "fill", Data: toFillMessage(f)}
	})
}

func (s *Server) handleMarket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	stream(conn, s.states, func(st model.MarketState) envelope {
		return envelope{Type: "market_state", Data: toMarketStateMessage(st)}
	})
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	stream(conn, s.rows, func(row model.AnalyticsRow) envelope {
		return envelope{Type: "analytics", Data: toAnalyticsMessage(row)}
	})
}

// stream forwards hub broadcasts to the connection until the subscriber
// disconnects. Inbound frames are discarded; the read loop exists so a
// closed connection is reaped promptly instead of on the next broadcast.
func stream[T any](conn *websocket.Conn, h *hub[T], encode func(T) envelope) {
	defer conn.Close()

	sub := h.subscribe(subscriberBuffer)
	defer h.unsubscribe(sub)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		case v, ok := <-sub.ch:
			if !ok {
				return
			}
			if err := writeJSON(conn, encode(v)); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(v)
}

func toFillMessage(f model.Fill) fillMessage {
	return fillMessage{
		Timestamp: f.Timestamp,
		FillID:    f.FillID.String(),
		OrderID:   int64(f.OrderID),
		Symbol:    f.Symbol,
		Side:      f.Side.String(),
		Price:     f.Price,
		Quantity:  f.Quantity,
		Taker:     f.Taker,
	}
}

func toMarketStateMessage(st model.MarketState) marketStateMessage {
	return marketStateMessage{
		Timestamp:  st.Timestamp,
		Symbol:     st.Symbol,
		LastPrice:  st.LastPrice,
		Volume:     st.Volume,
		Liquidity:  st.Liquidity,
		Volatility: st.RealizedVol,
		Momentum:   st.Momentum,
		Spread:     st.Spread,
	}
}

func toAnalyticsMessage(row model.AnalyticsRow) analyticsMessage {
	return analyticsMessage{
		Timestamp:          row.Timestamp,
		Symbol:             row.Symbol,
		BidAskSpread:       row.BidAskSpread,
		MidPrice:           row.MidPrice,
		Imbalance:          row.Imbalance,
		BidDepth:           row.BidDepth,
		AskDepth:           row.AskDepth,
		EffectiveSpread:    row.EffectiveSpread,
		PriceImpact:        row.PriceImpact,
		RealizedVolatility: row.RealizedVol,
		VWAP:               row.VWAP,
	}
}
