package analytics

import (
	"math"

	"github.com/rickgao/market-sim/internal/model"
)

// DefaultVolWindow is the rolling window (in ticks) for realized volatility.
const DefaultVolWindow = 50

// Input bundles everything Compute needs for one symbol-tick.
type Input struct {
	Snapshot  model.BookSnapshot // Post-match book
	Fills     []model.Fill       // This tick's fills (maker and taker records)
	History   *History           // Rolling per-tick price history
	PreMid    float64            // Mid before this tick's matching
	PostMid   float64            // Mid after this tick's matching
	VolWindow int                // 0 selects DefaultVolWindow
	Timestamp int64
}

// Compute derives one analytics row. It never mutates its inputs.
func Compute(in Input) model.AnalyticsRow {
	window := in.VolWindow
	if window <= 0 {
		window = DefaultVolWindow
	}

	row := model.AnalyticsRow{
		Symbol:      in.Snapshot.Symbol,
		RealizedVol: in.History.RealizedVol(window),
		PriceImpact: in.PostMid - in.PreMid,
		Timestamp:   in.Timestamp,
	}

	if len(in.Snapshot.Bids) > 0 && len(in.Snapshot.Asks) > 0 {
		bestBid := in.Snapshot.Bids[0].Price
		bestAsk := in.Snapshot.Asks[0].Price
		row.BidAskSpread = bestAsk - bestBid
		row.MidPrice = (bestBid + bestAsk) / 2
	} else {
		row.MidPrice = in.PostMid
	}

	for _, lvl := range in.Snapshot.Bids {
		row.BidDepth += lvl.Quantity
	}
	for _, lvl := range in.Snapshot.Asks {
		row.AskDepth += lvl.Quantity
	}
	if total := row.BidDepth + row.AskDepth; total > 0 {
		row.Imbalance = float64(row.BidDepth-row.AskDepth) / float64(total)
	}

	row.EffectiveSpread, row.VWAP = fillMetrics(in.Fills, in.PreMid)
	return row
}

// fillMetrics computes the fill-weighted effective spread (2*|price - mid
// at submission|) and VWAP over the tick's taker fills. Taker fills alone
// cover the traded quantity exactly once.
func fillMetrics(fills []model.Fill, preMid float64) (effectiveSpread, vwap float64) {
	var qty int64
	var notional, spreadWeighted float64
	for _, f := range fills {
		if !f.Taker {
			continue
		}
		qty += f.Quantity
		notional += f.Price * float64(f.Quantity)
		spreadWeighted += 2 * math.Abs(f.Price-preMid) * float64(f.Quantity)
	}
	if qty == 0 {
		return 0, 0
	}
	return spreadWeighted / float64(qty), notional / float64(qty)
}
