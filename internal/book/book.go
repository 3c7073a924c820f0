package book

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/rickgao/market-sim/internal/model"
)

// Validation errors returned by Submit. No state is mutated when one is returned.
var (
	ErrQuantityNotPositive = errors.New("order quantity must be positive")
	ErrMissingLimitPrice   = errors.New("limit order requires a positive limit price")
	ErrSymbolMismatch      = errors.New("order symbol does not match book")
)

// MatchResult reports the outcome of one submission.
type MatchResult struct {
	OrderID        uint64
	Status         model.OrderStatus
	FilledQuantity int64
	AvgFillPrice   float64 // Volume-weighted over the taker's fills, 0 if none
	Fills          []model.Fill
}

// level is one price point on a side, with strictly FIFO resting orders.
type level struct {
	ticks  int64
	price  float64
	orders []*model.Order
	total  int64 // Sum of resting remaining quantities
}

// Book is the bid/ask ledger for a single symbol. Not safe for concurrent
// use; the owning shard serializes access.
type Book struct {
	symbol   string
	tickSize float64

	bids []*level // Sorted descending by price (best first)
	asks []*level // Sorted ascending by price (best first)

	resting  map[uint64]*model.Order
	bidDepth int64
	askDepth int64
	fillSeq  uint64
}

// New creates an empty book for a symbol.
func New(symbol string, tickSize float64) *Book {
	if tickSize <= 0 {
		tickSize = 0.01
	}
	return &Book{
		symbol:   symbol,
		tickSize: tickSize,
		resting:  make(map[uint64]*model.Order),
	}
}

// Submit validates, matches and (for limit remainders) rests an order.
// The book takes ownership of the order on success.
func (b *Book) Submit(o *model.Order) (MatchResult, error) {
	if o.Symbol != b.symbol {
		return MatchResult{OrderID: o.ID, Status: model.StatusRejected}, ErrSymbolMismatch
	}
	if o.Quantity <= 0 {
		return MatchResult{OrderID: o.ID, Status: model.StatusRejected}, ErrQuantityNotPositive
	}
	if o.Kind == model.Limit {
		if o.LimitPrice <= 0 {
			return MatchResult{OrderID: o.ID, Status: model.StatusRejected}, ErrMissingLimitPrice
		}
		o.LimitPrice = b.alignPrice(o.LimitPrice)
	}
	o.Remaining = o.Quantity

	res := MatchResult{OrderID: o.ID}
	b.match(o, &res)

	if o.Remaining > 0 && o.Kind == model.Limit {
		b.rest(o)
	}

	switch {
	case o.Remaining == 0:
		res.Status = model.StatusFilled
	case res.FilledQuantity > 0:
		res.Status = model.StatusPartiallyFilled
	case o.Kind == model.Limit:
		res.Status = model.StatusResting
	default:
		// Market order against an empty side.
		res.Status = model.StatusRejected
	}

	if res.FilledQuantity > 0 {
		res.AvgFillPrice = avgFillPrice(res.Fills, o.ID)
	}
	b.checkNotCrossed()
	return res, nil
}

// Cancel removes a resting order by id. Returns false when the order is
// unknown or already fully filled.
func (b *Book) Cancel(id uint64) bool {
	o, ok := b.resting[id]
	if !ok {
		return false
	}
	side := b.sideLevels(o.Side)
	for i, lvl := range *side {
		if lvl.ticks != b.toTicks(o.LimitPrice) {
			continue
		}
		for j, q := range lvl.orders {
			if q.ID != id {
				continue
			}
			lvl.orders = append(lvl.orders[:j], lvl.orders[j+1:]...)
			lvl.total -= q.Remaining
			b.addDepth(o.Side, -q.Remaining)
			if lvl.total < 0 {
				panic(fmt.Sprintf("book %s: negative level total after cancel of order %d", b.symbol, id))
			}
			if len(lvl.orders) == 0 {
				*side = append((*side)[:i], (*side)[i+1:]...)
			}
			delete(b.resting, id)
			return true
		}
	}
	// Present in the index but absent from the ladder: matching state is corrupt.
	panic(fmt.Sprintf("book %s: resting order %d missing from ladder", b.symbol, id))
}

// Snapshot returns up to depth aggregated levels per side, best price first.
// depth <= 0 returns all levels.
func (b *Book) Snapshot(depth int) model.BookSnapshot {
	return model.BookSnapshot{
		Symbol: b.symbol,
		Bids:   aggregate(b.bids, depth),
		Asks:   aggregate(b.asks, depth),
	}
}

// BestBid returns the highest bid price, if any.
func (b *Book) BestBid() (float64, bool) {
	if len(b.bids) == 0 {
		return 0, false
	}
	return b.bids[0].price, true
}

// BestAsk returns the lowest ask price, if any.
func (b *Book) BestAsk() (float64, bool) {
	if len(b.asks) == 0 {
		return 0, false
	}
	return b.asks[0].price, true
}

// Mid returns the midpoint of the best bid and ask. Falls back to the
// populated side when one-sided, and to fallback when the book is empty.
func (b *Book) Mid(fallback float64) float64 {
	bid, hasBid := b.BestBid()
	ask, hasAsk := b.BestAsk()
	switch {
	case hasBid && hasAsk:
		return (bid + ask) / 2
	case hasBid:
		return bid
	case hasAsk:
		return ask
	default:
		return fallback
	}
}

// Depth returns the total resting quantity on each side.
func (b *Book) Depth() (bidDepth, askDepth int64) {
	return b.bidDepth, b.askDepth
}

// Symbol returns the symbol this book serves.
func (b *Book) Symbol() string {
	return b.symbol
}

// RestingCount returns the number of resting orders, for diagnostics.
func (b *Book) RestingCount() int {
	return len(b.resting)
}

// match walks the opposite side consuming resting quantity until the order
// is exhausted, the side empties, or the limit price stops crossing.
func (b *Book) match(o *model.Order, res *MatchResult) {
	opp := b.sideLevels(o.Side.Opposite())
	for o.Remaining > 0 && len(*opp) > 0 {
		lvl := (*opp)[0]
		if o.Kind == model.Limit && !crosses(o, lvl.price) {
			break
		}
		for o.Remaining > 0 && len(lvl.orders) > 0 {
			maker := lvl.orders[0]
			qty := min(o.Remaining, maker.Remaining)

			maker.Remaining -= qty
			o.Remaining -= qty
			lvl.total -= qty
			b.addDepth(maker.Side, -qty)
			if maker.Remaining < 0 || lvl.total < 0 {
				panic(fmt.Sprintf("book %s: negative resting quantity matching order %d", b.symbol, o.ID))
			}

			res.Fills = append(res.Fills,
				b.newFill(maker, lvl.price, qty, o.SubmittedAt, false),
				b.newFill(o, lvl.price, qty, o.SubmittedAt, true),
			)
			res.FilledQuantity += qty

			if maker.Remaining == 0 {
				lvl.orders = lvl.orders[1:]
				delete(b.resting, maker.ID)
			}
		}
		if len(lvl.orders) == 0 {
			*opp = (*opp)[1:]
		}
	}
}

// rest appends the order at its price level, keeping time-then-id order.
func (b *Book) rest(o *model.Order) {
	side := b.sideLevels(o.Side)
	ticks := b.toTicks(o.LimitPrice)

	idx := sort.Search(len(*side), func(i int) bool {
		if o.Side == model.Buy {
			return (*side)[i].ticks <= ticks
		}
		return (*side)[i].ticks >= ticks
	})

	var lvl *level
	if idx < len(*side) && (*side)[idx].ticks == ticks {
		lvl = (*side)[idx]
	} else {
		lvl = &level{ticks: ticks, price: o.LimitPrice}
		*side = append(*side, nil)
		copy((*side)[idx+1:], (*side)[idx:])
		(*side)[idx] = lvl
	}

	// Sequential submission keeps arrival order sorted, but enforce the
	// time-then-id tie-break explicitly.
	pos := len(lvl.orders)
	for pos > 0 {
		prev := lvl.orders[pos-1]
		if prev.SubmittedAt < o.SubmittedAt ||
			(prev.SubmittedAt == o.SubmittedAt && prev.ID < o.ID) {
			break
		}
		pos--
	}
	lvl.orders = append(lvl.orders, nil)
	copy(lvl.orders[pos+1:], lvl.orders[pos:])
	lvl.orders[pos] = o

	lvl.total += o.Remaining
	b.addDepth(o.Side, o.Remaining)
	b.resting[o.ID] = o
}

func (b *Book) newFill(o *model.Order, price float64, qty int64, ts int64, taker bool) model.Fill {
	b.fillSeq++
	return model.Fill{
		FillID:    uuid.NewSHA1(uuid.NameSpaceOID, fmt.Appendf(nil, "%s:%d", b.symbol, b.fillSeq)),
		OrderID:   o.ID,
		Symbol:    b.symbol,
		Side:      o.Side,
		Price:     price,
		Quantity:  qty,
		Timestamp: ts,
		Taker:     taker,
	}
}

func (b *Book) sideLevels(s model.Side) *[]*level {
	if s == model.Buy {
		return &b.bids
	}
	return &b.asks
}

func (b *Book) addDepth(s model.Side, d int64) {
	if s == model.Buy {
		b.bidDepth += d
	} else {
		b.askDepth += d
	}
}

func (b *Book) toTicks(price float64) int64 {
	return int64(math.Round(price / b.tickSize))
}

func (b *Book) alignPrice(price float64) float64 {
	return float64(b.toTicks(price)) * b.tickSize
}

func (b *Book) checkNotCrossed() {
	if len(b.bids) == 0 || len(b.asks) == 0 {
		return
	}
	if b.bids[0].ticks >= b.asks[0].ticks {
		panic(fmt.Sprintf("book %s: crossed after match, bid %.4f >= ask %.4f",
			b.symbol, b.bids[0].price, b.asks[0].price))
	}
}

func crosses(o *model.Order, levelPrice float64) bool {
	if o.Side == model.Buy {
		return o.LimitPrice >= levelPrice
	}
	return o.LimitPrice <= levelPrice
}

func aggregate(levels []*level, depth int) []model.PriceLevel {
	n := len(levels)
	if depth > 0 && depth < n {
		n = depth
	}
	out := make([]model.PriceLevel, n)
	for i := 0; i < n; i++ {
		out[i] = model.PriceLevel{
			Price:      levels[i].price,
			Quantity:   levels[i].total,
			OrderCount: len(levels[i].orders),
		}
	}
	return out
}

func avgFillPrice(fills []model.Fill, takerID uint64) float64 {
	var notional float64
	var qty int64
	for _, f := range fills {
		if f.OrderID != takerID || !f.Taker {
			continue
		}
		notional += f.Price * float64(f.Quantity)
		qty += f.Quantity
	}
	if qty == 0 {
		return 0
	}
	return notional / float64(qty)
}
