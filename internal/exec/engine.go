package exec

import (
	"container/heap"

	"github.com/rickgao/market-sim/internal/book"
	"github.com/rickgao/market-sim/internal/model"
)

// DefaultLatencyMicros is the modeled network/processing delay.
const DefaultLatencyMicros = 10_000 // 10ms

// pending is one delay-queued intent.
type pending struct {
	intent    model.OrderIntent
	releaseAt int64 // Simulated time (µs)
	seq       uint64
	index     int
}

// delayQueue orders pendings by release time, then acceptance sequence.
type delayQueue []*pending

func (q delayQueue) Len() int { return len(q) }

func (q delayQueue) Less(i, j int) bool {
	if q[i].releaseAt != q[j].releaseAt {
		return q[i].releaseAt < q[j].releaseAt
	}
	return q[i].seq < q[j].seq
}

func (q delayQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *delayQueue) Push(x any) {
	p := x.(*pending)
	p.index = len(*q)
	*q = append(*q, p)
}

func (q *delayQueue) Pop() any {
	old := *q
	n := len(old)
	p := old[n-1]
	p.index = -1
	*q = old[:n-1]
	return p
}

// Engine gates intents behind the modeled latency before they reach the
// book. Not safe for concurrent use; the owning shard serializes access.
type Engine struct {
	latency int64 // µs
	queue   delayQueue
	seq     uint64
}

// New creates an engine with the given latency in microseconds.
// latency <= 0 selects the default.
func New(latencyMicros int64) *Engine {
	if latencyMicros <= 0 {
		latencyMicros = DefaultLatencyMicros
	}
	e := &Engine{latency: latencyMicros}
	heap.Init(&e.queue)
	return e
}

// Accept places an intent in the delay queue. now is the submission time.
func (e *Engine) Accept(intent model.OrderIntent, now int64) {
	e.seq++
	heap.Push(&e.queue, &pending{
		intent:    intent,
		releaseAt: now + e.latency,
		seq:       e.seq,
	})
}

// Pending returns the number of queued intents.
func (e *Engine) Pending() int { return len(e.queue) }

// Advance forwards every intent whose release time is <= now to the book,
// in release order. Cancels are applied directly; orders are submitted with
// their release time as submitted_at. Validation failures surface in the
// result's rejected status, never as an error from Advance.
func (e *Engine) Advance(now int64, b *book.Book) []book.MatchResult {
	var results []book.MatchResult
	for len(e.queue) > 0 && e.queue[0].releaseAt <= now {
		p := heap.Pop(&e.queue).(*pending)

		if p.intent.CancelID != 0 {
			b.Cancel(p.intent.CancelID)
			continue
		}

		res, err := b.Submit(&model.Order{
			ID:          p.intent.OrderID,
			Symbol:      b.Symbol(),
			Side:        p.intent.Side,
			Kind:        p.intent.Kind,
			Quantity:    p.intent.Quantity,
			LimitPrice:  p.intent.LimitPrice,
			SubmittedAt: p.releaseAt,
		})
		if err != nil {
			// Malformed agent intent: reject silently, matching state untouched.
			continue
		}
		results = append(results, res)
	}
	return results
}
