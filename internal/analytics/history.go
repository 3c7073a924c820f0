package analytics

import "math"

// History is a bounded ring of per-tick prices, used for realized
// volatility and momentum lookbacks.
type History struct {
	buf   []float64
	head  int
	count int
}

// NewHistory creates a history holding the last capacity prices.
func NewHistory(capacity int) *History {
	if capacity < 2 {
		capacity = 2
	}
	return &History{buf: make([]float64, capacity)}
}

// Push appends a price, evicting the oldest when full.
func (h *History) Push(price float64) {
	h.buf[h.head] = price
	h.head = (h.head + 1) % len(h.buf)
	if h.count < len(h.buf) {
		h.count++
	}
}

// Len returns the number of stored prices.
func (h *History) Len() int { return h.count }

// At returns the price n ticks ago (0 = most recent). ok is false when the
// history does not reach that far back.
func (h *History) At(n int) (float64, bool) {
	if n < 0 || n >= h.count {
		return 0, false
	}
	idx := h.head - 1 - n
	if idx < 0 {
		idx += len(h.buf)
	}
	return h.buf[idx], true
}

// Return computes the simple return over the last n ticks, 0 while the
// history is warming up.
func (h *History) Return(n int) float64 {
	latest, ok := h.At(0)
	if !ok {
		return 0
	}
	past, ok := h.At(n)
	if !ok || past == 0 {
		return 0
	}
	return (latest - past) / past
}

// RealizedVol returns the standard deviation of log returns over up to
// window most recent ticks. Returns 0 with fewer than 3 prices.
func (h *History) RealizedVol(window int) float64 {
	n := h.count
	if window+1 < n {
		n = window + 1
	}
	if n < 3 {
		return 0
	}

	returns := make([]float64, 0, n-1)
	for i := n - 1; i > 0; i-- {
		prev, _ := h.At(i)
		cur, _ := h.At(i - 1)
		if prev <= 0 || cur <= 0 {
			continue
		}
		returns = append(returns, math.Log(cur/prev))
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns) - 1)
	return math.Sqrt(variance)
}
