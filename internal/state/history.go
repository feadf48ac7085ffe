package state

import "time"

const (
	// MinHistoryCapacity keeps the strip readable on narrow terminals.
	MinHistoryCapacity = 30
	// labelMargin is the fixed column width reserved for the target label
	// and status in the dashboard row.
	labelMargin = 28
)

// Sample is one history cell: a latency on success, a failure marker
// otherwise. Purely presentational; the detector never reads history.
type Sample struct {
	Latency time.Duration
	Failed  bool
}

// CapacityForWidth derives the history size from the terminal width, leaving
// room for the label column.
func CapacityForWidth(cols int) int {
	capacity := cols - labelMargin
	if capacity < MinHistoryCapacity {
		return MinHistoryCapacity
	}
	return capacity
}

// History is a fixed-capacity rolling window of recent samples, oldest
// evicted first. It never synthesizes samples; the renderer left-pads short
// histories itself.
type History struct {
	capacity int
	samples  []Sample
}

// NewHistory returns an empty buffer holding at most capacity samples.
func NewHistory(capacity int) *History {
	if capacity < 1 {
		capacity = MinHistoryCapacity
	}
	return &History{capacity: capacity}
}

// Record appends one sample, evicting the oldest if at capacity.
func (h *History) Record(sample Sample) {
	if len(h.samples) < h.capacity {
		h.samples = append(h.samples, sample)
		return
	}
	copy(h.samples, h.samples[1:])
	h.samples[len(h.samples)-1] = sample
}

// Samples returns a copy of the buffered samples in chronological order.
func (h *History) Samples() []Sample {
	if len(h.samples) == 0 {
		return nil
	}
	out := make([]Sample, len(h.samples))
	copy(out, h.samples)
	return out
}

// Len reports the number of buffered samples.
func (h *History) Len() int {
	return len(h.samples)
}

// Capacity reports the fixed buffer size.
func (h *History) Capacity() int {
	return h.capacity
}
