package state

import (
	"testing"
	"time"
)

func TestHistoryEvictsOldest(t *testing.T) {
	h := NewHistory(2)

	h.Record(Sample{Latency: 10 * time.Millisecond})
	h.Record(Sample{Latency: 11 * time.Millisecond})
	h.Record(Sample{Latency: 12 * time.Millisecond})

	samples := h.Samples()
	if len(samples) != 2 {
		t.Fatalf("expected history size 2, got %d", len(samples))
	}
	if samples[0].Latency != 11*time.Millisecond || samples[1].Latency != 12*time.Millisecond {
		t.Fatalf("unexpected history values: %+v", samples)
	}
}

func TestHistoryShorterThanCapacity(t *testing.T) {
	h := NewHistory(10)
	h.Record(Sample{Failed: true})

	if h.Len() != 1 {
		t.Fatalf("expected 1 sample, got %d", h.Len())
	}
	if h.Capacity() != 10 {
		t.Fatalf("expected capacity 10, got %d", h.Capacity())
	}
	samples := h.Samples()
	if !samples[0].Failed {
		t.Fatalf("expected failure sample")
	}
}

func TestHistorySamplesReturnsCopy(t *testing.T) {
	h := NewHistory(5)
	h.Record(Sample{Latency: time.Millisecond})

	samples := h.Samples()
	samples[0].Latency = time.Hour

	if h.Samples()[0].Latency != time.Millisecond {
		t.Fatalf("mutating the returned slice must not affect the buffer")
	}
}

func TestCapacityForWidth(t *testing.T) {
	tests := []struct {
		cols     int
		expected int
	}{
		{cols: 100, expected: 72},
		{cols: 200, expected: 172},
		{cols: 40, expected: MinHistoryCapacity},
		{cols: 0, expected: MinHistoryCapacity},
	}

	for _, tc := range tests {
		if got := CapacityForWidth(tc.cols); got != tc.expected {
			t.Fatalf("CapacityForWidth(%d) = %d, want %d", tc.cols, got, tc.expected)
		}
	}
}
