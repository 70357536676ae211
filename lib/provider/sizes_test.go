package provider

import (
	"sync"
	"testing"
)

func TestSizeHistogram(t *testing.T) {
	t.Run("Empty", func(t *testing.T) {
		h := NewSizeHistogram()
		if s := h.Summary(); s != (SizeSummary{}) {
			t.Errorf("Expected an empty summary, got %+v", s)
		}
	})

	t.Run("Transactions", func(t *testing.T) {
		h := NewSizeHistogram()
		for i := 0; i < 100; i++ {
			h.Add(2673)
		}
		s := h.Summary()
		if s.Count != 100 || s.Total != 267300 || s.Average != 2673 {
			t.Errorf("Unexpected summary %+v", s)
		}
		// 2673 lands in the (1024, 4096] bucket
		if s.Median != (1024+4096)/2 || s.P95 != s.Median {
			t.Errorf("Unexpected estimates %+v", s)
		}
	})

	t.Run("Skewed", func(t *testing.T) {
		h := NewSizeHistogram()
		for i := 0; i < 90; i++ {
			h.Add(10)
		}
		for i := 0; i < 10; i++ {
			h.Add(1 << 30)
		}
		if got := h.Percentile(50); got != 8 {
			t.Errorf("Expected median estimate 8, got %d", got)
		}
		if got := h.Percentile(95); got != sizeBoundaries[len(sizeBoundaries)-1]*2 {
			t.Errorf("Expected p95 in the overflow bucket, got %d", got)
		}
		if got := h.Percentile(101); got != 0 {
			t.Errorf("Expected 0 for an invalid percentile, got %d", got)
		}
	})

	t.Run("Concurrent", func(t *testing.T) {
		h := NewSizeHistogram()
		var wg sync.WaitGroup
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 1000; i++ {
					h.Add(100)
				}
			}()
		}
		wg.Wait()
		if s := h.Summary(); s.Count != 8000 {
			t.Errorf("Expected 8000 samples, got %d", s.Count)
		}
	})
}
