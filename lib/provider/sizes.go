package provider

import (
	"math"
	"sync"
)

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// sizeBoundaries are the upper bounds of the histogram buckets. Serialized
// transactions (2673 trytes) fall into the 4KB bucket.
var sizeBoundaries = []int{
	16, 64, 256, 1024, 4096,
	16384, 65536, 262144, 1048576,
	4194304, 16777216,
}

// SizeHistogram tracks the distribution of value sizes in exponential buckets.
// It is safe for concurrent use.
type SizeHistogram struct {
	mu      sync.RWMutex
	buckets []int64 // one per boundary plus one for larger values
	count   int64
	sum     int64
}

// NewSizeHistogram creates an empty histogram.
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{buckets: make([]int64, len(sizeBoundaries)+1)}
}

// Add records a value of size bytes.
func (h *SizeHistogram) Add(size int) {
	i := len(sizeBoundaries)
	for b, boundary := range sizeBoundaries {
		if size <= boundary {
			i = b
			break
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.buckets[i]++
	h.count++
	h.sum += int64(size)
}

// Percentile estimates the size below which p percent (0-100) of the samples fall.
// The estimate is the midpoint of the bucket the percentile lands in.
func (h *SizeHistogram) Percentile(p int) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.count == 0 || p < 0 || p > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(h.count) * float64(p) / 100.0))
	var cumulative int64
	for i, n := range h.buckets {
		cumulative += n
		if cumulative < target {
			continue
		}
		switch {
		case i == 0:
			return sizeBoundaries[0] / 2
		case i < len(sizeBoundaries):
			return (sizeBoundaries[i-1] + sizeBoundaries[i]) / 2
		default:
			return sizeBoundaries[len(sizeBoundaries)-1] * 2
		}
	}
	return int(h.sum / h.count)
}

// SizeSummary is a point-in-time view of a SizeHistogram.
type SizeSummary struct {
	Count   int64 `json:"count"`
	Total   int64 `json:"total_bytes"`
	Average int   `json:"average"`
	Median  int   `json:"median"`
	P95     int   `json:"p95"`
}

// Summary returns count, total, average and the median and p95 estimates.
func (h *SizeHistogram) Summary() SizeSummary {
	h.mu.RLock()
	s := SizeSummary{Count: h.count, Total: h.sum}
	if h.count > 0 {
		s.Average = int(h.sum / h.count)
	}
	h.mu.RUnlock()

	s.Median = h.Percentile(50)
	s.P95 = h.Percentile(95)
	return s
}
