// Package util provides small building blocks shared by the jetpack packages:
// random seeds, an exponential backoff for CAS loops, summary statistics and
// a size histogram for encoded payloads.
package util

import (
	"math"
	"sync/atomic"
)

// ----------------------------------------------------------------------------
// Stats
// ----------------------------------------------------------------------------

// Stats summarizes a series of samples
type Stats struct {
	StdDeviation float64 `json:"std_deviation"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Mean         float64 `json:"mean"`
	MinMaxRatio  float64 `json:"min_max_ratio"`
}

// NewStats computes the standard deviation, minimum, maximum and mean
// of values.
func NewStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}

	min := values[0]
	max := values[0]

	var sum float64
	for _, v := range values {
		sum += v
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	mean := sum / float64(len(values))

	// population standard deviation
	var sumSquaredDiffs float64
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}
	stdDev := math.Sqrt(sumSquaredDiffs / float64(len(values)))

	var minMaxRatio float64 = 1.0
	if max > 0 {
		minMaxRatio = min / max
	}

	return Stats{
		StdDeviation: stdDev,
		Min:          min,
		Max:          max,
		Mean:         mean,
		MinMaxRatio:  minMaxRatio,
	}
}

// ----------------------------------------------------------------------------
// SizeHistogram
// ----------------------------------------------------------------------------

// sizeBoundaries are the upper bounds of the histogram buckets. Encoded
// payloads are mostly small, so the lower range is finer than a pure
// power-of-four series.
var sizeBoundaries = []int{
	8, 16, 32, 64, 128, 256, 512, 1024, // up to one KB
	4096, 16384, 65536, 262144, // up to 256 KB
	1048576, 16777216, // up to 16 MB
}

// SizeHistogram tracks the distribution of encoded sizes in exponential
// buckets. All methods are safe for concurrent use and never block; readers
// may observe a sample in count before it shows up in its bucket.
type SizeHistogram struct {
	buckets [15]atomic.Int64 // len(sizeBoundaries) + 1 for larger values
	count   atomic.Int64
	sum     atomic.Int64
}

// NewSizeHistogram creates an empty histogram
func NewSizeHistogram() *SizeHistogram {
	return &SizeHistogram{}
}

// AddSample records one size
func (h *SizeHistogram) AddSample(size int) {
	h.buckets[bucketFor(size)].Add(1)
	h.count.Add(1)
	h.sum.Add(int64(size))
}

// GetCount returns the total number of samples
func (h *SizeHistogram) GetCount() int64 {
	return h.count.Load()
}

// AverageSize returns the mean of all samples
func (h *SizeHistogram) AverageSize() int {
	count := h.count.Load()
	if count == 0 {
		return 0
	}
	return int(h.sum.Load() / count)
}

// MedianEstimate estimates the median size
func (h *SizeHistogram) MedianEstimate() int {
	return h.GetPercentileEstimate(50)
}

// GetPercentileEstimate returns an estimate for the given percentile (0-100).
// The estimate is the midpoint of the bucket containing the percentile.
func (h *SizeHistogram) GetPercentileEstimate(percentile int) int {
	count := h.count.Load()
	if count == 0 || percentile < 0 || percentile > 100 {
		return 0
	}

	target := int64(math.Ceil(float64(count) * float64(percentile) / 100.0))
	if target == 0 {
		target = 1
	}

	var cumulative int64
	for i := range h.buckets {
		cumulative += h.buckets[i].Load()
		if cumulative >= target {
			return bucketEstimate(i)
		}
	}
	return h.AverageSize()
}

// SizeDistribution returns the bucket boundaries and the percentage of samples
// in each bucket. The last percentage covers all sizes above the last boundary.
func (h *SizeHistogram) SizeDistribution() ([]int, []float64) {
	percentages := make([]float64, len(h.buckets))
	count := h.count.Load()
	if count == 0 {
		return sizeBoundaries, percentages
	}
	for i := range h.buckets {
		percentages[i] = float64(h.buckets[i].Load()) * 100.0 / float64(count)
	}
	return sizeBoundaries, percentages
}

// ----------------------------------------------------------------------------
// Helper
// ----------------------------------------------------------------------------

func bucketFor(size int) int {
	for i, boundary := range sizeBoundaries {
		if size <= boundary {
			return i
		}
	}
	return len(sizeBoundaries)
}

func bucketEstimate(i int) int {
	switch {
	case i == 0:
		return sizeBoundaries[0] / 2
	case i < len(sizeBoundaries):
		return (sizeBoundaries[i-1] + sizeBoundaries[i]) / 2
	default:
		return sizeBoundaries[len(sizeBoundaries)-1] * 2
	}
}
