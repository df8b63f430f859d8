package util

import (
	"math"
	"sync"
	"testing"
)

// TestNewStats tests the summary statistics
func TestNewStats(t *testing.T) {
	if s := NewStats(nil); s != (Stats{}) {
		t.Errorf("Expected zero stats for no samples, got %+v", s)
	}

	s := NewStats([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if s.Mean != 5 || s.Min != 2 || s.Max != 9 {
		t.Errorf("Unexpected stats: %+v", s)
	}
	if math.Abs(s.StdDeviation-2) > 1e-9 {
		t.Errorf("Expected std deviation 2, got %f", s.StdDeviation)
	}
	if math.Abs(s.MinMaxRatio-2.0/9.0) > 1e-9 {
		t.Errorf("Expected min/max ratio 2/9, got %f", s.MinMaxRatio)
	}
}

// TestSizeHistogram tests bucketing and estimates
func TestSizeHistogram(t *testing.T) {
	h := NewSizeHistogram()
	if h.MedianEstimate() != 0 || h.AverageSize() != 0 {
		t.Errorf("Expected zero estimates for an empty histogram")
	}

	for i := 0; i < 90; i++ {
		h.AddSample(20) // bucket (16, 32]
	}
	for i := 0; i < 10; i++ {
		h.AddSample(2000) // bucket (1024, 4096]
	}

	if h.GetCount() != 100 {
		t.Errorf("Expected 100 samples, got %d", h.GetCount())
	}
	if h.AverageSize() != 218 {
		t.Errorf("Expected average 218, got %d", h.AverageSize())
	}
	if h.MedianEstimate() != 24 {
		t.Errorf("Expected median estimate 24, got %d", h.MedianEstimate())
	}
	if p := h.GetPercentileEstimate(95); p != 2560 {
		t.Errorf("Expected p95 estimate 2560, got %d", p)
	}

	_, percentages := h.SizeDistribution()
	if percentages[2] != 90 || percentages[8] != 10 {
		t.Errorf("Unexpected distribution: %v", percentages)
	}
}

// TestSizeHistogramConcurrent tests concurrent sample recording
func TestSizeHistogramConcurrent(t *testing.T) {
	h := NewSizeHistogram()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				h.AddSample(i)
			}
		}()
	}
	wg.Wait()

	if h.GetCount() != 8000 {
		t.Errorf("Expected 8000 samples, got %d", h.GetCount())
	}
}

// TestBackoff tests that Wait returns at every level
func TestBackoff(t *testing.T) {
	var b Backoff
	for i := 0; i < maxBackoff+2; i++ {
		b.Wait()
	}
	if b.n != maxBackoff {
		t.Errorf("Expected backoff to be capped at %d, got %d", maxBackoff, b.n)
	}
}

// TestGenerateSeed tests that seeds differ
func TestGenerateSeed(t *testing.T) {
	if GenerateSeed() == GenerateSeed() {
		t.Errorf("Expected two different seeds")
	}
}
