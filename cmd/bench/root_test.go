package bench

import (
	"github.com/ValentinKolb/jetpack/lib/util"
	"testing"
)

func TestFormatDistribution(t *testing.T) {
	h := util.NewSizeHistogram()
	if got := formatDistribution(h); got != "no samples" {
		t.Errorf("Expected no samples, got %q", got)
	}

	for i := 0; i < 3; i++ {
		h.AddSample(20)
	}
	h.AddSample(100 << 20)

	want := "<=32 B: 75.0%, >16777216 B: 25.0%"
	if got := formatDistribution(h); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
}
