package bench

import (
	"fmt"
	"github.com/ValentinKolb/jetpack/lib/util"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
	"math"
	"testing"
	"time"
)

var Logger = logger.GetLogger("bench")

// Config controls a benchmark run
type Config struct {
	// Threads is passed to testing.B.SetParallelism
	Threads int
	// Skip lists fixtures, encoders or fixture/encoder pairs to leave out
	Skip []string
}

// Result is the outcome of one fixture/encoder pair
type Result struct {
	Fixture string
	Encoder string
	Size    int
	Skipped bool
	Err     error
	Bench   testing.BenchmarkResult
}

// Name returns "fixture/encoder"
func (r Result) Name() string {
	return r.Fixture + "/" + r.Encoder
}

// NsPerOp returns the nanoseconds per operation, at least 1 for measured runs
func (r Result) NsPerOp() float64 {
	if r.Skipped || r.Err != nil {
		return 0
	}
	return math.Max(float64(r.Bench.NsPerOp()), 1) // prevent division by zero
}

// OpsPerSec returns the throughput of the run
func (r Result) OpsPerSec() float64 {
	ns := r.NsPerOp()
	if ns == 0 {
		return 0
	}
	return 1.0 / (ns / 1e9)
}

// Summary aggregates the results of one encoder over all fixtures
type Summary struct {
	Encoder string
	// MeanSize and MaxSize are taken from the size histogram
	MeanSize float64
	MaxSize  int64
	// P95Latency is the 95th percentile of ns/op over all fixtures
	P95Latency time.Duration
	// Throughput summarizes ops/sec over all fixtures
	Throughput util.Stats
}

// --------------------------------------------------------------------------
// Runner
// --------------------------------------------------------------------------

// Runner benchmarks every encoder against every fixture
type Runner struct {
	config   Config
	encoders []NamedEncoder
	fixtures []Fixture
	registry gometrics.Registry
	results  []Result
}

// NewRunner creates a runner. Threads below 1 are treated as 1.
func NewRunner(config Config, encoders []NamedEncoder, fixtures []Fixture) *Runner {
	if config.Threads < 1 {
		config.Threads = 1
	}
	return &Runner{
		config:   config,
		encoders: encoders,
		fixtures: fixtures,
		registry: gometrics.NewRegistry(),
	}
}

// Run executes all benchmarks in fixture order and calls report after each
// one. report may be nil.
func (r *Runner) Run(report func(Result)) []Result {
	for _, f := range r.fixtures {
		for _, e := range r.encoders {
			result := r.runOne(f, e)
			r.results = append(r.results, result)
			if report != nil {
				report(result)
			}
		}
	}
	return r.results
}

// Summaries returns one summary per encoder that produced results
func (r *Runner) Summaries() []Summary {
	summaries := make([]Summary, 0, len(r.encoders))
	for _, e := range r.encoders {
		var opsPerSec []float64
		for _, res := range r.results {
			if res.Encoder == e.Name && res.OpsPerSec() > 0 {
				opsPerSec = append(opsPerSec, res.OpsPerSec())
			}
		}
		if len(opsPerSec) == 0 {
			continue
		}

		sizes := gometrics.GetOrRegisterHistogram(e.Name+".size", r.registry, gometrics.NewUniformSample(1028)).Snapshot()
		latency := gometrics.GetOrRegisterTimer(e.Name+".latency", r.registry).Snapshot()

		summaries = append(summaries, Summary{
			Encoder:    e.Name,
			MeanSize:   sizes.Mean(),
			MaxSize:    sizes.Max(),
			P95Latency: time.Duration(latency.Percentile(0.95)),
			Throughput: util.NewStats(opsPerSec),
		})
	}
	return summaries
}

// Metrics returns the go-metrics registry holding the size histograms and
// latency timers of all encoders
func (r *Runner) Metrics() gometrics.Registry {
	return r.registry
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (r *Runner) runOne(f Fixture, e NamedEncoder) Result {
	result := Result{Fixture: f.Name, Encoder: e.Name}
	if r.shouldSkip(f.Name, e.Name) {
		result.Skipped = true
		return result
	}

	// encode once up front to record the size and reject unsupported values
	data, err := e.Encoder.Encode(f.Value)
	if err != nil {
		Logger.Debugf("(%s) - encoder failed: %v", result.Name(), err)
		result.Err = err
		return result
	}
	result.Size = len(data)

	Logger.Debugf("(%s) - running benchmark", result.Name())
	result.Bench = testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(r.config.Threads)
		b.ReportAllocs()
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := e.Encoder.Encode(f.Value); err != nil {
					b.Error(fmt.Errorf("(%s) - error encoding: %w", result.Name(), err))
					return
				}
			}
		})
	})

	gometrics.GetOrRegisterHistogram(e.Name+".size", r.registry, gometrics.NewUniformSample(1028)).Update(int64(result.Size))
	gometrics.GetOrRegisterTimer(e.Name+".latency", r.registry).Update(time.Duration(result.NsPerOp()))
	return result
}

// shouldSkip checks if the fixture, the encoder or the pair is in the skip list
func (r *Runner) shouldSkip(fixture, encoder string) bool {
	for _, skip := range r.config.Skip {
		if skip == fixture || skip == encoder || skip == fixture+"/"+encoder {
			return true
		}
	}
	return false
}
