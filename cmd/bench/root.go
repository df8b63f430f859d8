package bench

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/jetpack/cmd/util"
	"github.com/ValentinKolb/jetpack/lib/bench"
	"github.com/ValentinKolb/jetpack/lib/common"
	"github.com/ValentinKolb/jetpack/lib/serializer"
	libutil "github.com/ValentinKolb/jetpack/lib/util"
	"github.com/VictoriaMetrics/metrics"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var (
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmark jetpack against binary, json and gob encoding",
		Long:    "Encodes every fixture with every encoder using testing.Benchmark and reports ns/op, ops/sec and the encoded size. Fixtures or encoders can be left out with --skip (e.g. --skip=gob,order/json).",
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchNumThreads = 1
	benchSkip       = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Fixtures, encoders or fixture/encoder pairs to skip (comma separated - e.g. gob,order/json)"))
	key = "threads"
	BenchCmd.Flags().Int(key, 1, util.WrapString("Parallelism multiplier passed to testing.B.SetParallelism"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	BenchCmd.Flags().Bool(key, false, util.WrapString("Print the collected metrics in Prometheus text format after the run"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchNumThreads = viper.GetInt("threads")
	benchSkip = benchSkip[:0]
	for _, s := range strings.Split(viper.GetString("skip"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			benchSkip = append(benchSkip, s)
		}
	}

	config := util.GetConfig()
	if err := config.Validate(); err != nil {
		return err
	}
	return common.InitLoggers(config)
}

func run(_ *cobra.Command, _ []string) error {
	fmt.Println("Benchmark tool for the jetpack serializer")

	config := util.GetConfig()
	config.TrackSizes = true

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", benchNumThreads)
	fmt.Println()

	s, err := serializer.New(config)
	if err != nil {
		return err
	}

	fmt.Println("starting tests...")

	fixtures := bench.Fixtures()
	runner := bench.NewRunner(bench.Config{Threads: benchNumThreads, Skip: benchSkip}, bench.Encoders(s), fixtures)
	results := runner.Run(printResult)

	printSummaries(runner.Summaries())
	printTypeSizes(s, fixtures)

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if viper.GetBool("metrics") {
		fmt.Println()
		writeMetrics(os.Stdout, runner.Metrics())
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// printResult prints the result of a benchmark test in a formatted way
func printResult(result bench.Result) {
	switch {
	case result.Skipped:
		fmt.Printf("%-28sskipped\n", result.Name())
		return
	case result.Err != nil:
		fmt.Printf("%-28sfailed: %v\n", result.Name(), result.Err)
		return
	}

	nsPerOp := result.NsPerOp()
	fmt.Printf("%-28s%.0fns/op (%s/op)\t%.0f ops/sec\t%d B\t%d allocs/op\n",
		result.Name(), nsPerOp, time.Duration(nsPerOp), result.OpsPerSec(), result.Size, result.Bench.AllocsPerOp())
}

// printSummaries prints the throughput and size summary per encoder
func printSummaries(summaries []bench.Summary) {
	if len(summaries) == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Summary:")
	for _, s := range summaries {
		fmt.Printf("%-10smean %.0f ops/sec (min %.0f, max %.0f, std dev %.0f)\tp95 %s/op\tsize mean %.0f B, max %d B\n",
			s.Encoder, s.Throughput.Mean, s.Throughput.Min, s.Throughput.Max, s.Throughput.StdDeviation,
			s.P95Latency, s.MeanSize, s.MaxSize)
	}
}

// printTypeSizes prints the size histogram the serializer recorded per fixture type
func printTypeSizes(s *serializer.Serializer, fixtures []bench.Fixture) {
	fmt.Println()
	fmt.Println("Encoded sizes (jetpack):")
	for _, f := range fixtures {
		t := reflect.TypeOf(f.Value).Elem()
		hist := s.SizeStats(t)
		if hist == nil {
			continue
		}
		fmt.Printf("%-20s%d samples, avg %d B, median ~%d B, p95 ~%d B\n",
			t.Name(), hist.GetCount(), hist.AverageSize(), hist.MedianEstimate(), hist.GetPercentileEstimate(95))
		fmt.Printf("%-20s%s\n", "", formatDistribution(hist))
	}
}

// formatDistribution lists the non-empty buckets of a size histogram
func formatDistribution(hist *libutil.SizeHistogram) string {
	bounds, percentages := hist.SizeDistribution()
	parts := make([]string, 0, len(percentages))
	for i, p := range percentages {
		if p == 0 {
			continue
		}
		if i < len(bounds) {
			parts = append(parts, fmt.Sprintf("<=%d B: %.1f%%", bounds[i], p))
		} else {
			parts = append(parts, fmt.Sprintf(">%d B: %.1f%%", bounds[len(bounds)-1], p))
		}
	}
	if len(parts) == 0 {
		return "no samples"
	}
	return strings.Join(parts, ", ")
}

// writeMetrics writes the process counters and the benchmark histograms
func writeMetrics(w io.Writer, registry gometrics.Registry) {
	metrics.WritePrometheus(w, false)

	registry.Each(func(name string, i interface{}) {
		metricName := "jetpack_bench_" + strings.NewReplacer(".", "_", "-", "_").Replace(name)
		switch m := i.(type) {
		case gometrics.Histogram:
			snap := m.Snapshot()
			fmt.Fprintf(w, "%s_count %d\n", metricName, snap.Count())
			fmt.Fprintf(w, "%s_mean %.0f\n", metricName, snap.Mean())
			fmt.Fprintf(w, "%s_max %d\n", metricName, snap.Max())
		case gometrics.Timer:
			snap := m.Snapshot()
			fmt.Fprintf(w, "%s_count %d\n", metricName, snap.Count())
			fmt.Fprintf(w, "%s_mean_ns %.0f\n", metricName, snap.Mean())
			fmt.Fprintf(w, "%s_p95_ns %.0f\n", metricName, snap.Percentile(0.95))
		}
	})
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []bench.Result, config common.Config) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Fixture", "Encoder", "NsPerOp", "DurationPerOp", "OpsPerSec", "Bytes", "AllocsPerOp", "Skipped", "Error",
		"ChunkSize", "Slots", "TableSize", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, result := range results {
		var errStr string
		if result.Err != nil {
			errStr = result.Err.Error()
		}

		row := []string{
			result.Fixture,
			result.Encoder,
			fmt.Sprintf("%.0f", result.NsPerOp()),
			time.Duration(result.NsPerOp()).String(),
			fmt.Sprintf("%.0f", result.OpsPerSec()),
			strconv.Itoa(result.Size),
			strconv.FormatInt(result.Bench.AllocsPerOp(), 10),
			strconv.FormatBool(result.Skipped),
			errStr,
			strconv.Itoa(config.ChunkSize),
			strconv.Itoa(config.SlotCount),
			strconv.Itoa(config.TableSize),
			strconv.Itoa(benchNumThreads),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", result.Name(), err)
		}
	}

	return nil
}
