// Benchmark tool measuring Harrier detection quality on labeled
// synthetic batches.
//
// Usage:
//   go run cmd/benchmark/main.go -n 5000 -seed 42
//
// This tool:
//   1. Generates a synthetic batch with injected structuring activity
//   2. Runs the full detection pipeline in-process
//   3. Compares verdicts against the injection labels
//   4. Calculates precision, recall, F1-score, and confusion matrix
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/simulate"
)

// Metrics tracks benchmark results against the injection labels.
type Metrics struct {
	TruePositives  int // Injected flagged suspicious
	FalsePositives int // Clean flagged suspicious
	TrueNegatives  int // Clean passed
	FalseNegatives int // Injected passed (missed!)

	TotalProcessed int
	TotalInjected  int
	TotalClean     int
}

func main() {
	count := flag.Int("n", 5000, "Base transaction count")
	senders := flag.Int("senders", 20, "Structuring senders to inject")
	perSender := flag.Int("per-sender", 10, "Injected transactions per structuring sender")
	seed := flag.Int64("seed", 1, "Generator seed")
	detectSeed := flag.Int64("detect-seed", 42, "Isolation forest seed")
	contamination := flag.Float64("contamination", 0.02, "Expected anomaly fraction")
	workers := flag.Int("workers", 0, "Worker count (0 = NumCPU)")
	verbose := flag.Bool("verbose", false, "Print each misclassified transaction")
	flag.Parse()

	// Keep pipeline logs out of the result tables.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	fmt.Println("╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║        HARRIER BENCHMARK - Synthetic Batch Screening          ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nBase Count:      %d\n", *count)
	fmt.Printf("Injected:        %d senders x %d txns\n", *senders, *perSender)
	fmt.Printf("Generator Seed:  %d\n", *seed)
	fmt.Printf("Forest Seed:     %d\n", *detectSeed)
	fmt.Printf("Contamination:   %.3f\n", *contamination)
	fmt.Println()

	genOpts := simulate.DefaultOptions()
	genOpts.BaseCount = *count
	genOpts.StructuringSenders = *senders
	genOpts.StructuringPerSender = *perSender
	genOpts.Seed = *seed

	cfg := domain.DefaultDetectionConfig()
	cfg.Contamination = *contamination
	cfg.RandomSeed = *detectSeed
	cfg.Workers = *workers

	detector, err := detect.New(cfg)
	if err != nil {
		fmt.Printf("ERROR: failed to initialize detector: %v\n", err)
		os.Exit(1)
	}

	batch := simulate.Generate(genOpts)
	fmt.Printf("Generated %d transactions (%d injected)\n", len(batch.Transactions), len(batch.Injected))

	start := time.Now()
	verdicts, err := detector.Detect(context.Background(), batch.Transactions)
	if err != nil {
		fmt.Printf("ERROR: detection failed: %v\n", err)
		os.Exit(1)
	}
	duration := time.Since(start)

	metrics := score(batch, verdicts, *verbose)
	printResults(metrics, duration)
}

func score(batch simulate.Batch, verdicts map[int64]domain.Verdict, verbose bool) *Metrics {
	metrics := &Metrics{}

	for _, tx := range batch.Transactions {
		verdict := verdicts[tx.ID]
		predicted := verdict.Suspicious
		actual := batch.Injected[tx.ID]

		metrics.TotalProcessed++
		if actual {
			metrics.TotalInjected++
		} else {
			metrics.TotalClean++
		}

		switch {
		case predicted && actual:
			metrics.TruePositives++
		case predicted && !actual:
			metrics.FalsePositives++
		case !predicted && !actual:
			metrics.TrueNegatives++
		default: // !predicted && actual
			metrics.FalseNegatives++
			if verbose {
				fmt.Printf("MISSED: tx %d | sender %d | amount %.2f | location %s\n",
					tx.ID, tx.SenderID, tx.Amount, tx.Location)
			}
		}

		if verbose && predicted && !actual {
			fmt.Printf("FALSE ALARM: tx %d | amount %.2f | reasons %v\n",
				tx.ID, tx.Amount, verdict.Reasons)
		}
	}

	return metrics
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\n╔═══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                      BENCHMARK RESULTS                        ║")
	fmt.Println("╚═══════════════════════════════════════════════════════════════╝")

	fmt.Printf("\n📊 DATASET STATISTICS\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Total Injected:   %d\n", m.TotalInjected)
	fmt.Printf("   Total Clean:      %d\n", m.TotalClean)

	fmt.Printf("\n📈 CONFUSION MATRIX\n")
	fmt.Println("                          Predicted")
	fmt.Println("                    SUSP        CLEAN")
	fmt.Println("              ┌──────────┬──────────┐")
	fmt.Printf("   Actual  I  │ %8d │ %8d │  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              ├──────────┼──────────┤")
	fmt.Printf("           C  │ %8d │ %8d │  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              └──────────┴──────────┘")

	precision := float64(0)
	if m.TruePositives+m.FalsePositives > 0 {
		precision = float64(m.TruePositives) / float64(m.TruePositives+m.FalsePositives)
	}

	recall := float64(0)
	if m.TruePositives+m.FalseNegatives > 0 {
		recall = float64(m.TruePositives) / float64(m.TruePositives+m.FalseNegatives)
	}

	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}

	accuracy := float64(0)
	total := m.TruePositives + m.TrueNegatives + m.FalsePositives + m.FalseNegatives
	if total > 0 {
		accuracy = float64(m.TruePositives+m.TrueNegatives) / float64(total)
	}

	fmt.Printf("\n🎯 DETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of suspicious verdicts, how many were injected)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of injected activity, how much did we catch)\n", recall)
	fmt.Printf("   F1-Score:   %.4f  (harmonic mean of precision & recall)\n", f1)
	fmt.Printf("   Accuracy:   %.4f  (overall correct verdicts)\n", accuracy)

	fmt.Printf("\n🔍 DETECTION ANALYSIS\n")
	if m.TotalInjected > 0 {
		detectionRate := float64(m.TruePositives) / float64(m.TotalInjected) * 100
		missRate := float64(m.FalseNegatives) / float64(m.TotalInjected) * 100
		fmt.Printf("   Injected Caught:   %d / %d (%.2f%%)\n", m.TruePositives, m.TotalInjected, detectionRate)
		fmt.Printf("   Injected Missed:   %d / %d (%.2f%%) ⚠️\n", m.FalseNegatives, m.TotalInjected, missRate)
	}
	if m.TotalClean > 0 {
		falseAlarmRate := float64(m.FalsePositives) / float64(m.TotalClean) * 100
		fmt.Printf("   False Alarms:      %d / %d (%.2f%%)\n", m.FalsePositives, m.TotalClean, falseAlarmRate)
	}

	fmt.Printf("\n⏱️  PERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.TotalProcessed > 0 && duration > 0 {
		tps := float64(m.TotalProcessed) / duration.Seconds()
		fmt.Printf("   Throughput:       %.2f tx/sec\n", tps)
	}

	fmt.Printf("\n💡 INTERPRETATION\n")
	switch {
	case recall >= 0.9:
		fmt.Println("   ✅ Excellent recall - catching most injected activity")
	case recall >= 0.7:
		fmt.Println("   ⚠️  Good recall - but missing some injected activity")
	case recall >= 0.5:
		fmt.Println("   ⚠️  Moderate recall - significant injected activity being missed")
	default:
		fmt.Println("   ❌ Poor recall - most injected activity is being missed!")
	}
	fmt.Println()
}
