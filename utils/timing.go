package utils

import (
	"fmt"
	"io"
	"os"
	"time"
)

// Verbose controls whether timing statistics are printed.
// Set to false to suppress output.
var Verbose = true

// Output is the writer where timing statistics are printed.
// Defaults to os.Stdout.
var Output io.Writer = os.Stdout

// TimingStats holds timing information for the inference pipeline
type TimingStats struct {
	TotalTime           time.Duration
	DataGenTime         time.Duration
	HEInitTime          time.Duration
	ModelInitTime       time.Duration
	FeatureTime         time.Duration // encoder, fusion and decoder stack
	HeadTime            time.Duration // plaintext scoring head
	EncryptionTime      time.Duration
	EvaluationTime      time.Duration // encrypted scoring head
	DecryptionTime      time.Duration
	LossComputationTime time.Duration
}

// PrintTimingStats prints detailed timing statistics.
// Respects the Verbose flag - does nothing if Verbose is false.
func PrintTimingStats(stats *TimingStats, batches int) {
	if !Verbose {
		return
	}
	fmt.Fprintln(Output, "\n=== TIMING STATISTICS ===")
	fmt.Fprintf(Output, "Total time: %v\n", stats.TotalTime)
	fmt.Fprintf(Output, "Average time per batch: %v\n", stats.TotalTime/time.Duration(batches))
	fmt.Fprintf(Output, "Batches completed: %d\n", batches)
	fmt.Fprintln(Output, "\nBreakdown by operation:")
	fmt.Fprintf(Output, "  Data generation: %v (%.1f%%)\n", stats.DataGenTime, float64(stats.DataGenTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  HE initialization: %v (%.1f%%)\n", stats.HEInitTime, float64(stats.HEInitTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Model initialization: %v (%.1f%%)\n", stats.ModelInitTime, float64(stats.ModelInitTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Feature extraction: %v (%.1f%%)\n", stats.FeatureTime, float64(stats.FeatureTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Scoring head: %v (%.1f%%)\n", stats.HeadTime, float64(stats.HeadTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Encryption: %v (%.1f%%)\n", stats.EncryptionTime, float64(stats.EncryptionTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Encrypted evaluation: %v (%.1f%%)\n", stats.EvaluationTime, float64(stats.EvaluationTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Decryption: %v (%.1f%%)\n", stats.DecryptionTime, float64(stats.DecryptionTime)/float64(stats.TotalTime)*100)
	fmt.Fprintf(Output, "  Loss computation: %v (%.1f%%)\n", stats.LossComputationTime, float64(stats.LossComputationTime)/float64(stats.TotalTime)*100)
	fmt.Fprintln(Output, "\nPerformance metrics:")
	fmt.Fprintf(Output, "  Average feature time: %v\n", stats.FeatureTime/time.Duration(batches))
	fmt.Fprintf(Output, "  Average head time: %v\n", stats.HeadTime/time.Duration(batches))
	fmt.Fprintf(Output, "  Average encryption time: %v\n", stats.EncryptionTime/time.Duration(batches))
	fmt.Fprintf(Output, "  Average decryption time: %v\n", stats.DecryptionTime/time.Duration(batches))
}

// DurationUS converts any time.Duration to micro-seconds as float64
func DurationUS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000.0
}
