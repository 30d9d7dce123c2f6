package utils

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"occunet/tensor"
)

// ScoreSummary describes the distribution of a batch of occupancy scores.
type ScoreSummary struct {
	Count  int
	Mean   float64
	StdDev float64
	Min    float64
	Median float64
	Max    float64
}

// SummarizeScores computes distribution statistics over all score values.
func SummarizeScores(scores *tensor.Tensor) (ScoreSummary, error) {
	n := scores.NumElements()
	if n == 0 {
		return ScoreSummary{}, fmt.Errorf("no scores to summarize")
	}

	sorted := append([]float64(nil), scores.Data...)
	sort.Float64s(sorted)

	mean, std := stat.MeanStdDev(sorted, nil)
	if n == 1 {
		std = 0
	}
	return ScoreSummary{
		Count:  n,
		Mean:   mean,
		StdDev: std,
		Min:    sorted[0],
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		Max:    sorted[n-1],
	}, nil
}

// String renders the summary as a single report line.
func (s ScoreSummary) String() string {
	return fmt.Sprintf("n=%d mean=%.4f std=%.4f min=%.4f median=%.4f max=%.4f",
		s.Count, s.Mean, s.StdDev, s.Min, s.Median, s.Max)
}
