package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// Config holds evaluation configuration
type Config struct {
	Variant    string
	VolumeEdge int
	BatchSize  int
	Queries    int
	Threshold  float64
}

// ParseIntList parses a whitespace-separated list of integers, e.g. a channel
// chain "1 32 32 64 64 8".
func ParseIntList(s string) ([]int, error) {
	parts := strings.Fields(s)
	values := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, err
		}
		values[i] = n
	}
	return values, nil
}

// ParseFloatList parses a whitespace-separated list of floats, e.g. per-block
// dropout rates "0 0 0.1".
func ParseFloatList(s string) ([]float64, error) {
	parts := strings.Fields(s)
	values := make([]float64, len(parts))
	for i, p := range parts {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		values[i] = f
	}
	return values, nil
}

// ChainPairs turns a dimension chain [a, b, c, d] into consecutive in/out
// pairs [(a,b), (b,c), (c,d)].
func ChainPairs(dims []int) ([][2]int, error) {
	if len(dims) < 2 {
		return nil, fmt.Errorf("dimension chain needs at least 2 entries, got %d", len(dims))
	}
	pairs := make([][2]int, len(dims)-1)
	for i := 0; i < len(dims)-1; i++ {
		pairs[i] = [2]int{dims[i], dims[i+1]}
	}
	return pairs, nil
}

// ValidateConfig validates evaluation configuration
func ValidateConfig(config *Config) error {
	switch config.Variant {
	case "repeat", "noconcat", "conv":
	default:
		return fmt.Errorf("variant must be one of repeat, noconcat, conv")
	}

	if config.VolumeEdge <= 0 {
		return fmt.Errorf("volume edge must be positive")
	}

	if config.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive")
	}

	if config.Queries <= 0 {
		return fmt.Errorf("query count must be positive")
	}

	if config.Queries%config.BatchSize != 0 {
		return fmt.Errorf("query count must be a multiple of the batch size")
	}

	if config.Threshold < 0 || config.Threshold >= 1 {
		return fmt.Errorf("threshold must be in [0, 1)")
	}

	return nil
}
