// occunet-eval: Forward evaluation of an occupancy network on synthetic
// sphere volumes.
//
// Usage:
//
//	occunet-eval --variant=repeat --edge=16 --batches=4 --queries=64
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"occunet/nn"
	"occunet/tensor"
	"occunet/utils"
)

var (
	variant    = flag.String("variant", "repeat", "Fusion variant: repeat, noconcat, conv")
	volumeEdge = flag.Int("edge", 16, "Cubic volume edge length (multiple of 16)")
	batchSize  = flag.Int("batch", 1, "Volumes per batch")
	queries    = flag.Int("queries", 64, "Query points per volume")
	batches    = flag.Int("batches", 4, "Number of evaluation batches")
	threshold  = flag.Float64("threshold", nn.DefaultThreshold, "Occupancy decision boundary")
	seed       = flag.Int64("seed", 42, "Random seed")
	verbose    = flag.Bool("verbose", true, "Verbose output")
	outputDir  = flag.String("output", "", "Directory for the checkpoint (optional)")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	cfg := &utils.Config{
		Variant:    *variant,
		VolumeEdge: *volumeEdge,
		BatchSize:  *batchSize,
		Queries:    *batchSize * *queries,
		Threshold:  *threshold,
	}
	if err := utils.ValidateConfig(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                  occunet Forward Evaluation                  ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Variant:    %s\n", *variant)
	fmt.Printf("  Edge:       %d\n", *volumeEdge)
	fmt.Printf("  Batch size: %d\n", *batchSize)
	fmt.Printf("  Queries:    %d per volume\n", *queries)
	fmt.Printf("  Batches:    %d\n", *batches)
	fmt.Printf("  Threshold:  %.2f\n", *threshold)
	fmt.Println()

	rng := rand.New(rand.NewSource(*seed))
	stats := &utils.TimingStats{}
	totalStart := time.Now()

	start := time.Now()
	net, err := buildNetwork(*variant, *volumeEdge, *threshold)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building network: %v\n", err)
		os.Exit(1)
	}
	net.Eval()
	stats.ModelInitTime = time.Since(start)
	fmt.Printf("Model: %d parameter tensors\n", len(net.Parameters()))

	fmt.Println("\nEvaluating on synthetic sphere volumes...")
	loss := nn.BCELoss{}
	totalLoss, totalAcc := 0.0, 0.0
	var allScores []float64

	for b := 0; b < *batches; b++ {
		batchStart := time.Now()

		start = time.Now()
		volume, coords, labels := generateBatch(rng, *batchSize, *volumeEdge, *queries)
		stats.DataGenTime += time.Since(start)

		start = time.Now()
		features, err := net.Features(volume, coords)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error at batch %d: %v\n", b, err)
			os.Exit(1)
		}
		stats.FeatureTime += time.Since(start)

		start = time.Now()
		logits, err := net.Head().Forward(features)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error at batch %d: %v\n", b, err)
			os.Exit(1)
		}
		scores := tensor.New(logits.Shape...)
		for i, v := range logits.Data {
			scores.Data[i] = nn.Sigmoid(v)
		}
		stats.HeadTime += time.Since(start)

		start = time.Now()
		batchLoss, err := loss.Forward(scores, labels)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error at batch %d: %v\n", b, err)
			os.Exit(1)
		}
		stats.LossComputationTime += time.Since(start)

		acc := accuracy(scores, labels, *threshold)
		totalLoss += batchLoss
		totalAcc += acc
		allScores = append(allScores, scores.Data...)
		fmt.Printf("Batch %d/%d | Loss: %.6f | Accuracy: %.1f%% | Time: %.3fs\n",
			b+1, *batches, batchLoss, acc*100, time.Since(batchStart).Seconds())
	}

	stats.TotalTime = time.Since(totalStart)
	fmt.Printf("\nEvaluation complete! Mean loss: %.6f | Mean accuracy: %.1f%%\n",
		totalLoss/float64(*batches), totalAcc/float64(*batches)*100)

	scoreTensor := tensor.New(len(allScores))
	copy(scoreTensor.Data, allScores)
	if summary, err := utils.SummarizeScores(scoreTensor); err == nil {
		fmt.Printf("Score distribution: %s\n", summary)
	}

	if *verbose {
		utils.PrintTimingStats(stats, *batches)
	}

	if *outputDir != "" {
		path := filepath.Join(*outputDir, utils.CheckpointName(*variant, "cpu"))
		fmt.Printf("\nSaving checkpoint to %s...\n", path)
		ckpt := utils.ParamsToCheckpoint("1.0", *variant, net.Parameters())
		if err := utils.SaveCheckpoint(path, ckpt); err != nil {
			fmt.Fprintf(os.Stderr, "Error saving: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done!")
	}
}

// buildNetwork assembles the requested fusion variant for cubic volumes of
// the given edge length.
func buildNetwork(variant string, edge int, threshold float64) (*nn.OccupancyNetwork, error) {
	cfg := nn.DefaultNetworkConfig(edge)
	cfg.Threshold = threshold

	switch variant {
	case "repeat":
	case "noconcat":
		cfg.Fusion = nn.FusionNoConcat
		cfg.Decoder.Dims[0] = [2]int{3, cfg.Decoder.Dims[0][1]}
	case "conv":
		reduced := edge / 16
		cfg.Fusion = nn.FusionConvolutional
		cfg.CoordChannels = 8
		cfg.FeatureShape = []int{8, reduced, reduced, reduced}
		cfg.ConvDecoder = nn.EncoderConfig{
			Channels:       [][2]int{{16, 16}, {16, 8}},
			Kernels:        []int{1},
			Strides:        []int{1},
			Paddings:       []int{0},
			Bias:           []bool{true},
			Activations:    []string{"leaky relu"},
			Normalizations: []string{"none"},
			Downsamplings:  []string{"none"},
			PoolFactors:    []int{1},
			DropoutRates:   []float64{0},
		}
	default:
		return nil, fmt.Errorf("unknown variant %q", variant)
	}
	return nn.NewOccupancyNetwork(cfg)
}

type sphere struct {
	cx, cy, cz, r float64
}

func (s sphere) contains(x, y, z float64) bool {
	dx, dy, dz := x-s.cx, y-s.cy, z-s.cz
	return dx*dx+dy*dy+dz*dz <= s.r*s.r
}

func randomSphere(rng *rand.Rand) sphere {
	return sphere{
		cx: 0.35 + 0.3*rng.Float64(),
		cy: 0.35 + 0.3*rng.Float64(),
		cz: 0.35 + 0.3*rng.Float64(),
		r:  0.15 + 0.15*rng.Float64(),
	}
}

// generateBatch voxelizes one random sphere per volume and samples uniform
// query points in the unit cube, labeled by sphere membership. Queries are
// grouped block-contiguously per volume, as the network expects.
func generateBatch(rng *rand.Rand, batch, edge, perVolume int) (volume, coords, labels *tensor.Tensor) {
	volume = tensor.New(batch, 1, edge, edge, edge)
	coords = tensor.New(batch*perVolume, 3)
	labels = tensor.New(batch*perVolume, 1)

	for b := 0; b < batch; b++ {
		s := randomSphere(rng)

		base := b * edge * edge * edge
		for z := 0; z < edge; z++ {
			for y := 0; y < edge; y++ {
				for x := 0; x < edge; x++ {
					vx := (float64(x) + 0.5) / float64(edge)
					vy := (float64(y) + 0.5) / float64(edge)
					vz := (float64(z) + 0.5) / float64(edge)
					if s.contains(vx, vy, vz) {
						volume.Data[base+(z*edge+y)*edge+x] = 1
					}
				}
			}
		}

		for q := 0; q < perVolume; q++ {
			row := b*perVolume + q
			x, y, z := rng.Float64(), rng.Float64(), rng.Float64()
			coords.Set(x, row, 0)
			coords.Set(y, row, 1)
			coords.Set(z, row, 2)
			if s.contains(x, y, z) {
				labels.Set(1, row, 0)
			}
		}
	}
	return volume, coords, labels
}

func accuracy(scores, labels *tensor.Tensor, threshold float64) float64 {
	predicted := nn.ThresholdScores(scores, threshold)
	correct := 0
	for i := range predicted.Data {
		if predicted.Data[i] == labels.Data[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(predicted.Data))
}
