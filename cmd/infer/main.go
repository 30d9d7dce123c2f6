// occunet-infer: Occupancy inference over a dense query grid, with optional
// encrypted scoring of the final head and OBJ point-cloud export.
package main

import (
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"time"

	"occunet/core/ckkswrapper"
	"occunet/nn"
	"occunet/split"
	"occunet/tensor"
	"occunet/utils"
)

var (
	weightsFile = flag.String("weights", "", "Checkpoint JSON file (optional)")
	variant     = flag.String("variant", "repeat", "Fusion variant: repeat, noconcat, conv")
	volumeEdge  = flag.Int("edge", 16, "Cubic volume edge length (multiple of 16)")
	grid        = flag.Int("grid", 8, "Query grid resolution per axis")
	threshold   = flag.Float64("threshold", nn.DefaultThreshold, "Occupancy decision boundary")
	encrypted   = flag.Bool("encrypted", false, "Score the head under encryption")
	encQueries  = flag.Int("enc-queries", 8, "Queries to score under encryption")
	logN        = flag.Int("logN", 13, "Ring dimension log2")
	seed        = flag.Int64("seed", 42, "Random seed")
	verbose     = flag.Bool("verbose", true, "Verbose output")
	meshFile    = flag.String("mesh", "", "Output OBJ point cloud (optional)")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	fmt.Println("╔══════════════════════════════════════════════════════════════╗")
	fmt.Println("║                   occunet Occupancy Inference                ║")
	fmt.Println("╚══════════════════════════════════════════════════════════════╝")
	fmt.Printf("\nConfiguration:\n")
	fmt.Printf("  Variant:   %s\n", *variant)
	fmt.Printf("  Edge:      %d\n", *volumeEdge)
	fmt.Printf("  Grid:      %d³ queries\n", *grid)
	fmt.Printf("  Threshold: %.2f\n", *threshold)
	fmt.Printf("  Encrypted: %v\n", *encrypted)
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

	if *weightsFile != "" {
		fmt.Printf("Loading checkpoint from %s...\n", *weightsFile)
		ckpt, err := utils.LoadCheckpoint(*weightsFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading checkpoint: %v\n", err)
			os.Exit(1)
		}
		if ckpt.Variant != "" && ckpt.Variant != *variant {
			fmt.Fprintf(os.Stderr, "Checkpoint variant %q does not match --variant=%s\n", ckpt.Variant, *variant)
			os.Exit(1)
		}
		if err := net.LoadParameters(ckpt.Params()); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading parameters: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %d parameter tensors\n", len(ckpt.Weights))
	} else {
		fmt.Println("No checkpoint given, using fresh weights")
	}

	start = time.Now()
	volume := sphereVolume(rng, *volumeEdge)
	coords := gridCoords(*grid)
	stats.DataGenTime = time.Since(start)
	nq := coords.Shape[0]

	fmt.Printf("\nScoring %d grid queries...\n", nq)
	start = time.Now()
	features, err := net.Features(volume, coords)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	stats.FeatureTime = time.Since(start)

	start = time.Now()
	logits, err := net.Head().Forward(features)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	scores := tensor.New(logits.Shape...)
	for i, v := range logits.Data {
		scores.Data[i] = nn.Sigmoid(v)
	}
	stats.HeadTime = time.Since(start)

	occupied := 0
	for _, v := range nn.ThresholdScores(scores, *threshold).Data {
		if v == 1 {
			occupied++
		}
	}
	fmt.Printf("Occupied: %d/%d queries (%.1f%%)\n", occupied, nq, float64(occupied)/float64(nq)*100)
	if summary, err := utils.SummarizeScores(scores); err == nil {
		fmt.Printf("Score distribution: %s\n", summary)
	}

	if *encrypted {
		if err := runEncryptedHead(net, features, scores, stats); err != nil {
			fmt.Fprintf(os.Stderr, "Error in encrypted scoring: %v\n", err)
			os.Exit(1)
		}
	}

	if *meshFile != "" {
		fmt.Printf("\nWriting point cloud to %s...\n", *meshFile)
		if err := utils.SaveOBJ(*meshFile, coords, scores, *threshold); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing mesh: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Done!")
	}

	stats.TotalTime = time.Since(totalStart)
	if *verbose {
		utils.PrintTimingStats(stats, 1)
	}
}

// runEncryptedHead rescoring a prefix of the queries with the head evaluated
// homomorphically, comparing against the plaintext scores.
func runEncryptedHead(net *nn.OccupancyNetwork, features, scores *tensor.Tensor, stats *utils.TimingStats) error {
	width := features.Shape[1]
	count := *encQueries
	if count > features.Shape[0] {
		count = features.Shape[0]
	}

	fmt.Printf("\nScoring %d queries under encryption (logN=%d, width=%d)...\n", count, *logN, width)
	start := time.Now()
	he := ckkswrapper.NewHeContextWithLogN(*logN)
	kit := he.GenServerKit(split.HeadRotations(width))
	stats.HEInitTime = time.Since(start)

	client := split.NewHeadClient(he)
	server, err := split.NewHeadServerFromLinear(kit, net.Head())
	if err != nil {
		return err
	}

	maxDiff := 0.0
	for i := 0; i < count; i++ {
		row := features.Data[i*width : (i+1)*width]

		start = time.Now()
		ct, err := client.EncryptFeatures(row)
		if err != nil {
			return err
		}
		stats.EncryptionTime += time.Since(start)

		start = time.Now()
		scored, err := server.Score(ct)
		if err != nil {
			return err
		}
		stats.EvaluationTime += time.Since(start)

		start = time.Now()
		got, err := client.DecryptScore(scored)
		if err != nil {
			return err
		}
		stats.DecryptionTime += time.Since(start)

		if diff := math.Abs(got - scores.Data[i]); diff > maxDiff {
			maxDiff = diff
		}
	}
	fmt.Printf("Encrypted scores agree with plaintext within %.2e\n", maxDiff)
	return nil
}

func sphereVolume(rng *rand.Rand, edge int) *tensor.Tensor {
	cx := 0.35 + 0.3*rng.Float64()
	cy := 0.35 + 0.3*rng.Float64()
	cz := 0.35 + 0.3*rng.Float64()
	r := 0.15 + 0.15*rng.Float64()

	volume := tensor.New(1, 1, edge, edge, edge)
	for z := 0; z < edge; z++ {
		for y := 0; y < edge; y++ {
			for x := 0; x < edge; x++ {
				vx := (float64(x)+0.5)/float64(edge) - cx
				vy := (float64(y)+0.5)/float64(edge) - cy
				vz := (float64(z)+0.5)/float64(edge) - cz
				if vx*vx+vy*vy+vz*vz <= r*r {
					volume.Data[(z*edge+y)*edge+x] = 1
				}
			}
		}
	}
	return volume
}

// gridCoords samples voxel-centered query points on a regular grid covering
// the unit cube.
func gridCoords(grid int) *tensor.Tensor {
	coords := tensor.New(grid*grid*grid, 3)
	row := 0
	for z := 0; z < grid; z++ {
		for y := 0; y < grid; y++ {
			for x := 0; x < grid; x++ {
				coords.Set((float64(x)+0.5)/float64(grid), row, 0)
				coords.Set((float64(y)+0.5)/float64(grid), row, 1)
				coords.Set((float64(z)+0.5)/float64(grid), row, 2)
				row++
			}
		}
	}
	return coords
}

// buildNetwork mirrors the eval command's variant wiring.
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
