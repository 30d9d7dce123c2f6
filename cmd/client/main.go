// occunet-client: Client side of the remote scoring head. Extracts feature
// vectors locally, ships evaluation keys and encrypted features to the server
// over stdio, and decrypts the returned logits.
package main

import (
	"flag"
	"fmt"
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
	logN       = flag.Int("logN", 13, "Ring dimension log2")
	volumeEdge = flag.Int("edge", 16, "Cubic volume edge length (multiple of 16)")
	queries    = flag.Int("queries", 8, "Query points to score remotely")
	threshold  = flag.Float64("threshold", nn.DefaultThreshold, "Occupancy decision boundary")
	seed       = flag.Int64("seed", 42, "Random seed")
	verbose    = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose
	rng := rand.New(rand.NewSource(*seed))

	log("occunet scoring client starting (logN=%d)", *logN)

	heCtx := ckkswrapper.NewHeContextWithLogN(*logN)
	client := split.NewHeadClient(heCtx)

	// Local feature extraction: the volume and coordinates stay on the
	// client, only encrypted features go out.
	cfg := nn.DefaultNetworkConfig(*volumeEdge)
	cfg.Threshold = *threshold
	net, err := nn.NewOccupancyNetwork(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building network: %v\n", err)
		os.Exit(1)
	}
	net.Eval()

	volume := sphereVolume(rng, *volumeEdge)
	coords := randomCoords(rng, *queries)
	features, err := net.Features(volume, coords)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting features: %v\n", err)
		os.Exit(1)
	}
	width := features.Shape[1]

	protocol := split.NewProtocol(os.Stdin, os.Stdout)

	log("Sending evaluation keys (width=%d)...", width)
	evk := heCtx.GenEvaluationKeys(split.HeadRotations(width))
	evkBytes, err := evk.MarshalBinary()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error serializing keys: %v\n", err)
		os.Exit(1)
	}
	if err := protocol.SendSetup(width, evkBytes); err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}

	log("Scoring %d queries remotely...", *queries)
	start := time.Now()
	for i := 0; i < *queries; i++ {
		row := features.Data[i*width : (i+1)*width]
		score, err := client.ScoreRemote(protocol, i, row)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Query %d failed: %v\n", i, err)
			os.Exit(1)
		}
		occupied := 0
		if score > *threshold {
			occupied = 1
		}
		fmt.Fprintf(os.Stderr, "query %d: (%.3f, %.3f, %.3f) score=%.4f occupied=%d\n",
			i, coords.At(i, 0), coords.At(i, 1), coords.At(i, 2), score, occupied)
	}
	protocol.SendDone()
	log("Done (%.2fs)", time.Since(start).Seconds())
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

func randomCoords(rng *rand.Rand, n int) *tensor.Tensor {
	coords := tensor.New(n, 3)
	for i := range coords.Data {
		coords.Data[i] = rng.Float64()
	}
	return coords
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[CLIENT] "+format+"\n", args...)
	}
}
