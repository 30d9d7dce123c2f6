// occunet-server: Remote scoring-head server. Receives evaluation keys and
// encrypted feature vectors over stdio and answers with encrypted logits; the
// head weights never leave the server and the features never appear in the
// clear.
package main

import (
	"flag"
	"fmt"
	"os"

	"occunet/core/ckkswrapper"
	"occunet/split"
	"occunet/utils"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"
)

var (
	logN        = flag.Int("logN", 13, "Ring dimension log2")
	weightsFile = flag.String("weights", "", "Checkpoint JSON holding the head weights (optional)")
	verbose     = flag.Bool("verbose", false, "Verbose output")
)

func main() {
	flag.Parse()
	utils.Verbose = *verbose

	log("occunet scoring server starting (logN=%d)", *logN)

	params, err := ckks.NewParametersFromLiteral(ckkswrapper.ParametersLiteral(*logN))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid parameters: %v\n", err)
		os.Exit(1)
	}

	protocol := split.NewProtocol(os.Stdin, os.Stdout)
	log("Waiting for client setup...")

	setup, err := protocol.ReceiveSetup()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Setup failed: %v\n", err)
		os.Exit(1)
	}
	evk := new(rlwe.MemEvaluationKeySet)
	if err := evk.UnmarshalBinary(setup.EvalKeys); err != nil {
		fmt.Fprintf(os.Stderr, "Bad evaluation keys: %v\n", err)
		os.Exit(1)
	}
	kit := ckkswrapper.NewServerKit(params, evk)
	log("Evaluation keys ready (width=%d)", setup.Width)

	weights, bias, err := loadHead(setup.Width)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading head: %v\n", err)
		os.Exit(1)
	}
	server := split.NewHeadServer(kit, weights, bias)
	log("Head ready")

	if err := server.Serve(protocol); err != nil {
		fmt.Fprintf(os.Stderr, "Serve failed: %v\n", err)
		os.Exit(1)
	}
	log("Server done")
}

// loadHead reads the scoring head from the checkpoint, or falls back to
// deterministic demo weights.
func loadHead(width int) ([]float64, float64, error) {
	if *weightsFile == "" {
		log("No checkpoint given, using demo weights")
		weights := make([]float64, width)
		for i := range weights {
			weights[i] = 0.01 * float64(i%10-5)
		}
		return weights, 0.1, nil
	}

	ckpt, err := utils.LoadCheckpoint(*weightsFile)
	if err != nil {
		return nil, 0, err
	}
	w, ok := ckpt.Weights["head.weight"]
	if !ok {
		return nil, 0, fmt.Errorf("checkpoint has no head.weight")
	}
	if len(w.Data) != width {
		return nil, 0, fmt.Errorf("head width %d does not match client width %d", len(w.Data), width)
	}
	bias := 0.0
	if b, ok := ckpt.Weights["head.bias"]; ok && len(b.Data) > 0 {
		bias = b.Data[0]
	}
	return append([]float64(nil), w.Data...), bias, nil
}

func log(format string, args ...interface{}) {
	if *verbose {
		fmt.Fprintf(os.Stderr, "[SERVER] "+format+"\n", args...)
	}
}
