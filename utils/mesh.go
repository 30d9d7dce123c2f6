package utils

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"occunet/tensor"
)

// WriteOBJ writes the occupied query points as a Wavefront OBJ point cloud.
// coords must be [nq, 3] and scores [nq, 1]; a vertex is emitted for every
// query whose score exceeds the threshold, colored by its score so denser
// regions read brighter in a viewer.
func WriteOBJ(w io.Writer, coords, scores *tensor.Tensor, threshold float64) error {
	if len(coords.Shape) != 2 || coords.Shape[1] != 3 {
		return fmt.Errorf("expected [nq, 3] coordinates, got %v", coords.Shape)
	}
	if scores.NumElements() != coords.Shape[0] {
		return fmt.Errorf("got %d scores for %d coordinates", scores.NumElements(), coords.Shape[0])
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "# occupancy point cloud, %d queries, threshold %g\n", coords.Shape[0], threshold)
	for i := 0; i < coords.Shape[0]; i++ {
		s := scores.Data[i]
		if s <= threshold {
			continue
		}
		fmt.Fprintf(bw, "v %g %g %g %g %g %g\n",
			coords.At(i, 0), coords.At(i, 1), coords.At(i, 2), s, s, s)
	}
	return bw.Flush()
}

// SaveOBJ writes the point cloud to a file
func SaveOBJ(filepath string, coords, scores *tensor.Tensor, threshold float64) error {
	f, err := os.Create(filepath)
	if err != nil {
		return fmt.Errorf("failed to create mesh file: %w", err)
	}
	if err := WriteOBJ(f, coords, scores, threshold); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
