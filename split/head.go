package split

import (
	"errors"
	"fmt"
	"io"

	"github.com/tuneinsight/lattigo/v6/core/rlwe"
	"github.com/tuneinsight/lattigo/v6/schemes/ckks"

	"occunet/core/ckkswrapper"
	"occunet/nn"
	"occunet/nn/layers"
)

// HeadRotations returns the rotation offsets needed to tree-sum a feature
// vector of the given width: the powers of two below inDim.
func HeadRotations(inDim int) []int {
	var rots []int
	for step := 1; step < inDim; step *= 2 {
		rots = append(rots, step)
	}
	return rots
}

// HeadClient is the key-holding side of the encrypted scoring head. It
// encrypts feature vectors, decrypts logits and applies the output sigmoid.
type HeadClient struct {
	He *ckkswrapper.HeContext
}

// NewHeadClient wraps an existing context.
func NewHeadClient(he *ckkswrapper.HeContext) *HeadClient {
	return &HeadClient{He: he}
}

// EncryptFeatures packs one feature vector into the ciphertext slots.
func (c *HeadClient) EncryptFeatures(features []float64) (*rlwe.Ciphertext, error) {
	if len(features) > c.He.Params.MaxSlots() {
		return nil, fmt.Errorf("feature width %d exceeds %d slots", len(features), c.He.Params.MaxSlots())
	}
	pt := ckks.NewPlaintext(c.He.Params, c.He.Params.MaxLevel())
	if err := c.He.Encoder.Encode(features, pt); err != nil {
		return nil, err
	}
	return c.He.Encryptor.EncryptNew(pt)
}

// DecryptLogit reads the raw logit from slot 0.
func (c *HeadClient) DecryptLogit(ct *rlwe.Ciphertext) (float64, error) {
	pt := c.He.Decryptor.DecryptNew(ct)
	values := make([]complex128, c.He.Params.MaxSlots())
	if err := c.He.Encoder.Decode(pt, values); err != nil {
		return 0, err
	}
	return real(values[0]), nil
}

// DecryptScore decrypts the logit and maps it through the sigmoid into an
// occupancy score.
func (c *HeadClient) DecryptScore(ct *rlwe.Ciphertext) (float64, error) {
	logit, err := c.DecryptLogit(ct)
	if err != nil {
		return 0, err
	}
	return nn.Sigmoid(logit), nil
}

// ScoreRemote sends the encrypted features over the protocol and waits for
// the encrypted logit, returning the decrypted occupancy score.
func (c *HeadClient) ScoreRemote(p *Protocol, queryID int, features []float64) (float64, error) {
	ct, err := c.EncryptFeatures(features)
	if err != nil {
		return 0, err
	}
	ctBytes, err := ct.MarshalBinary()
	if err != nil {
		return 0, err
	}
	if err := p.SendQuery(queryID, ctBytes, ct.Level(), ct.Scale.Float64()); err != nil {
		return 0, err
	}

	resp, err := p.ReceiveScore()
	if err != nil {
		return 0, err
	}
	if resp.QueryID != queryID {
		return 0, fmt.Errorf("score for query %d, expected %d", resp.QueryID, queryID)
	}
	var scored rlwe.Ciphertext
	if err := scored.UnmarshalBinary(resp.Ciphertext); err != nil {
		return 0, err
	}
	return c.DecryptScore(&scored)
}

// HeadServer evaluates the linear scoring head on encrypted features. The
// weights stay in plaintext on the server; only the features are encrypted,
// so the server never sees the latent code or the query coordinates.
type HeadServer struct {
	kit   *ckkswrapper.ServerKit
	w     []float64
	bias  float64
	inDim int
}

// NewHeadServer builds a server around a single weight row and bias.
func NewHeadServer(kit *ckkswrapper.ServerKit, weights []float64, bias float64) *HeadServer {
	w := make([]float64, len(weights))
	copy(w, weights)
	return &HeadServer{kit: kit, w: w, bias: bias, inDim: len(w)}
}

// NewHeadServerFromLinear extracts the weight row of a trained scoring layer.
// The layer must map its features to a single logit.
func NewHeadServerFromLinear(kit *ckkswrapper.ServerKit, head *layers.Linear) (*HeadServer, error) {
	if head.OutDim() != 1 {
		return nil, fmt.Errorf("scoring head must produce one logit, got %d outputs", head.OutDim())
	}
	bias := 0.0
	if head.B != nil {
		bias = head.B.Data[0]
	}
	return NewHeadServer(kit, head.W.Data, bias), nil
}

// InDim returns the feature width the server expects.
func (s *HeadServer) InDim() int { return s.inDim }

// Score computes w·x + b on an encrypted feature vector. Slots past inDim
// must be zero; the result carries the logit in slot 0.
func (s *HeadServer) Score(ct *rlwe.Ciphertext) (*rlwe.Ciphertext, error) {
	ev := s.kit.Evaluator

	wpt := ckks.NewPlaintext(s.kit.Params, ct.Level())
	if err := s.kit.Encoder.Encode(s.w, wpt); err != nil {
		return nil, err
	}
	// Plaintext multiplication keeps the ciphertext at degree 1, so no
	// relinearization is needed before the rescale.
	prod, err := ev.MulNew(ct, wpt)
	if err != nil {
		return nil, err
	}
	if err := ev.Rescale(prod, prod); err != nil {
		return nil, err
	}

	// Rotate-and-add over powers of two folds the slot-wise products into
	// slot 0.
	for step := 1; step < s.inDim; step *= 2 {
		rot, err := ev.RotateNew(prod, step)
		if err != nil {
			return nil, err
		}
		if prod, err = ev.AddNew(prod, rot); err != nil {
			return nil, err
		}
	}

	bpt := ckks.NewPlaintext(s.kit.Params, prod.Level())
	bpt.Scale = prod.Scale
	bvec := make([]float64, s.kit.Params.MaxSlots())
	bvec[0] = s.bias
	if err := s.kit.Encoder.Encode(bvec, bpt); err != nil {
		return nil, err
	}
	return ev.AddNew(prod, bpt)
}

// Serve answers queries on the protocol until the client signals done.
func (s *HeadServer) Serve(p *Protocol) error {
	for {
		query, err := p.ReceiveQuery()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		var ct rlwe.Ciphertext
		if err := ct.UnmarshalBinary(query.Ciphertext); err != nil {
			sendErr := fmt.Errorf("query %d: %w", query.QueryID, err)
			if perr := p.SendError(sendErr); perr != nil {
				return perr
			}
			continue
		}
		scored, err := s.Score(&ct)
		if err != nil {
			if perr := p.SendError(fmt.Errorf("query %d: %w", query.QueryID, err)); perr != nil {
				return perr
			}
			continue
		}
		ctBytes, err := scored.MarshalBinary()
		if err != nil {
			return err
		}
		if err := p.SendScore(query.QueryID, ctBytes, scored.Level(), scored.Scale.Float64()); err != nil {
			return err
		}
	}
}
