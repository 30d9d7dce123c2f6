package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"occunet/tensor"
)

// WeightData represents serializable weight data for one parameter tensor
type WeightData struct {
	Name  string    `json:"name"`
	Shape []int     `json:"shape"`
	Data  []float64 `json:"data"`
}

// Checkpoint represents all parameters of a model, keyed by the flat dotted
// names the network reports (e.g. "encoder.0.conv.weight").
type Checkpoint struct {
	Version string                 `json:"version"`
	Variant string                 `json:"variant"`
	Weights map[string]*WeightData `json:"weights"`
}

// CheckpointName returns the conventional checkpoint file name for a fusion
// variant evaluated on a device, e.g. "repeat_cpu.json".
func CheckpointName(variant, device string) string {
	return fmt.Sprintf("%s_%s.json", variant, device)
}

// SaveCheckpoint saves a checkpoint to a JSON file
func SaveCheckpoint(filepath string, ckpt *Checkpoint) error {
	data, err := json.MarshalIndent(ckpt, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return os.WriteFile(filepath, data, 0644)
}

// LoadCheckpoint loads a checkpoint from a JSON file
func LoadCheckpoint(filepath string) (*Checkpoint, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}
	var ckpt Checkpoint
	if err := json.Unmarshal(data, &ckpt); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &ckpt, nil
}

// ParamsToCheckpoint snapshots a parameter map into a checkpoint
func ParamsToCheckpoint(version, variant string, params map[string]*tensor.Tensor) *Checkpoint {
	ckpt := &Checkpoint{
		Version: version,
		Variant: variant,
		Weights: make(map[string]*WeightData, len(params)),
	}
	for name, t := range params {
		ckpt.Weights[name] = TensorToWeightData(name, t)
	}
	return ckpt
}

// Params converts the checkpoint back into a parameter map
func (c *Checkpoint) Params() map[string]*tensor.Tensor {
	params := make(map[string]*tensor.Tensor, len(c.Weights))
	for name, wd := range c.Weights {
		params[name] = WeightDataToTensor(wd)
	}
	return params
}

// TensorToWeightData converts a tensor to serializable weight data
func TensorToWeightData(name string, t *tensor.Tensor) *WeightData {
	return &WeightData{
		Name:  name,
		Shape: t.Shape,
		Data:  append([]float64{}, t.Data...), // copy
	}
}

// WeightDataToTensor converts weight data back to a tensor
func WeightDataToTensor(wd *WeightData) *tensor.Tensor {
	t := tensor.New(wd.Shape...)
	copy(t.Data, wd.Data)
	return t
}

// CiphertextData represents serializable ciphertext (base64 encoded)
type CiphertextData struct {
	Level int    `json:"level"`
	Scale string `json:"scale"`
	Data  string `json:"data"` // base64 encoded
}

// EncodeBytes encodes raw bytes to base64 string
func EncodeBytes(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeBytes decodes base64 string to raw bytes
func DecodeBytes(encoded string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(encoded)
}
