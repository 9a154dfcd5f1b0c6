package trainer

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/audionet-ml/audionet/internal/model"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// tensorRecord is one named buffer in a checkpoint.
type tensorRecord struct {
	Name  string
	Shape []int
	Data  []float32
}

// checkpoint is the on-disk layout, gob-encoded. Params covers trainable
// parameters; Buffers covers batch norm running statistics, keyed by
// layer position.
type checkpoint struct {
	Epoch   int
	Params  []tensorRecord
	Buffers []tensorRecord
}

func recordOf(name string, raw *tensor.RawTensor) tensorRecord {
	src := raw.AsFloat32()
	data := make([]float32, len(src))
	copy(data, src)
	return tensorRecord{Name: name, Shape: []int(raw.Shape()), Data: data}
}

// SaveCheckpoint writes the model's parameters and running statistics.
func SaveCheckpoint[B tensor.Backend](path string, epoch int, m *model.AudioNet[B]) error {
	ckpt := checkpoint{Epoch: epoch}

	for _, p := range m.Parameters() {
		ckpt.Params = append(ckpt.Params, recordOf(p.Name(), p.Tensor().Raw()))
	}
	for i, bn := range m.BatchNorms() {
		mean, variance := bn.RunningStats()
		ckpt.Buffers = append(ckpt.Buffers,
			recordOf(fmt.Sprintf("bn%d.running_mean", i+1), mean),
			recordOf(fmt.Sprintf("bn%d.running_var", i+1), variance),
		)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating checkpoint: %w", err)
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(ckpt); err != nil {
		return fmt.Errorf("encoding checkpoint: %w", err)
	}
	return f.Close()
}

// LoadCheckpoint restores parameters and running statistics into an
// already-constructed model of matching architecture. Returns the epoch
// the checkpoint was written at.
func LoadCheckpoint[B tensor.Backend](path string, m *model.AudioNet[B]) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening checkpoint: %w", err)
	}
	defer f.Close()

	var ckpt checkpoint
	if err := gob.NewDecoder(f).Decode(&ckpt); err != nil {
		return 0, fmt.Errorf("decoding checkpoint: %w", err)
	}

	params := make(map[string]*tensor.RawTensor)
	for _, p := range m.Parameters() {
		params[p.Name()] = p.Tensor().Raw()
	}
	for _, rec := range ckpt.Params {
		dst, ok := params[rec.Name]
		if !ok {
			return 0, fmt.Errorf("checkpoint parameter %q not in model", rec.Name)
		}
		if err := restore(dst, rec); err != nil {
			return 0, err
		}
	}

	buffers := make(map[string]*tensor.RawTensor)
	for i, bn := range m.BatchNorms() {
		mean, variance := bn.RunningStats()
		buffers[fmt.Sprintf("bn%d.running_mean", i+1)] = mean
		buffers[fmt.Sprintf("bn%d.running_var", i+1)] = variance
	}
	for _, rec := range ckpt.Buffers {
		dst, ok := buffers[rec.Name]
		if !ok {
			return 0, fmt.Errorf("checkpoint buffer %q not in model", rec.Name)
		}
		if err := restore(dst, rec); err != nil {
			return 0, err
		}
	}

	return ckpt.Epoch, nil
}

func restore(dst *tensor.RawTensor, rec tensorRecord) error {
	if !dst.Shape().Equal(tensor.Shape(rec.Shape)) {
		return fmt.Errorf("checkpoint tensor %q has shape %v, model expects %v",
			rec.Name, rec.Shape, dst.Shape())
	}
	copy(dst.AsFloat32(), rec.Data)
	return nil
}
