package nn

import (
	"fmt"
	"math"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// CrossEntropyLoss computes the mean softmax cross-entropy over a batch.
//
// It expects raw logits (batch, classes) and int32 class indices (batch),
// and uses the log-sum-exp trick throughout.
type CrossEntropyLoss[B tensor.Backend] struct {
	backend B
}

// NewCrossEntropyLoss creates the loss function.
func NewCrossEntropyLoss[B tensor.Backend](backend B) *CrossEntropyLoss[B] {
	return &CrossEntropyLoss[B]{backend: backend}
}

// Forward computes the scalar loss. Autodiff-aware backends expose a fused
// CrossEntropy operation that records on the tape; plain backends fall
// back to a direct computation with no gradient tracking.
func (c *CrossEntropyLoss[B]) Forward(
	logits *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
) *tensor.Tensor[float32, B] {
	type crossEntropyBackend interface {
		CrossEntropy(logits, targets *tensor.RawTensor) *tensor.RawTensor
	}
	if ad, ok := any(c.backend).(crossEntropyBackend); ok {
		raw := ad.CrossEntropy(logits.Raw(), targets.Raw())
		return tensor.New[float32, B](raw, c.backend)
	}

	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("crossentropy: expected 2D logits, got %v", shape))
	}
	batch, classes := shape[0], shape[1]
	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt32()
	if len(targetsData) != batch {
		panic(fmt.Sprintf("crossentropy: %d targets for batch of %d", len(targetsData), batch))
	}

	var total float64
	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		target := int(targetsData[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("crossentropy: target %d out of range [0, %d)", target, classes))
		}

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		var sumExp float64
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}
		total += float64(maxVal) + math.Log(sumExp) - float64(row[target])
	}

	raw := tensor.MustNewRaw(tensor.Shape{1}, tensor.Float32, c.backend.Device())
	raw.AsFloat32()[0] = float32(total / float64(batch))
	return tensor.New[float32, B](raw, c.backend)
}

// Parameters returns nil; loss functions have no trainable state.
func (c *CrossEntropyLoss[B]) Parameters() []*Parameter[B] { return nil }

// Accuracy returns the fraction of rows whose argmax matches the target.
// Ties resolve to the lowest class index.
func Accuracy[B tensor.Backend](logits *tensor.Tensor[float32, B], targets *tensor.Tensor[int32, B]) float64 {
	shape := logits.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("accuracy: expected 2D logits, got %v", shape))
	}
	batch, classes := shape[0], shape[1]
	if batch == 0 {
		return 0
	}

	logitsData := logits.Raw().AsFloat32()
	targetsData := targets.Raw().AsInt32()

	correct := 0
	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		best := 0
		for i := 1; i < classes; i++ {
			if row[i] > row[best] {
				best = i
			}
		}
		if int32(best) == targetsData[b] {
			correct++
		}
	}
	return float64(correct) / float64(batch)
}
