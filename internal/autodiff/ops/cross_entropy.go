package ops

import (
	"fmt"
	"math"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// CrossEntropyOp records the fused softmax cross-entropy loss.
//
// Forward:
//
//	loss = mean_b(-log_softmax(logits[b])[targets[b]])
//
// Backward:
//
//	dlogits[b,i] = (softmax(logits[b])[i] - onehot(targets[b])[i]) / batch
//
// Fusing the two keeps the gradient a single subtraction instead of
// backpropagating through an explicit softmax node.
type CrossEntropyOp struct {
	logits  *tensor.RawTensor // (batch, classes) float32
	targets *tensor.RawTensor // (batch) int32, not differentiated
	output  *tensor.RawTensor // scalar loss
}

func NewCrossEntropyOp(logits, targets, output *tensor.RawTensor) *CrossEntropyOp {
	return &CrossEntropyOp{logits: logits, targets: targets, output: output}
}

func (op *CrossEntropyOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.logits} }
func (op *CrossEntropyOp) Output() *tensor.RawTensor   { return op.output }

func (op *CrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	batch, classes := shape[0], shape[1]

	grad := tensor.MustNewRaw(shape, tensor.Float32, op.logits.Device())
	logitsData := op.logits.AsFloat32()
	targetsData := op.targets.AsInt32()
	gradData := grad.AsFloat32()
	upstream := outputGrad.AsFloat32()[0]

	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		probs := softmaxRow(row)
		target := int(targetsData[b])
		for i := 0; i < classes; i++ {
			g := probs[i]
			if i == target {
				g -= 1
			}
			gradData[b*classes+i] = upstream * g / float32(batch)
		}
	}
	return []*tensor.RawTensor{grad}
}

// CrossEntropyForward computes the mean negative log-likelihood of the
// target classes using the log-sum-exp trick.
func CrossEntropyForward(logits, targets *tensor.RawTensor, device tensor.Device) *tensor.RawTensor {
	ls, ts := logits.Shape(), targets.Shape()
	if len(ls) != 2 || len(ts) != 1 {
		panic(fmt.Sprintf("crossentropy: want 2D logits and 1D targets, got %v and %v", ls, ts))
	}
	batch, classes := ls[0], ls[1]
	if ts[0] != batch {
		panic(fmt.Sprintf("crossentropy: batch mismatch: logits %d, targets %d", batch, ts[0]))
	}

	logitsData := logits.AsFloat32()
	targetsData := targets.AsInt32()

	var total float64
	for b := 0; b < batch; b++ {
		row := logitsData[b*classes : (b+1)*classes]
		target := int(targetsData[b])
		if target < 0 || target >= classes {
			panic(fmt.Sprintf("crossentropy: target %d out of range [0, %d)", target, classes))
		}

		maxVal := row[0]
		for i := 1; i < classes; i++ {
			if row[i] > maxVal {
				maxVal = row[i]
			}
		}
		var sumExp float64
		for i := 0; i < classes; i++ {
			sumExp += math.Exp(float64(row[i] - maxVal))
		}
		logSumExp := float64(maxVal) + math.Log(sumExp)
		total += logSumExp - float64(row[target])
	}

	out := tensor.MustNewRaw(tensor.Shape{1}, tensor.Float32, device)
	out.AsFloat32()[0] = float32(total / float64(batch))
	return out
}

// softmaxRow computes a numerically stable softmax of one logit row.
func softmaxRow(row []float32) []float32 {
	probs := make([]float32, len(row))
	maxVal := row[0]
	for _, v := range row[1:] {
		if v > maxVal {
			maxVal = v
		}
	}
	var sum float32
	for i, v := range row {
		p := float32(math.Exp(float64(v - maxVal)))
		probs[i] = p
		sum += p
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}
