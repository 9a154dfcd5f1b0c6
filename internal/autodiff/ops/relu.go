package ops

import "github.com/audionet-ml/audionet/internal/tensor"

// ReLUOp records y = max(0, x). Gradient passes through only where the
// input was positive.
type ReLUOp struct {
	input, output *tensor.RawTensor
}

func NewReLUOp(input, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{input: input, output: output}
}

func (op *ReLUOp) Inputs() []*tensor.RawTensor { return []*tensor.RawTensor{op.input} }
func (op *ReLUOp) Output() *tensor.RawTensor   { return op.output }

func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := tensor.MustNewRaw(op.input.Shape(), tensor.Float32, op.input.Device())
	inData, gData, outData := op.input.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
	for i, v := range inData {
		if v > 0 {
			outData[i] = gData[i]
		}
	}
	return []*tensor.RawTensor{grad}
}
