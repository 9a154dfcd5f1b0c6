package ops

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// reduceBroadcast sums a gradient back down to the shape an operand had
// before broadcasting. Broadcasting aligns shapes from the right, so
// leading extra dimensions are summed away first, then any dimension the
// target holds at size 1.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad.Clone()
	}

	result := grad
	for len(result.Shape()) > len(targetShape) {
		result = sumAlongDimension(result, 0, true)
	}
	for d := 0; d < len(targetShape); d++ {
		if targetShape[d] == 1 && result.Shape()[d] > 1 {
			result = sumAlongDimension(result, d, false)
		}
	}
	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// sumAlongDimension sums float32 data along one dimension. With drop set
// the dimension is removed from the shape, otherwise it is kept at size 1.
func sumAlongDimension(t *tensor.RawTensor, dim int, drop bool) *tensor.RawTensor {
	shape := t.Shape()
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("sumAlongDimension: dimension %d out of range for %v", dim, shape))
	}

	outShape := shape.Clone()
	if drop {
		outShape = append(outShape[:dim], outShape[dim+1:]...)
	} else {
		outShape[dim] = 1
	}
	out := tensor.MustNewRaw(outShape, tensor.Float32, t.Device())

	data, outData := t.AsFloat32(), out.AsFloat32()

	// Flatten the shape around dim into (outer, n, inner) blocks.
	outer, inner := 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	n := shape[dim]

	for o := 0; o < outer; o++ {
		base := o * n * inner
		outBase := o * inner
		for k := 0; k < n; k++ {
			row := base + k*inner
			for i := 0; i < inner; i++ {
				outData[outBase+i] += data[row+i]
			}
		}
	}
	return out
}

// scaled returns grad * s as a fresh tensor.
func scaled(grad *tensor.RawTensor, s float32) *tensor.RawTensor {
	out := tensor.MustNewRaw(grad.Shape(), tensor.Float32, grad.Device())
	gData, outData := grad.AsFloat32(), out.AsFloat32()
	for i, v := range gData {
		outData[i] = v * s
	}
	return out
}
