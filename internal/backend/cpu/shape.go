package cpu

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// ReLU applies max(0, x) element-wise.
func (c *Backend) ReLU(input *tensor.RawTensor) *tensor.RawTensor {
	out := tensor.MustNewRaw(input.Shape(), tensor.Float32, c.Device())
	inData, outData := input.AsFloat32(), out.AsFloat32()
	for i, v := range inData {
		if v > 0 {
			outData[i] = v
		}
	}
	return out
}

// Reshape returns a view of the input with a new shape. The element count
// must match; the underlying buffer is shared.
func (c *Backend) Reshape(input *tensor.RawTensor, shape tensor.Shape) *tensor.RawTensor {
	return input.WithShape(shape)
}

// Transpose permutes the input's axes. With no axes given the order is
// reversed.
func (c *Backend) Transpose(input *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	is := input.Shape()
	nd := len(is)
	if len(axes) == 0 {
		axes = make([]int, nd)
		for i := range axes {
			axes[i] = nd - 1 - i
		}
	}
	if len(axes) != nd {
		panic(fmt.Sprintf("transpose: got %d axes for %dD tensor", len(axes), nd))
	}
	seen := make([]bool, nd)
	outShape := make(tensor.Shape, nd)
	for i, ax := range axes {
		if ax < 0 || ax >= nd || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v for shape %v", axes, is))
		}
		seen[ax] = true
		outShape[i] = is[ax]
	}

	out := tensor.MustNewRaw(outShape, tensor.Float32, c.Device())
	inData, outData := input.AsFloat32(), out.AsFloat32()
	inStrides := is.Strides()
	outStrides := outShape.Strides()

	n := is.NumElements()
	for i := 0; i < n; i++ {
		rem := i
		src := 0
		for d := 0; d < nd; d++ {
			idx := rem / outStrides[d]
			rem %= outStrides[d]
			src += idx * inStrides[axes[d]]
		}
		outData[i] = inData[src]
	}
	return out
}
