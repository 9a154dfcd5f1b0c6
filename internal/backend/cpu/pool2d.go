package cpu

import (
	"fmt"
	"math"

	"github.com/audionet-ml/audionet/internal/parallel"
	"github.com/audionet-ml/audionet/internal/tensor"
)

// MaxPool2D applies 2D max pooling over (N, C, H, W).
func (c *Backend) MaxPool2D(input *tensor.RawTensor, kernelSize, stride int) *tensor.RawTensor {
	out, _ := c.maxPool(input, kernelSize, stride, false)
	return out
}

// MaxIndices2D returns, for every pooled output element, the flat index
// into the input of the maximum it selected.
func (c *Backend) MaxIndices2D(input *tensor.RawTensor, kernelSize, stride int) []int {
	_, idx := c.maxPool(input, kernelSize, stride, true)
	return idx
}

func (c *Backend) maxPool(input *tensor.RawTensor, kernelSize, stride int, wantIndices bool) (*tensor.RawTensor, []int) {
	is := input.Shape()
	if len(is) != 4 {
		panic(fmt.Sprintf("maxpool2d: requires 4D input, got %v", is))
	}
	n, ch, h, w := is[0], is[1], is[2], is[3]
	hout := (h-kernelSize)/stride + 1
	wout := (w-kernelSize)/stride + 1
	if hout <= 0 || wout <= 0 {
		panic(fmt.Sprintf("maxpool2d: window %d too large for input %dx%d", kernelSize, h, w))
	}

	out := tensor.MustNewRaw(tensor.Shape{n, ch, hout, wout}, tensor.Float32, c.Device())
	inData, outData := input.AsFloat32(), out.AsFloat32()
	var indices []int
	if wantIndices {
		indices = make([]int, n*ch*hout*wout)
	}

	parallel.For(n*ch, c.par, func(job int) {
		inBase := job * h * w
		outBase := job * hout * wout
		for oh := 0; oh < hout; oh++ {
			for ow := 0; ow < wout; ow++ {
				best := float32(math.Inf(-1))
				bestIdx := -1
				for fy := 0; fy < kernelSize; fy++ {
					row := inBase + (oh*stride+fy)*w + ow*stride
					for fx := 0; fx < kernelSize; fx++ {
						if v := inData[row+fx]; v > best {
							best = v
							bestIdx = row + fx
						}
					}
				}
				o := outBase + oh*wout + ow
				outData[o] = best
				if wantIndices {
					indices[o] = bestIdx
				}
			}
		}
	})
	return out, indices
}

// MaxPool2DBackward routes each output gradient back to the input
// position that won the corresponding max window.
func (c *Backend) MaxPool2DBackward(input, grad *tensor.RawTensor, maxIndices []int) *tensor.RawTensor {
	out := tensor.MustNewRaw(input.Shape(), tensor.Float32, c.Device())
	gData, outData := grad.AsFloat32(), out.AsFloat32()
	for i, src := range maxIndices {
		outData[src] += gData[i]
	}
	return out
}

// GlobalAvgPool2D averages each (H, W) plane down to a single value,
// producing (N, C, 1, 1).
func (c *Backend) GlobalAvgPool2D(input *tensor.RawTensor) *tensor.RawTensor {
	is := input.Shape()
	if len(is) != 4 {
		panic(fmt.Sprintf("globalavgpool2d: requires 4D input, got %v", is))
	}
	n, ch, h, w := is[0], is[1], is[2], is[3]
	plane := h * w

	out := tensor.MustNewRaw(tensor.Shape{n, ch, 1, 1}, tensor.Float32, c.Device())
	inData, outData := input.AsFloat32(), out.AsFloat32()

	parallel.For(n*ch, c.par, func(job int) {
		var sum float32
		base := job * plane
		for i := 0; i < plane; i++ {
			sum += inData[base+i]
		}
		outData[job] = sum / float32(plane)
	})
	return out
}
