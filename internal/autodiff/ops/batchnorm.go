package ops

import (
	"math"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// BatchNorm2DOp records y = gamma*(x-mean)/sqrt(var+eps) + beta over a
// (N, C, H, W) input with per-channel statistics.
//
// The backward pass assumes the statistics were computed from this batch,
// which couples every element of a channel to its mean and variance:
//
//	dx = gamma*invstd * (dout - Σdout/m - xhat*Σ(dout*xhat)/m)
//
// Inference-mode normalization uses fixed running statistics and is never
// recorded, so that case does not reach this backward.
type BatchNorm2DOp struct {
	input, gamma, beta *tensor.RawTensor
	mean, variance     *tensor.RawTensor
	output             *tensor.RawTensor
	eps                float32
}

func NewBatchNorm2DOp(input, gamma, beta, mean, variance, output *tensor.RawTensor, eps float32) *BatchNorm2DOp {
	return &BatchNorm2DOp{
		input: input, gamma: gamma, beta: beta,
		mean: mean, variance: variance,
		output: output, eps: eps,
	}
}

func (op *BatchNorm2DOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input, op.gamma, op.beta}
}

func (op *BatchNorm2DOp) Output() *tensor.RawTensor { return op.output }

func (op *BatchNorm2DOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	is := op.input.Shape()
	n, ch, h, w := is[0], is[1], is[2], is[3]
	plane := h * w
	m := float32(n * plane)

	gradInput := tensor.MustNewRaw(is, tensor.Float32, op.input.Device())
	gradGamma := tensor.MustNewRaw(tensor.Shape{ch}, tensor.Float32, op.input.Device())
	gradBeta := tensor.MustNewRaw(tensor.Shape{ch}, tensor.Float32, op.input.Device())

	inData, gData := op.input.AsFloat32(), outputGrad.AsFloat32()
	gammaData := op.gamma.AsFloat32()
	mData, vData := op.mean.AsFloat32(), op.variance.AsFloat32()
	giData, ggData, gbData := gradInput.AsFloat32(), gradGamma.AsFloat32(), gradBeta.AsFloat32()

	for k := 0; k < ch; k++ {
		invStd := float32(1.0 / math.Sqrt(float64(vData[k]+op.eps)))
		mu := mData[k]

		var sumG, sumGX float32
		for b := 0; b < n; b++ {
			base := (b*ch + k) * plane
			for i := 0; i < plane; i++ {
				g := gData[base+i]
				sumG += g
				sumGX += g * (inData[base+i] - mu) * invStd
			}
		}
		ggData[k] = sumGX
		gbData[k] = sumG

		scale := gammaData[k] * invStd
		meanG := sumG / m
		meanGX := sumGX / m
		for b := 0; b < n; b++ {
			base := (b*ch + k) * plane
			for i := 0; i < plane; i++ {
				xhat := (inData[base+i] - mu) * invStd
				giData[base+i] = scale * (gData[base+i] - meanG - xhat*meanGX)
			}
		}
	}
	return []*tensor.RawTensor{gradInput, gradGamma, gradBeta}
}
