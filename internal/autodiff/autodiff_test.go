package autodiff

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audionet-ml/audionet/internal/backend/cpu"
	"github.com/audionet-ml/audionet/internal/tensor"
)

func raw(shape tensor.Shape, data []float32) *tensor.RawTensor {
	r := tensor.MustNewRaw(shape, tensor.Float32, tensor.CPU)
	copy(r.AsFloat32(), data)
	return r
}

func ones(shape tensor.Shape) *tensor.RawTensor {
	r := tensor.MustNewRaw(shape, tensor.Float32, tensor.CPU)
	data := r.AsFloat32()
	for i := range data {
		data[i] = 1
	}
	return r
}

func TestTapeRecordsOnlyWhileRecording(t *testing.T) {
	ad := New(cpu.New())
	a := raw(tensor.Shape{2}, []float32{1, 2})
	b := raw(tensor.Shape{2}, []float32{3, 4})

	ad.Add(a, b)
	assert.Equal(t, 0, ad.Tape().NumOps())

	ad.Tape().StartRecording()
	ad.Add(a, b)
	assert.Equal(t, 1, ad.Tape().NumOps())

	ad.Tape().Clear()
	assert.Equal(t, 0, ad.Tape().NumOps())
	assert.True(t, ad.Tape().IsRecording())
}

func TestBackwardSquare(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := raw(tensor.Shape{3}, []float32{2, -1, 0.5})
	y := ad.Mul(x, x)

	grads := ad.Tape().Backward(ones(y.Shape()), ad)
	require.Contains(t, grads, x)

	// d(x²)/dx = 2x
	assert.InDeltaSlice(t, []float32{4, -2, 1}, grads[x].AsFloat32(), 1e-6)
}

func TestBackwardAccumulatesSharedInput(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := raw(tensor.Shape{2}, []float32{1, 2})
	a := raw(tensor.Shape{2}, []float32{3, 5})
	// y = x*a + x, so dy/dx = a + 1
	y := ad.Add(ad.Mul(x, a), x)

	grads := ad.Tape().Backward(ones(y.Shape()), ad)
	assert.InDeltaSlice(t, []float32{4, 6}, grads[x].AsFloat32(), 1e-6)
}

func TestBackwardMatMul(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	a := raw(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	b := raw(tensor.Shape{2, 2}, []float32{5, 6, 7, 8})
	c := ad.MatMul(a, b)

	grads := ad.Tape().Backward(ones(c.Shape()), ad)

	// dA = grad @ Bᵀ with grad all-ones: each row sums B's rows.
	assert.InDeltaSlice(t, []float32{11, 15, 11, 15}, grads[a].AsFloat32(), 1e-6)
	assert.InDeltaSlice(t, []float32{4, 4, 6, 6}, grads[b].AsFloat32(), 1e-6)
}

func TestBackwardBroadcastReduces(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := raw(tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
	bias := raw(tensor.Shape{3}, []float32{10, 20, 30})
	y := ad.Add(x, bias)

	grads := ad.Tape().Backward(ones(y.Shape()), ad)
	require.Contains(t, grads, bias)
	assert.Equal(t, tensor.Shape{3}, grads[bias].Shape())
	assert.InDeltaSlice(t, []float32{2, 2, 2}, grads[bias].AsFloat32(), 1e-6)
}

func TestBackwardReLUMasksGradient(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := raw(tensor.Shape{4}, []float32{-1, 2, -3, 4})
	y := ad.ReLU(x)

	grads := ad.Tape().Backward(ones(y.Shape()), ad)
	assert.Equal(t, []float32{0, 1, 0, 1}, grads[x].AsFloat32())
}

func TestBackwardThroughReshape(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	x := raw(tensor.Shape{2, 2}, []float32{1, 2, 3, 4})
	y := ad.Reshape(x, tensor.Shape{4})
	z := ad.Mul(y, y)

	grads := ad.Tape().Backward(ones(z.Shape()), ad)
	require.Contains(t, grads, x)
	assert.Equal(t, tensor.Shape{2, 2}, grads[x].Shape())
	assert.InDeltaSlice(t, []float32{2, 4, 6, 8}, grads[x].AsFloat32(), 1e-6)
}

func TestCrossEntropyGradient(t *testing.T) {
	ad := New(cpu.New())
	ad.Tape().StartRecording()

	logits := raw(tensor.Shape{1, 3}, []float32{1, 2, 3})
	targets := tensor.MustNewRaw(tensor.Shape{1}, tensor.Int32, tensor.CPU)
	targets.AsInt32()[0] = 2

	loss := ad.CrossEntropy(logits, targets)
	require.Equal(t, tensor.Shape{1}, loss.Shape())

	grads := ad.Tape().Backward(ones(loss.Shape()), ad)
	g := grads[logits].AsFloat32()

	// Gradient is softmax - onehot; it sums to zero and is negative only
	// at the target class.
	assert.InDelta(t, 0, float64(g[0]+g[1]+g[2]), 1e-6)
	assert.Positive(t, g[0])
	assert.Positive(t, g[1])
	assert.Negative(t, g[2])
}

func TestBatchNormGradientCheck(t *testing.T) {
	base := cpu.New()
	input := raw(tensor.Shape{2, 1, 1, 3}, []float32{0.5, -1, 2, 1.5, 0, -0.5})
	gamma := raw(tensor.Shape{1}, []float32{1.5})
	beta := raw(tensor.Shape{1}, []float32{0.2})
	const eps = 1e-5

	forward := func() float64 {
		mean, variance := base.BatchStats2D(input)
		out := base.BatchNorm2D(input, gamma, beta, mean, variance, eps)
		var s float64
		for i, v := range out.AsFloat32() {
			// Non-uniform weights so per-element gradients differ.
			s += float64(v) * float64(i+1)
		}
		return s
	}

	ad := New(base)
	ad.Tape().StartRecording()
	mean, variance := ad.BatchStats2D(input)
	out := ad.BatchNorm2D(input, gamma, beta, mean, variance, eps)

	seed := tensor.MustNewRaw(out.Shape(), tensor.Float32, tensor.CPU)
	for i := range seed.AsFloat32() {
		seed.AsFloat32()[i] = float32(i + 1)
	}
	grads := ad.Tape().Backward(seed, ad)

	const h = 1e-2
	for _, p := range []*tensor.RawTensor{input, gamma, beta} {
		require.Contains(t, grads, p)
		data := p.AsFloat32()
		analytic := grads[p].AsFloat32()
		for i := range data {
			orig := data[i]
			data[i] = orig + h
			plus := forward()
			data[i] = orig - h
			minus := forward()
			data[i] = orig
			assert.InDelta(t, (plus-minus)/(2*h), float64(analytic[i]), 5e-2)
		}
	}
}
