package optim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audionet-ml/audionet/internal/autodiff"
	"github.com/audionet-ml/audionet/internal/backend/cpu"
	"github.com/audionet-ml/audionet/internal/nn"
	"github.com/audionet-ml/audionet/internal/tensor"
)

type adBackend = *autodiff.Backend[*cpu.Backend]

func newParam(backend adBackend, data []float32) *nn.Parameter[adBackend] {
	t := tensor.FromSlice(data, tensor.Shape{len(data)}, backend)
	return nn.NewParameter[adBackend]("p", t)
}

func gradsFor(param *nn.Parameter[adBackend], g []float32) map[*tensor.RawTensor]*tensor.RawTensor {
	grad := tensor.MustNewRaw(param.Tensor().Shape(), tensor.Float32, tensor.CPU)
	copy(grad.AsFloat32(), g)
	return map[*tensor.RawTensor]*tensor.RawTensor{param.Tensor().Raw(): grad}
}

func TestSGDStep(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(backend, []float32{1, 2})

	opt := NewSGD([]*nn.Parameter[adBackend]{param}, SGDConfig{LR: 0.5})
	opt.Step(gradsFor(param, []float32{1, -2}))

	assert.InDeltaSlice(t, []float32{0.5, 3}, param.Tensor().Raw().AsFloat32(), 1e-6)
}

func TestSGDMomentumAccumulates(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(backend, []float32{0})

	opt := NewSGD([]*nn.Parameter[adBackend]{param}, SGDConfig{LR: 1, Momentum: 0.5})
	opt.Step(gradsFor(param, []float32{1})) // v=1, p=-1
	opt.Step(gradsFor(param, []float32{1})) // v=1.5, p=-2.5

	assert.InDelta(t, -2.5, float64(param.Tensor().Raw().AsFloat32()[0]), 1e-6)
}

func TestAdamFirstStepMovesByLR(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(backend, []float32{1})

	opt := NewAdam([]*nn.Parameter[adBackend]{param}, AdamConfig{LR: 0.1})
	opt.Step(gradsFor(param, []float32{2}))

	// Bias correction makes the first update approximately lr*sign(g).
	assert.InDelta(t, 0.9, float64(param.Tensor().Raw().AsFloat32()[0]), 1e-3)
	assert.Equal(t, 1, opt.Timestep())
}

func TestAdamSkipsParamsWithoutGrad(t *testing.T) {
	backend := autodiff.New(cpu.New())
	active := newParam(backend, []float32{1})
	frozen := newParam(backend, []float32{5})

	opt := NewAdam([]*nn.Parameter[adBackend]{active, frozen}, AdamConfig{LR: 0.1})
	opt.Step(gradsFor(active, []float32{1}))

	assert.Equal(t, float32(5), frozen.Tensor().Raw().AsFloat32()[0])
	assert.NotEqual(t, float32(1), active.Tensor().Raw().AsFloat32()[0])
}

func TestAdamConvergesOnQuadratic(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(backend, []float32{5})
	opt := NewAdam([]*nn.Parameter[adBackend]{param}, AdamConfig{LR: 0.1})

	// Minimize f(x) = x² by feeding its gradient 2x.
	for i := 0; i < 300; i++ {
		x := param.Tensor().Raw().AsFloat32()[0]
		opt.Step(gradsFor(param, []float32{2 * x}))
	}
	assert.InDelta(t, 0, float64(param.Tensor().Raw().AsFloat32()[0]), 1e-2)
}

func TestZeroGradClearsParameters(t *testing.T) {
	backend := autodiff.New(cpu.New())
	param := newParam(backend, []float32{1})
	param.SetGrad(tensor.Zeros[float32](tensor.Shape{1}, backend))
	require.NotNil(t, param.Grad())

	opt := NewAdam([]*nn.Parameter[adBackend]{param}, AdamConfig{})
	opt.ZeroGrad()
	assert.Nil(t, param.Grad())
}
