package nn

import (
	"fmt"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// Linear is a fully connected layer computing y = x @ Wᵀ + b.
//
// Weight shape is (outFeatures, inFeatures), bias is (outFeatures).
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B]
	bias        *Parameter[B]
	backend     B
}

// NewLinear creates a linear layer with Xavier weights and zero bias.
func NewLinear[B tensor.Backend](name string, inFeatures, outFeatures int, backend B) *Linear[B] {
	if inFeatures <= 0 || outFeatures <= 0 {
		panic(fmt.Sprintf("linear: invalid features in=%d out=%d", inFeatures, outFeatures))
	}

	weight := Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend)
	bias := Zeros(tensor.Shape{outFeatures}, backend)

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      NewParameter(name+".weight", weight),
		bias:        NewParameter(name+".bias", bias),
		backend:     backend,
	}
}

// Forward computes the affine transform for a (batch, inFeatures) input.
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("linear: expected 2D input, got %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("linear: input has %d features, layer expects %d", shape[1], l.inFeatures))
	}

	// Transposing through the backend records the op, so the weight
	// parameter itself receives a gradient.
	wT := l.weight.Tensor().Transpose()
	return input.MatMul(wT).Add(l.bias.Tensor())
}

// Parameters returns the weight and bias.
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

func (l *Linear[B]) String() string {
	return fmt.Sprintf("Linear(in=%d, out=%d)", l.inFeatures, l.outFeatures)
}
