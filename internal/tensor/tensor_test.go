package tensor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBackend satisfies the metadata methods used by creation helpers.
// Math methods are never reached in this package's tests.
type fakeBackend struct{ Backend }

func (fakeBackend) Device() Device { return CPU }
func (fakeBackend) Name() string   { return "fake" }

func TestShapeNumElementsAndStrides(t *testing.T) {
	s := Shape{2, 3, 4}
	assert.Equal(t, 24, s.NumElements())
	assert.Equal(t, []int{12, 4, 1}, s.Strides())

	assert.True(t, s.Equal(Shape{2, 3, 4}))
	assert.False(t, s.Equal(Shape{2, 3}))
	assert.False(t, s.Equal(Shape{2, 3, 5}))
}

func TestNewRawRejectsInvalidShape(t *testing.T) {
	_, err := NewRaw(Shape{2, -1}, Float32, CPU)
	assert.Error(t, err)
}

func TestRawTensorTypedViews(t *testing.T) {
	r := MustNewRaw(Shape{2, 2}, Float32, CPU)
	data := r.AsFloat32()
	require.Len(t, data, 4)
	data[3] = 1.5
	assert.Equal(t, float32(1.5), r.AsFloat32()[3])

	assert.Panics(t, func() { r.AsInt32() })
}

func TestRawTensorCloneIsIndependent(t *testing.T) {
	r := MustNewRaw(Shape{3}, Float32, CPU)
	r.AsFloat32()[0] = 7

	c := r.Clone()
	c.AsFloat32()[0] = 9

	assert.Equal(t, float32(7), r.AsFloat32()[0])
	assert.Equal(t, float32(9), c.AsFloat32()[0])
}

func TestWithShapeSharesBuffer(t *testing.T) {
	r := MustNewRaw(Shape{2, 3}, Float32, CPU)
	v := r.WithShape(Shape{3, 2})
	require.NotNil(t, v)

	v.AsFloat32()[0] = 4
	assert.Equal(t, float32(4), r.AsFloat32()[0])
	assert.Equal(t, Shape{2, 3}, r.Shape())
	assert.Equal(t, Shape{3, 2}, v.Shape())
}

func TestFromSliceAndAccessors(t *testing.T) {
	b := fakeBackend{}
	tt := FromSlice([]float32{1, 2, 3, 4, 5, 6}, Shape{2, 3}, b)

	assert.Equal(t, Shape{2, 3}, tt.Shape())
	assert.Equal(t, float32(6), tt.At(1, 2))

	tt.Set(9, 0, 1)
	assert.Equal(t, float32(9), tt.Data()[1])

	assert.Panics(t, func() { FromSlice([]float32{1, 2}, Shape{3}, b) })
	assert.Panics(t, func() { tt.At(2, 0) })
	assert.Panics(t, func() { tt.Item() })
}

func TestItem(t *testing.T) {
	b := fakeBackend{}
	scalar := FromSlice([]float32{3.25}, Shape{1}, b)
	assert.Equal(t, float32(3.25), scalar.Item())
}

func TestBroadcastShapes(t *testing.T) {
	out, err := Broadcast(Shape{2, 1, 3}, Shape{4, 3})
	require.NoError(t, err)
	assert.Equal(t, Shape{2, 4, 3}, out)

	_, err = Broadcast(Shape{2, 3}, Shape{4})
	assert.Error(t, err)
}

func TestSeededInitIsReproducible(t *testing.T) {
	b := fakeBackend{}

	Seed(123)
	first := Uniform(Shape{16}, -1, 1, b).Data()
	firstCopy := make([]float32, len(first))
	copy(firstCopy, first)

	Seed(123)
	second := Uniform(Shape{16}, -1, 1, b).Data()

	assert.Equal(t, firstCopy, second)
}
