package dataset

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audionet-ml/audionet/internal/tensor"
)

// memDataset is an in-memory Dataset for loader tests. Sample i is a
// constant feature map filled with float32(i) and labeled i%5.
type memDataset struct {
	n     int
	shape tensor.Shape
	fail  map[int]error
}

func newMemDataset(n int) *memDataset {
	return &memDataset{n: n, shape: tensor.Shape{1, 2, 3}, fail: map[int]error{}}
}

func (m *memDataset) Len() int                  { return m.n }
func (m *memDataset) FeatureShape() tensor.Shape { return m.shape }

func (m *memDataset) Get(i int) (*tensor.RawTensor, int32, error) {
	if err := m.fail[i]; err != nil {
		return nil, 0, err
	}
	features := tensor.MustNewRaw(m.shape, tensor.Float32, tensor.CPU)
	data := features.AsFloat32()
	for j := range data {
		data[j] = float32(i)
	}
	return features, int32(i % 5), nil
}

func TestLoaderRejectsEmptyDataset(t *testing.T) {
	_, err := NewLoader(newMemDataset(0), 4, false, 1)
	assert.Error(t, err)
}

func TestLoaderBatchShapes(t *testing.T) {
	loader, err := NewLoader(newMemDataset(10), 4, false, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, loader.NumBatches())

	var sizes []int
	it := loader.Epoch(0)
	for it.Next() {
		batch := it.Batch()
		sizes = append(sizes, batch.Size)
		assert.Equal(t, tensor.Shape{batch.Size, 1, 2, 3}, batch.Features.Shape())
		assert.Equal(t, tensor.Shape{batch.Size}, batch.Labels.Shape())
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int{4, 4, 2}, sizes)
}

func TestLoaderPreservesOrderWithoutShuffle(t *testing.T) {
	loader, err := NewLoader(newMemDataset(6), 3, false, 1)
	require.NoError(t, err)

	it := loader.Epoch(0)
	require.True(t, it.Next())
	assert.Equal(t, []int32{0, 1, 2}, it.Batch().Labels.AsInt32())

	// Feature rows match their sample indices.
	feat := it.Batch().Features.AsFloat32()
	assert.Equal(t, float32(0), feat[0])
	assert.Equal(t, float32(2), feat[2*6])
}

func TestLoaderShuffleDeterministicPerSeedAndEpoch(t *testing.T) {
	ds := newMemDataset(32)

	labelsOf := func(seed int64, epoch int) []int32 {
		loader, err := NewLoader(ds, 32, true, seed)
		require.NoError(t, err)
		it := loader.Epoch(epoch)
		require.True(t, it.Next())
		return append([]int32(nil), it.Batch().Labels.AsInt32()...)
	}

	assert.Equal(t, labelsOf(7, 0), labelsOf(7, 0))
	assert.NotEqual(t, labelsOf(7, 0), labelsOf(7, 1))
	assert.NotEqual(t, labelsOf(7, 0), labelsOf(8, 0))
}

func TestLoaderPropagatesSampleErrors(t *testing.T) {
	ds := newMemDataset(4)
	wantErr := errors.New("corrupt sample")
	ds.fail[2] = wantErr

	loader, err := NewLoader(ds, 4, false, 1)
	require.NoError(t, err)

	it := loader.Epoch(0)
	assert.False(t, it.Next())
	assert.ErrorIs(t, it.Err(), wantErr)
}
