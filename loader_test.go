package wgan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestLoaderBatchCount(t *testing.T) {
	loader, err := NewLoader(testDataset(t, 3), 2, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.Len())

	loader, err = NewLoader(testDataset(t, 3), 8, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, loader.Len())

	loader, err = NewLoader(testDataset(t, 8), 4, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, loader.Len())
}

func TestLoaderWrapsTailBatch(t *testing.T) {
	loader, err := NewLoader(testDataset(t, 3), 2, 1)
	require.NoError(t, err)
	loader.Reset()

	seen := map[float64]bool{}
	batches := 0
	for loader.HasNext() {
		batch, _, err := loader.Next()
		require.NoError(t, err)
		assert.Equal(t, []int{2, 1, 8, 8}, []int(batch.Shape()))
		for _, v := range batch.Data().([]float64) {
			seen[v] = true
		}
		batches++
	}
	assert.Equal(t, 2, batches)
	// 4 slots over 3 samples: every sample appears, one of them twice
	assert.Len(t, seen, 3)
}

func TestLoaderExhaustion(t *testing.T) {
	loader, err := NewLoader(testDataset(t, 2), 2, 1)
	require.NoError(t, err)
	loader.Reset()
	_, _, err = loader.Next()
	require.NoError(t, err)

	assert.False(t, loader.HasNext())
	_, _, err = loader.Next()
	assert.Error(t, err)

	loader.Reset()
	assert.True(t, loader.HasNext())
	_, _, err = loader.Next()
	assert.NoError(t, err)
}

type emptyDataset struct{}

func (emptyDataset) Len() int                                   { return 0 }
func (emptyDataset) Sample(int) (*tensor.Dense, float64, error) { return nil, 0, nil }
func (emptyDataset) Channels() int                              { return 1 }
func (emptyDataset) Side() int                                  { return 8 }

func TestLoaderRejectsEmptyDataset(t *testing.T) {
	_, err := NewLoader(emptyDataset{}, 2, 1)
	assert.Error(t, err)
}

func TestOpenDatasetRejectsUnknownName(t *testing.T) {
	_, err := OpenDataset("NO_SUCH_SET", t.TempDir(), 32)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Dataset not known")
}
