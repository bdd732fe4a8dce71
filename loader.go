package wgan

import (
	"fmt"
	"math/rand"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Loader Batching iterator over a Dataset. Shuffles sample order each epoch and
// always yields batches of exactly batchSize samples: the expression graphs are
// compiled for a fixed batch shape, so a short tail batch wraps around to the
// beginning of the (already shuffled) epoch instead of shrinking.
//
// Single execution context, no locking: the training loop is strictly sequential.
type Loader struct {
	ds        Dataset
	batchSize int
	indices   []int
	pos       int
	rnd       *rand.Rand
}

func NewLoader(ds Dataset, batchSize int, seed int64) (*Loader, error) {
	if ds.Len() == 0 {
		return nil, fmt.Errorf("Dataset is empty")
	}
	if batchSize <= 0 {
		return nil, fmt.Errorf("Batch size must be > 0, got %d", batchSize)
	}
	indices := make([]int, ds.Len())
	for i := range indices {
		indices[i] = i
	}
	return &Loader{
		ds:        ds,
		batchSize: batchSize,
		indices:   indices,
		rnd:       rand.New(rand.NewSource(seed)),
	}, nil
}

// Len Returns the number of batches in one epoch
func (l *Loader) Len() int {
	return (l.ds.Len() + l.batchSize - 1) / l.batchSize
}

// Reset Rewinds the batch cursor and reshuffles sample order for a new epoch
func (l *Loader) Reset() {
	l.pos = 0
	l.rnd.Shuffle(len(l.indices), func(i, j int) {
		l.indices[i], l.indices[j] = l.indices[j], l.indices[i]
	})
}

// HasNext Reports whether unconsumed batches remain in the current epoch
func (l *Loader) HasNext() bool {
	return l.pos < len(l.indices)
}

// Next Returns the next (batchSize, channels, side, side) image batch and its labels
func (l *Loader) Next() (*tensor.Dense, []float64, error) {
	if !l.HasNext() {
		return nil, nil, fmt.Errorf("Epoch is exhausted, Reset() must be called first")
	}
	channels, side := l.ds.Channels(), l.ds.Side()
	sampleSize := channels * side * side
	backing := make([]float64, l.batchSize*sampleSize)
	labels := make([]float64, l.batchSize)
	for b := 0; b < l.batchSize; b++ {
		// Wrap the tail batch around to keep the compiled batch shape
		idx := l.indices[(l.pos+b)%len(l.indices)]
		sample, label, err := l.ds.Sample(idx)
		if err != nil {
			return nil, nil, errors.Wrap(err, fmt.Sprintf("Can't load sample #%d", idx))
		}
		data, ok := sample.Data().([]float64)
		if !ok {
			return nil, nil, fmt.Errorf("Sample #%d backing is not []float64 but %T", idx, sample.Data())
		}
		if len(data) != sampleSize {
			return nil, nil, fmt.Errorf("Sample #%d has %d elements, want %d", idx, len(data), sampleSize)
		}
		copy(backing[b*sampleSize:(b+1)*sampleSize], data)
		labels[b] = label
	}
	l.pos += l.batchSize
	batch := tensor.New(tensor.WithShape(l.batchSize, channels, side, side), tensor.WithBacking(backing))
	return batch, labels, nil
}
