package wgan

import (
	rng "github.com/leesper/go_rng"
	"gorgonia.org/tensor"
)

// NoiseSource Factory for every freshly allocated random tensor the training loop needs:
// standard-normal latent batches and uniform interpolation coefficients.
// One source per run, seeded once, so runs with a fixed seed are reproducible.
type NoiseSource struct {
	gaussian *rng.GaussianGenerator
	uniform  *rng.UniformGenerator
}

func NewNoiseSource(seed int64) *NoiseSource {
	return &NoiseSource{
		gaussian: rng.NewGaussianGenerator(seed),
		uniform:  rng.NewUniformGenerator(seed + 1),
	}
}

// Normal Returns (batchSize, n) tensor.Dense filled with standard normal float64 values
func (s *NoiseSource) Normal(batchSize, n int) *tensor.Dense {
	data := make([]float64, batchSize*n)
	for i := range data {
		data[i] = s.gaussian.Gaussian(0.0, 1.0)
	}
	return tensor.New(tensor.WithShape(batchSize, n), tensor.WithBacking(data))
}

// Uniform01 Returns (batchSize, 1) tensor.Dense filled with float64 values in [0.0,1.0).
// One value per sample - interpolation coefficients for the gradient penalty are drawn
// per sample, never per batch.
func (s *NoiseSource) Uniform01(batchSize int) *tensor.Dense {
	data := make([]float64, batchSize)
	for i := range data {
		data[i] = s.uniform.Float64()
	}
	return tensor.New(tensor.WithShape(batchSize, 1), tensor.WithBacking(data))
}
