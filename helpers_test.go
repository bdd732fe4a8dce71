package wgan

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func testConfig() *Config {
	return &Config{
		Dataset:              "MNIST",
		NNoiseFeatures:       4,
		Epochs:               1,
		DiscSteps:            1,
		GenSteps:             1,
		BatchSize:            4,
		PrintEvery:           1,
		Checkpoints:          1,
		RollingWindow:        2,
		DiscriminatorFilters: 2,
		GeneratorFilters:     2,
		LambdaPen:            10.0,
		ImageSize:            8,
		DataFolder:           "./data",
		Seed:                 42,
	}
}

// testDataset Builds an in-memory single-channel 8x8 dataset of n samples,
// each filled with its own constant value in [-1;1]
func testDataset(t *testing.T, n int) *TensorDataset {
	t.Helper()
	backing := make([]float64, n*8*8)
	for i := 0; i < n; i++ {
		v := float64(i+1)/float64(n+1)*2 - 1
		for j := 0; j < 8*8; j++ {
			backing[i*8*8+j] = v
		}
	}
	ds, err := NewTensorDataset(tensor.New(tensor.WithShape(n, 1, 8, 8), tensor.WithBacking(backing)), nil)
	require.NoError(t, err)
	return ds
}

func testRunDir(t *testing.T) *RunDir {
	t.Helper()
	r := &RunDir{Root: filepath.Join(t.TempDir(), "run")}
	for _, dir := range []string{r.Root, r.VideoDir(), r.TensorboardDir()} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}
	return r
}

// snapshotParams Clones current backing data of every parameter with given prefix
func snapshotParams(ps *ParamStore, prefix string) map[string][]float64 {
	out := map[string][]float64{}
	for _, name := range ps.Names() {
		if len(name) < len(prefix) || name[:len(prefix)] != prefix {
			continue
		}
		dense, _ := ps.Get(name)
		data := dense.Data().([]float64)
		cloned := make([]float64, len(data))
		copy(cloned, data)
		out[name] = cloned
	}
	return out
}
