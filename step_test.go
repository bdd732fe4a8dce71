package wgan

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func testRealBatch(t *testing.T, cfg *Config) *tensor.Dense {
	t.Helper()
	ds := testDataset(t, cfg.BatchSize)
	loader, err := NewLoader(ds, cfg.BatchSize, cfg.Seed)
	require.NoError(t, err)
	loader.Reset()
	batch, _, err := loader.Next()
	require.NoError(t, err)
	return batch
}

func TestDiscriminatorStepUpdatesOnlyCritic(t *testing.T) {
	cfg := testConfig()
	noise := NewNoiseSource(cfg.Seed)
	ps := NewParamStore()
	step, err := NewDiscriminatorStep(ps, cfg, 1, noise)
	require.NoError(t, err)
	defer step.Close()

	discBefore := snapshotParams(ps, "discriminator")
	genBefore := snapshotParams(ps, "generator")
	require.NotEmpty(t, discBefore)
	require.NotEmpty(t, genBefore)

	step.Critic().SetTrainable(true)
	real := testRealBatch(t, cfg)
	loss, wdist, penalty, err := step.Run(real)
	require.NoError(t, err)

	assert.False(t, math.IsNaN(loss))
	assert.False(t, math.IsNaN(wdist))
	assert.GreaterOrEqual(t, penalty, 0.0)
	assert.NotEqual(t, discBefore, snapshotParams(ps, "discriminator"))
	assert.Equal(t, genBefore, snapshotParams(ps, "generator"))
}

func TestDiscriminatorStepRefusesFrozenCritic(t *testing.T) {
	cfg := testConfig()
	noise := NewNoiseSource(cfg.Seed)
	step, err := NewDiscriminatorStep(NewParamStore(), cfg, 1, noise)
	require.NoError(t, err)
	defer step.Close()

	step.Critic().SetTrainable(false)
	_, _, _, err = step.Run(testRealBatch(t, cfg))
	assert.Error(t, err)
}

func TestDiscriminatorStepRejectsBadBatch(t *testing.T) {
	cfg := testConfig()
	noise := NewNoiseSource(cfg.Seed)
	step, err := NewDiscriminatorStep(NewParamStore(), cfg, 1, noise)
	require.NoError(t, err)
	defer step.Close()
	step.Critic().SetTrainable(true)

	_, _, _, err = step.Run(nil)
	assert.Error(t, err)

	wrong := testConfig()
	wrong.BatchSize = cfg.BatchSize * 2
	_, _, _, err = step.Run(testRealBatch(t, wrong))
	assert.Error(t, err)
}

func TestDiscriminatorStepBackpropagatesPenalty(t *testing.T) {
	cfg := testConfig()
	noise := NewNoiseSource(cfg.Seed)
	ps := NewParamStore()
	step, err := NewDiscriminatorStep(ps, cfg, 1, noise)
	require.NoError(t, err)
	defer step.Close()

	// Mirror the freshly initialized weights into a second store and run the same
	// update with the penalty switched off. Identical seeds, batch and weights:
	// any difference in the resulting critic parameters comes from the penalty
	// term's gradients alone.
	noPenCfg := testConfig()
	noPenCfg.LambdaPen = 0
	noPenPs := NewParamStore()
	for _, name := range ps.Names() {
		dense, _ := ps.Get(name)
		noPenPs.Set(name, dense.Clone().(*tensor.Dense))
	}
	noPenNoise := NewNoiseSource(cfg.Seed)
	noPenStep, err := NewDiscriminatorStep(noPenPs, noPenCfg, 1, noPenNoise)
	require.NoError(t, err)
	defer noPenStep.Close()

	real := testRealBatch(t, cfg)
	step.Critic().SetTrainable(true)
	noPenStep.Critic().SetTrainable(true)

	_, _, penalty, err := step.Run(real)
	require.NoError(t, err)
	_, _, noPenalty, err := noPenStep.Run(real)
	require.NoError(t, err)

	assert.Greater(t, penalty, 0.0)
	assert.Equal(t, 0.0, noPenalty)
	assert.NotEqual(t, snapshotParams(ps, "discriminator"), snapshotParams(noPenPs, "discriminator"))
}

func TestGeneratorStepUpdatesOnlyGenerator(t *testing.T) {
	cfg := testConfig()
	noise := NewNoiseSource(cfg.Seed)
	ps := NewParamStore()
	discStep, err := NewDiscriminatorStep(ps, cfg, 1, noise)
	require.NoError(t, err)
	defer discStep.Close()
	genStep, err := NewGeneratorStep(ps, cfg, 1, noise)
	require.NoError(t, err)
	defer genStep.Close()

	discBefore := snapshotParams(ps, "discriminator")
	genBefore := snapshotParams(ps, "generator")

	discStep.Critic().SetTrainable(false)
	genStep.Critic().SetTrainable(false)
	genStep.Generator().SetTrainable(true)
	loss, err := genStep.Run()
	require.NoError(t, err)

	assert.False(t, math.IsNaN(loss))
	assert.Equal(t, discBefore, snapshotParams(ps, "discriminator"))
	assert.NotEqual(t, genBefore, snapshotParams(ps, "generator"))
}

func TestGeneratorStepRefusesTrainableCritic(t *testing.T) {
	cfg := testConfig()
	noise := NewNoiseSource(cfg.Seed)
	genStep, err := NewGeneratorStep(NewParamStore(), cfg, 1, noise)
	require.NoError(t, err)
	defer genStep.Close()

	genStep.Critic().SetTrainable(true)
	genStep.Generator().SetTrainable(true)
	_, err = genStep.Run()
	assert.Error(t, err)
}
