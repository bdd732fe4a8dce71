package wgan

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestTrainerSingleWrappedBatch(t *testing.T) {
	cfg := testConfig()
	// Fewer samples than the batch size: the loader wraps the tail, the epoch
	// has exactly one batch, so the critic phase runs once despite the warmup
	// schedule asking for 100 steps.
	ds := testDataset(t, 3)
	run := testRunDir(t)

	trainer, err := NewTrainer(cfg, run, ds, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer trainer.Close()
	require.NoError(t, trainer.Run())

	st := trainer.State()
	assert.Len(t, st.DiscLosses, 1)
	assert.Len(t, st.WassersteinDists, 1)
	assert.Len(t, st.GradientPenalties, 1)
	assert.Len(t, st.GenLosses, 1)
	assert.Equal(t, 1, st.GenIterations)
	assert.GreaterOrEqual(t, st.GradientPenalties[0], 0.0)

	assert.FileExists(t, run.FramePath(0))
	assert.FileExists(t, DiscriminatorSnapshotPath(run.Root))
	assert.FileExists(t, GeneratorSnapshotPath(run.Root))
	assert.FileExists(t, filepath.Join(run.Root, "checkpoint_ep0", "discriminator.pt"))
	assert.FileExists(t, filepath.Join(run.Root, "checkpoint_ep0", "generator.pt"))
	assert.FileExists(t, filepath.Join(run.Root, "generated.png"))
	assert.FileExists(t, filepath.Join(run.TensorboardDir(), "scalars.jsonl"))
}

func TestTrainerResumeReproducesGenerator(t *testing.T) {
	cfg := testConfig()
	ds := testDataset(t, 3)
	run := testRunDir(t)

	trainer, err := NewTrainer(cfg, run, ds, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	defer trainer.Close()
	require.NoError(t, trainer.Run())

	probe := NewNoiseSource(99).Normal(cfg.BatchSize, cfg.NNoiseFeatures)
	sampler, err := NewSampler(trainer.Params(), cfg, ds.Channels())
	require.NoError(t, err)
	defer sampler.Close()
	want, err := sampler.Generate(probe)
	require.NoError(t, err)

	// Resume from the run-root snapshots into a fresh store
	resumed := &RunDir{Root: run.Root, Resumed: true}
	restored := NewParamStore()
	require.NoError(t, RestoreParams(resumed, restored))
	restoredSampler, err := NewSampler(restored, cfg, ds.Channels())
	require.NoError(t, err)
	defer restoredSampler.Close()

	got, err := restoredSampler.Generate(probe)
	require.NoError(t, err)
	assert.InDeltaSlice(t, want.Data().([]float64), got.Data().([]float64), 1e-12)
}

func TestTrainerResumedFrameNamespace(t *testing.T) {
	run := &RunDir{Root: "some-run", Resumed: true}
	assert.Equal(t, filepath.Join("some-run", "video", "frame_resumed_3.png"), run.FramePath(3))
	fresh := &RunDir{Root: "some-run"}
	assert.Equal(t, filepath.Join("some-run", "video", "frame_3.png"), fresh.FramePath(3))
}
