package wgan

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// paramSnapshot Serialized form of one named parameter tensor
type paramSnapshot struct {
	Name  string
	Shape []int
	Data  []float64
}

// SaveParams Persists every parameter whose name starts with prefix into one gob file
func SaveParams(path string, ps *ParamStore, prefix string) error {
	snapshots := []paramSnapshot{}
	for _, name := range ps.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		dense, _ := ps.Get(name)
		data, ok := dense.Data().([]float64)
		if !ok {
			return fmt.Errorf("Parameter '%s' backing is not []float64 but %T", name, dense.Data())
		}
		stored := make([]float64, len(data))
		copy(stored, data)
		snapshots = append(snapshots, paramSnapshot{
			Name:  name,
			Shape: []int(dense.Shape()),
			Data:  stored,
		})
	}
	if len(snapshots) == 0 {
		return fmt.Errorf("No parameters with prefix '%s' to save", prefix)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("Can't create parameter snapshot '%s'", path))
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(snapshots); err != nil {
		return errors.Wrap(err, fmt.Sprintf("Can't encode parameter snapshot '%s'", path))
	}
	return nil
}

// LoadParams Restores parameters from a gob snapshot into the store.
// Must run before any model is built on the store so freshly constructed
// networks pick up the restored tensors instead of random initialization.
func LoadParams(path string, ps *ParamStore) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, fmt.Sprintf("Can't open parameter snapshot '%s'", path))
	}
	defer f.Close()
	snapshots := []paramSnapshot{}
	if err := gob.NewDecoder(f).Decode(&snapshots); err != nil {
		return errors.Wrap(err, fmt.Sprintf("Can't decode parameter snapshot '%s'", path))
	}
	for _, snapshot := range snapshots {
		expected := tensor.Shape(snapshot.Shape).TotalSize()
		if expected != len(snapshot.Data) {
			return fmt.Errorf("Parameter '%s' has %d elements, shape %v wants %d", snapshot.Name, len(snapshot.Data), snapshot.Shape, expected)
		}
		ps.Set(snapshot.Name, tensor.New(tensor.WithShape(snapshot.Shape...), tensor.WithBacking(snapshot.Data)))
	}
	return nil
}

// CheckpointManager Persists per-epoch snapshots of both models together with
// current metric plots and one rendered sample grid.
//
// Optimizer moments, metric-stream history and the generator-update counter are
// deliberately NOT persisted: resumed runs restart them from zero.
type CheckpointManager struct {
	run     *RunDir
	params  *ParamStore
	sampler *Sampler
	state   *TrainingState
	cfg     *Config
	noise   *NoiseSource
}

func NewCheckpointManager(run *RunDir, params *ParamStore, sampler *Sampler, state *TrainingState, cfg *Config, noise *NoiseSource) *CheckpointManager {
	return &CheckpointManager{
		run:     run,
		params:  params,
		sampler: sampler,
		state:   state,
		cfg:     cfg,
		noise:   noise,
	}
}

// Save Persists both models, metric plots and a fresh sample grid into the
// per-epoch checkpoint directory
func (m *CheckpointManager) Save(epoch int) error {
	dir, err := m.run.CheckpointDir(epoch)
	if err != nil {
		return err
	}
	return m.saveInto(dir, fmt.Sprintf("Epoch %d", epoch+1))
}

// SaveFinal Persists final artifacts at the run root
func (m *CheckpointManager) SaveFinal() error {
	return m.saveInto(m.run.Root, "Results")
}

func (m *CheckpointManager) saveInto(dir, title string) error {
	if err := SaveParams(DiscriminatorSnapshotPath(dir), m.params, "discriminator"); err != nil {
		return errors.Wrap(err, "Can't save critic snapshot")
	}
	if err := SaveParams(GeneratorSnapshotPath(dir), m.params, "generator"); err != nil {
		return errors.Wrap(err, "Can't save generator snapshot")
	}
	if err := PlotMetrics(dir, m.state, m.cfg.RollingWindow); err != nil {
		return errors.Wrap(err, "Can't plot metric streams")
	}
	samples, err := m.sampler.Generate(m.noise.Normal(m.cfg.BatchSize, m.cfg.NNoiseFeatures))
	if err != nil {
		return errors.Wrap(err, "Can't generate sample grid")
	}
	if err := RenderGrid(samples, title, filepath.Join(dir, "generated.png")); err != nil {
		return errors.Wrap(err, "Can't render sample grid")
	}
	return nil
}

// RestoreParams Loads both run-root model snapshots into the store before resuming
func RestoreParams(run *RunDir, ps *ParamStore) error {
	if err := LoadParams(DiscriminatorSnapshotPath(run.Root), ps); err != nil {
		return errors.Wrap(err, "Can't restore critic parameters")
	}
	if err := LoadParams(GeneratorSnapshotPath(run.Root), ps); err != nil {
		return errors.Wrap(err, "Can't restore generator parameters")
	}
	return nil
}
