package wgan

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// RunDir Persisted state root of one training run: config snapshot, checkpoints,
// scalar event log and rendered frames all live under it.
type RunDir struct {
	Root    string
	Resumed bool
}

// CreateRunDir Creates a fresh run directory named after start time and key
// hyperparameters. Collision with an existing directory is an error - existing
// results are never overwritten.
func CreateRunDir(cfg *Config, now time.Time) (*RunDir, error) {
	name := fmt.Sprintf("%s_e%d_d%d_g%d", now.Format("06-01-02_15-04"), cfg.Epochs, cfg.DiscriminatorFilters, cfg.GeneratorFilters)
	if _, err := os.Stat(name); err == nil {
		return nil, fmt.Errorf("The result directory '%s' already exists, aborting", name)
	}
	r := &RunDir{Root: name}
	for _, dir := range []string{r.Root, r.VideoDir(), r.TensorboardDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't create run directory '%s'", dir))
		}
	}
	return r, nil
}

// OpenRunDir Reuses an existing run directory for a resumed run
func OpenRunDir(path string) (*RunDir, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't open run directory '%s'", path))
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("'%s' is not a directory", path)
	}
	r := &RunDir{Root: path, Resumed: true}
	if _, err := os.Stat(r.ConfigPath()); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Run directory '%s' has no config snapshot", path))
	}
	return r, nil
}

func (r *RunDir) ConfigPath() string {
	return filepath.Join(r.Root, "config.yml")
}

func (r *RunDir) VideoDir() string {
	return filepath.Join(r.Root, "video")
}

func (r *RunDir) TensorboardDir() string {
	return filepath.Join(r.Root, "tensorboard")
}

// FramePath Returns the frame image path for given epoch.
// Resumed runs keep their own frame namespace so original frames are not clobbered.
func (r *RunDir) FramePath(epoch int) string {
	if r.Resumed {
		return filepath.Join(r.VideoDir(), fmt.Sprintf("frame_resumed_%d.png", epoch))
	}
	return filepath.Join(r.VideoDir(), fmt.Sprintf("frame_%d.png", epoch))
}

// CheckpointDir Returns (and creates) the per-epoch checkpoint directory
func (r *RunDir) CheckpointDir(epoch int) (string, error) {
	name := fmt.Sprintf("checkpoint_ep%d", epoch)
	if r.Resumed {
		name = fmt.Sprintf("checkpoint_resumed_ep%d", epoch)
	}
	dir := filepath.Join(r.Root, name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, fmt.Sprintf("Can't create checkpoint directory '%s'", dir))
	}
	return dir, nil
}

// DiscriminatorSnapshotPath Critic parameter snapshot inside given directory
func DiscriminatorSnapshotPath(dir string) string {
	return filepath.Join(dir, "discriminator.pt")
}

// GeneratorSnapshotPath Generator parameter snapshot inside given directory
func GeneratorSnapshotPath(dir string) string {
	return filepath.Join(dir, "generator.pt")
}
