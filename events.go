package wgan

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// Scalar stream tags mirrored into the event log, one entry per update step
const (
	TagDiscLoss        = "data/D_loss"
	TagGenLoss         = "data/G_loss"
	TagGradientPenalty = "data/gradient_penalty"
	TagWassersteinDist = "data/Wasserstein_distance_estimate"
)

// ScalarEvent One logged scalar for external dashboard consumption
type ScalarEvent struct {
	WallTime int64   `json:"wall_time"`
	Step     int     `json:"step"`
	Tag      string  `json:"tag"`
	Value    float64 `json:"value"`
}

// ScalarWriter Append-only scalar event log under the run's tensorboard directory.
// JSON lines; resumed runs keep appending to the same file.
type ScalarWriter struct {
	f   *os.File
	enc *json.Encoder
}

func NewScalarWriter(dir string) (*ScalarWriter, error) {
	path := filepath.Join(dir, "scalars.jsonl")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, errors.Wrap(err, "Can't open scalar event log")
	}
	return &ScalarWriter{f: f, enc: json.NewEncoder(f)}, nil
}

// Add Appends one scalar event
func (w *ScalarWriter) Add(tag string, step int, value float64) error {
	event := ScalarEvent{
		WallTime: time.Now().Unix(),
		Step:     step,
		Tag:      tag,
		Value:    value,
	}
	if err := w.enc.Encode(&event); err != nil {
		return errors.Wrap(err, "Can't append scalar event")
	}
	return nil
}

// Close Flushes and closes the underlying file
func (w *ScalarWriter) Close() error {
	return w.f.Close()
}
