package wgan

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Dataset Collaborator interface for training data: indexable samples normalized
// to per-channel [-1;1], shaped (channels, side, side).
type Dataset interface {
	Len() int
	Sample(i int) (*tensor.Dense, float64, error)
	Channels() int
	Side() int
}

type datasetSpec struct {
	subdir   string
	channels int
}

var knownDatasets = map[string]datasetSpec{
	"MNIST":   {subdir: "mnist", channels: 1},
	"CIFAR10": {subdir: "cifar10", channels: 3},
	"CELEBA":  {subdir: "img_align_celeba", channels: 3},
	"POKEMON": {subdir: "pokemon", channels: 3},
	"CATS":    {subdir: "cats", channels: 3},
}

// OpenDataset Resolves a named dataset rooted at the data folder.
// Unknown names are rejected - callers treat that as fatal.
func OpenDataset(name, dataFolder string, imageSize int) (Dataset, error) {
	spec, ok := knownDatasets[name]
	if !ok {
		return nil, fmt.Errorf("Dataset not known: %s", name)
	}
	return NewDirectoryDataset(filepath.Join(dataFolder, spec.subdir), spec.channels, imageSize)
}

// TensorDataset In-memory dataset over a pre-built (n, channels, side, side) tensor.
// Labels are optional; missing labels read as zero.
type TensorDataset struct {
	data   *tensor.Dense
	labels []float64
}

func NewTensorDataset(data *tensor.Dense, labels []float64) (*TensorDataset, error) {
	if data == nil || data.Dims() != 4 {
		return nil, fmt.Errorf("Dataset tensor must have 4 dimensions (n, channels, side, side)")
	}
	if data.Shape()[2] != data.Shape()[3] {
		return nil, fmt.Errorf("Dataset images must be square, got %dx%d", data.Shape()[2], data.Shape()[3])
	}
	if labels != nil && len(labels) != data.Shape()[0] {
		return nil, fmt.Errorf("Got %d labels for %d samples", len(labels), data.Shape()[0])
	}
	return &TensorDataset{data: data, labels: labels}, nil
}

func (ds *TensorDataset) Len() int {
	return ds.data.Shape()[0]
}

func (ds *TensorDataset) Channels() int {
	return ds.data.Shape()[1]
}

func (ds *TensorDataset) Side() int {
	return ds.data.Shape()[2]
}

func (ds *TensorDataset) Sample(i int) (*tensor.Dense, float64, error) {
	if i < 0 || i >= ds.Len() {
		return nil, 0, fmt.Errorf("Sample index %d is out of range [0;%d)", i, ds.Len())
	}
	backing, ok := ds.data.Data().([]float64)
	if !ok {
		return nil, 0, fmt.Errorf("Dataset backing is not []float64 but %T", ds.data.Data())
	}
	sampleSize := ds.Channels() * ds.Side() * ds.Side()
	sample := make([]float64, sampleSize)
	copy(sample, backing[i*sampleSize:(i+1)*sampleSize])
	label := 0.0
	if ds.labels != nil {
		label = ds.labels[i]
	}
	return tensor.New(tensor.WithShape(ds.Channels(), ds.Side(), ds.Side()), tensor.WithBacking(sample)), label, nil
}

// DirectoryDataset Dataset over a directory of image files (png/jpeg), decoded
// lazily, resized with nearest neighbour and normalized to per-channel [-1;1].
type DirectoryDataset struct {
	files    []string
	channels int
	side     int
}

func NewDirectoryDataset(dir string, channels, imageSize int) (*DirectoryDataset, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("Can't read dataset directory '%s'", dir))
	}
	files := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("Dataset directory '%s' has no images", dir)
	}
	return &DirectoryDataset{files: files, channels: channels, side: imageSize}, nil
}

func (ds *DirectoryDataset) Len() int {
	return len(ds.files)
}

func (ds *DirectoryDataset) Channels() int {
	return ds.channels
}

func (ds *DirectoryDataset) Side() int {
	return ds.side
}

func (ds *DirectoryDataset) Sample(i int) (*tensor.Dense, float64, error) {
	if i < 0 || i >= len(ds.files) {
		return nil, 0, fmt.Errorf("Sample index %d is out of range [0;%d)", i, len(ds.files))
	}
	f, err := os.Open(ds.files[i])
	if err != nil {
		return nil, 0, errors.Wrap(err, fmt.Sprintf("Can't open image '%s'", ds.files[i]))
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, 0, errors.Wrap(err, fmt.Sprintf("Can't decode image '%s'", ds.files[i]))
	}
	data := make([]float64, ds.channels*ds.side*ds.side)
	bounds := img.Bounds()
	for y := 0; y < ds.side; y++ {
		srcY := bounds.Min.Y + y*bounds.Dy()/ds.side
		for x := 0; x < ds.side; x++ {
			srcX := bounds.Min.X + x*bounds.Dx()/ds.side
			r, g, b, _ := img.At(srcX, srcY).RGBA()
			if ds.channels == 1 {
				// ITU-R BT.601 luminance
				gray := (299*float64(r) + 587*float64(g) + 114*float64(b)) / 1000 / 65535
				data[y*ds.side+x] = gray*2 - 1
				continue
			}
			plane := ds.side * ds.side
			data[0*plane+y*ds.side+x] = float64(r)/65535*2 - 1
			data[1*plane+y*ds.side+x] = float64(g)/65535*2 - 1
			data[2*plane+y*ds.side+x] = float64(b)/65535*2 - 1
		}
	}
	return tensor.New(tensor.WithShape(ds.channels, ds.side, ds.side), tensor.WithBacking(data)), 0, nil
}
