package wgan

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gorgonia.org/tensor"
)

const gridPadding = 2

// RenderGrid Renders a generated image batch (batchSize, channels, side, side)
// into one titled grid image. Values are expected in [-1;1] and are unnormalized
// back to displayable range. Single-channel batches render as grayscale.
func RenderGrid(images *tensor.Dense, title, fname string) error {
	if images == nil || images.Dims() != 4 {
		return fmt.Errorf("Image batch must have 4 dimensions")
	}
	shape := images.Shape()
	batchSize, channels, side := shape[0], shape[1], shape[2]
	if channels != 1 && channels != 3 {
		return fmt.Errorf("Image batch must have 1 or 3 channels, got %d", channels)
	}
	data, ok := images.Data().([]float64)
	if !ok {
		return fmt.Errorf("Image batch backing is not []float64 but %T", images.Data())
	}

	cols := int(math.Ceil(math.Sqrt(float64(batchSize))))
	rows := (batchSize + cols - 1) / cols
	width := cols*(side+gridPadding) + gridPadding
	height := rows*(side+gridPadding) + gridPadding
	grid := image.NewRGBA(image.Rect(0, 0, width, height))

	pixel := func(sample, channel, y, x int) uint8 {
		v := data[((sample*channels+channel)*side+y)*side+x]
		v = v/2 + 0.5 // unnormalize
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		return uint8(v * 255)
	}
	for i := 0; i < batchSize; i++ {
		originX := gridPadding + (i%cols)*(side+gridPadding)
		originY := gridPadding + (i/cols)*(side+gridPadding)
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				var c color.RGBA
				if channels == 1 {
					g := pixel(i, 0, y, x)
					c = color.RGBA{R: g, G: g, B: g, A: 255}
				} else {
					c = color.RGBA{R: pixel(i, 0, y, x), G: pixel(i, 1, y, x), B: pixel(i, 2, y, x), A: 255}
				}
				grid.SetRGBA(originX+x, originY+y, c)
			}
		}
	}

	p := plot.New()
	p.Title.Text = title
	p.HideAxes()
	p.Add(plotter.NewImage(grid, 0, 0, float64(width), float64(height)))
	if err := p.Save(10*vg.Inch, 10*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save rendered grid")
	}
	return nil
}
