package wgan

import (
	"image/color"
	"math"
	"path/filepath"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// rollingMean Returns the moving average of values over given window.
// Entries before the window fills up are NaN and skipped when plotting.
func rollingMean(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		} else {
			out[i] = math.NaN()
		}
	}
	return out
}

// ewma Returns the exponentially weighted moving average of values
func ewma(values []float64, alpha float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func seriesXYs(values []float64) plotter.XYs {
	xys := make(plotter.XYs, 0, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		xys = append(xys, plotter.XY{X: float64(i), Y: v})
	}
	return xys
}

// PlotSeries Plots one scalar stream as a line chart
func PlotSeries(values []float64, title, ylabel, fname string) error {
	line, err := plotter.NewLine(seriesXYs(values))
	if err != nil {
		return errors.Wrap(err, "Can't init line plotter")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Training steps"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	p.Add(line)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// PlotSeriesSmoothed Plots raw scalar stream with an EWMA overlay
func PlotSeriesSmoothed(values []float64, title, ylabel, fname string) error {
	raw, err := plotter.NewLine(seriesXYs(values))
	if err != nil {
		return errors.Wrap(err, "Can't init raw line plotter")
	}
	raw.Color = color.RGBA{R: 160, G: 160, B: 255, A: 255}
	smoothed, err := plotter.NewLine(seriesXYs(ewma(values, 0.1)))
	if err != nil {
		return errors.Wrap(err, "Can't init smoothed line plotter")
	}
	smoothed.Color = color.RGBA{R: 255, B: 64, A: 255}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Training steps"
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	p.Add(raw)
	p.Add(smoothed)
	if err := p.Save(6*vg.Inch, 4*vg.Inch, fname); err != nil {
		return errors.Wrap(err, "Can't save plot")
	}
	return nil
}

// PlotMetrics Writes the full chart set for current metric streams into dir
func PlotMetrics(dir string, st *TrainingState, window int) error {
	if err := PlotSeries(rollingMean(st.DiscLosses, window), "Discriminator Loss", "Loss", filepath.Join(dir, "discriminator_loss.png")); err != nil {
		return err
	}
	if err := PlotSeriesSmoothed(st.DiscLosses, "Discriminator Loss", "Loss", filepath.Join(dir, "discriminator_loss_smoothed.png")); err != nil {
		return err
	}
	if err := PlotSeries(rollingMean(st.GenLosses, window), "Generator Loss", "Loss", filepath.Join(dir, "generator_loss.png")); err != nil {
		return err
	}
	if err := PlotSeriesSmoothed(st.GenLosses, "Generator Loss", "Loss", filepath.Join(dir, "generator_loss_smoothed.png")); err != nil {
		return err
	}
	if err := PlotSeriesSmoothed(st.WassersteinDists, "Wasserstein Distance Estimate", "Distance", filepath.Join(dir, "wasserstein_distance.png")); err != nil {
		return err
	}
	if err := PlotSeriesSmoothed(st.GradientPenalties, "Gradient Penalty", "Penalty", filepath.Join(dir, "gradient_penalty.png")); err != nil {
		return err
	}
	return nil
}
