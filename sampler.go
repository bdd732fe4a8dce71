package wgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Sampler Forward-only generator program used for frame rendering and checkpoint grids.
// No gradients are built or bound on its graph.
type Sampler struct {
	machine    gorgonia.VM
	noiseInput *gorgonia.Node
	outVal     gorgonia.Value
	batchSize  int
	noiseDim   int
}

func NewSampler(ps *ParamStore, cfg *Config, channels int) (*Sampler, error) {
	g := gorgonia.NewGraph()
	gen, err := BuildGenerator(g, ps, cfg, channels, cfg.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build generator for sampling")
	}
	noiseInput := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(cfg.BatchSize, cfg.NNoiseFeatures), gorgonia.WithName("noise_input"))
	out, err := gen.Apply(noiseInput, cfg.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't feedforward noise through generator")
	}
	s := &Sampler{
		noiseInput: noiseInput,
		batchSize:  cfg.BatchSize,
		noiseDim:   cfg.NNoiseFeatures,
	}
	gorgonia.Read(out, &s.outVal)
	s.machine = gorgonia.NewTapeMachine(g)
	return s, nil
}

// Generate Runs the generator on provided noise batch and returns a detached image batch
func (s *Sampler) Generate(noise *tensor.Dense) (*tensor.Dense, error) {
	if noise == nil || !noise.Shape().Eq(tensor.Shape{s.batchSize, s.noiseDim}) {
		return nil, fmt.Errorf("Noise batch must have shape (%d, %d)", s.batchSize, s.noiseDim)
	}
	if err := gorgonia.Let(s.noiseInput, noise); err != nil {
		return nil, errors.Wrap(err, "Can't bind noise batch")
	}
	if err := s.machine.RunAll(); err != nil {
		return nil, errors.Wrap(err, "Can't run generator forward pass")
	}
	s.machine.Reset()
	dense, ok := s.outVal.(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Generator output is not dense but %T", s.outVal)
	}
	// The machine reuses the output backing on the next run, detach a copy
	return dense.Clone().(*tensor.Dense), nil
}

// Close Releases the tape machine
func (s *Sampler) Close() error {
	return s.machine.Close()
}

// Evaluator Forward-only critic program for the post-training evaluation pass:
// mean critic score on real batches and on freshly generated ones, gradients disabled.
type Evaluator struct {
	machine      gorgonia.VM
	realInput    *gorgonia.Node
	noiseInput   *gorgonia.Node
	realScoreVal gorgonia.Value
	fakeScoreVal gorgonia.Value
	batchSize    int
	noiseDim     int
}

func NewEvaluator(ps *ParamStore, cfg *Config, channels int) (*Evaluator, error) {
	g := gorgonia.NewGraph()
	gen, err := BuildGenerator(g, ps, cfg, channels, cfg.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build generator for evaluation")
	}
	disc, err := BuildDiscriminator(g, ps, cfg, channels, cfg.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build critic for evaluation")
	}
	realInput := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(cfg.BatchSize, channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("real_input"))
	noiseInput := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(cfg.BatchSize, cfg.NNoiseFeatures), gorgonia.WithName("noise_input"))

	realScore, err := disc.Apply(realInput, cfg.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't score real batch")
	}
	fake, err := gen.Apply(noiseInput, cfg.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't feedforward noise through generator")
	}
	fakeScore, err := disc.Apply(fake, cfg.BatchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't score generated batch")
	}
	e := &Evaluator{
		realInput:  realInput,
		noiseInput: noiseInput,
		batchSize:  cfg.BatchSize,
		noiseDim:   cfg.NNoiseFeatures,
	}
	gorgonia.Read(realScore, &e.realScoreVal)
	gorgonia.Read(fakeScore, &e.fakeScoreVal)
	e.machine = gorgonia.NewTapeMachine(g)
	return e, nil
}

// Scores Returns mean critic score on the real batch and on a generated batch
func (e *Evaluator) Scores(real, noise *tensor.Dense) (float64, float64, error) {
	if err := gorgonia.Let(e.realInput, real); err != nil {
		return 0, 0, errors.Wrap(err, "Can't bind real batch")
	}
	if err := gorgonia.Let(e.noiseInput, noise); err != nil {
		return 0, 0, errors.Wrap(err, "Can't bind noise batch")
	}
	if err := e.machine.RunAll(); err != nil {
		return 0, 0, errors.Wrap(err, "Can't run evaluation pass")
	}
	e.machine.Reset()
	realMean, err := meanOfValue(e.realScoreVal)
	if err != nil {
		return 0, 0, errors.Wrap(err, "Can't read real scores")
	}
	fakeMean, err := meanOfValue(e.fakeScoreVal)
	if err != nil {
		return 0, 0, errors.Wrap(err, "Can't read generated scores")
	}
	return realMean, fakeMean, nil
}

// Close Releases the tape machine
func (e *Evaluator) Close() error {
	return e.machine.Close()
}

func meanOfValue(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("Value has not been evaluated yet")
	}
	data, ok := v.Data().([]float64)
	if !ok {
		if single, okSingle := v.Data().(float64); okSingle {
			return single, nil
		}
		return 0, fmt.Errorf("Value of type %T is not a float64 slice", v.Data())
	}
	if len(data) == 0 {
		return 0, fmt.Errorf("Value is empty")
	}
	sum := 0.0
	for _, x := range data {
		sum += x
	}
	return sum / float64(len(data)), nil
}
