package wgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Optimizer settings of the training recipe: Adam with zero first-moment decay
const (
	solverLearnRate = 1e-4
	solverBeta1     = 0.0
	solverBeta2     = 0.9
)

func scalarValue(v gorgonia.Value) (float64, error) {
	if v == nil {
		return 0, fmt.Errorf("Value has not been evaluated yet")
	}
	switch data := v.Data().(type) {
	case float64:
		return data, nil
	case []float64:
		if len(data) == 1 {
			return data[0], nil
		}
	}
	return 0, fmt.Errorf("Value of type %T is not a float64 scalar", v.Data())
}

// DiscriminatorStep One compiled critic update: real/fake scores, gradient penalty,
// joint loss, backward pass and an Adam step over the critic learnables only.
// Lives on its own expression graph; model weights are shared through the ParamStore.
//
// The interpolated batch for the penalty is mixed on raw tensors each Run and fed
// through its own input node: a forward-only sampler (same weights via the store)
// produces the fake batch values first, then InterpolateBatch combines them with the
// real batch. The main graph regenerates the same fake batch from the same noise for
// the score terms.
type DiscriminatorStep struct {
	disc    *DiscriminatorNet
	gen     *GeneratorNet
	sampler *Sampler

	machine gorgonia.VM
	solver  gorgonia.Solver

	realInput   *gorgonia.Node
	noiseInput  *gorgonia.Node
	interpInput *gorgonia.Node

	lossVal    gorgonia.Value
	wdistVal   gorgonia.Value
	penaltyVal gorgonia.Value

	noise     *NoiseSource
	batchSize int
	noiseDim  int
}

func NewDiscriminatorStep(ps *ParamStore, cfg *Config, channels int, noise *NoiseSource) (*DiscriminatorStep, error) {
	g := gorgonia.NewGraph()
	batchSize := cfg.BatchSize

	gen, err := BuildGenerator(g, ps, cfg, channels, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build generator part of critic step")
	}
	disc, err := BuildDiscriminator(g, ps, cfg, channels, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build critic part of critic step")
	}

	realInput := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(batchSize, channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("real_input"))
	noiseInput := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, cfg.NNoiseFeatures), gorgonia.WithName("noise_input"))
	interpInput := gorgonia.NewTensor(g, gorgonia.Float64, 4, gorgonia.WithShape(batchSize, channels, cfg.ImageSize, cfg.ImageSize), gorgonia.WithName("interp_input"))

	fake, err := gen.Apply(noiseInput, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't feedforward noise through generator")
	}
	realScore, err := disc.Apply(realInput, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't score real batch")
	}
	fakeScore, err := disc.Apply(fake, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't score generated batch")
	}
	penalty, err := GradientPenalty(interpInput, disc, cfg.LambdaPen)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build gradient penalty")
	}

	loss, err := CriticLoss(realScore, fakeScore, penalty)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build critic loss")
	}
	wdist, err := WassersteinEstimate(realScore, fakeScore)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build Wasserstein distance estimate")
	}
	meanPenalty, err := gorgonia.Mean(penalty)
	if err != nil {
		return nil, errors.Wrap(err, "Can't reduce penalty to mean")
	}

	sampler, err := NewSampler(ps, cfg, channels)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build sampler for interpolation")
	}

	step := &DiscriminatorStep{
		disc:        disc,
		gen:         gen,
		sampler:     sampler,
		realInput:   realInput,
		noiseInput:  noiseInput,
		interpInput: interpInput,
		noise:       noise,
		batchSize:   batchSize,
		noiseDim:    cfg.NNoiseFeatures,
	}
	gorgonia.Read(loss, &step.lossVal)
	gorgonia.Read(wdist, &step.wdistVal)
	gorgonia.Read(meanPenalty, &step.penaltyVal)

	// Only the critic learnables get gradients here: the generator stays frozen
	// for the whole critic phase.
	if _, err := gorgonia.Grad(loss, disc.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't build backward pass for critic")
	}
	step.machine = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(disc.Learnables()...))
	step.solver = gorgonia.NewAdamSolver(
		gorgonia.WithLearnRate(solverLearnRate),
		gorgonia.WithBeta1(solverBeta1),
		gorgonia.WithBeta2(solverBeta2),
		gorgonia.WithBatchSize(float64(batchSize)),
	)
	return step, nil
}

// Critic Returns the critic instance wired into this step's graph
func (s *DiscriminatorStep) Critic() *DiscriminatorNet {
	return s.disc
}

// Run Performs one critic update on provided real batch.
// Returns (loss, wasserstein_estimate, mean_penalty).
func (s *DiscriminatorStep) Run(real *tensor.Dense) (float64, float64, float64, error) {
	if real == nil || real.Shape()[0] == 0 {
		return 0, 0, 0, fmt.Errorf("Empty real batch")
	}
	if real.Shape()[0] != s.batchSize {
		return 0, 0, 0, fmt.Errorf("Real batch size %d does not match compiled batch size %d", real.Shape()[0], s.batchSize)
	}
	if !s.disc.Trainable() {
		return 0, 0, 0, fmt.Errorf("Critic learnables are frozen, refusing to run critic update")
	}
	noiseBatch := s.noise.Normal(s.batchSize, s.noiseDim)
	fake, err := s.sampler.Generate(noiseBatch)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't generate fake batch for interpolation")
	}
	interp, err := InterpolateBatch(real, fake, s.noise.Uniform01(s.batchSize))
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't interpolate real and fake batches")
	}
	if err := gorgonia.Let(s.realInput, real); err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't bind real batch")
	}
	if err := gorgonia.Let(s.noiseInput, noiseBatch); err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't bind noise batch")
	}
	if err := gorgonia.Let(s.interpInput, interp); err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't bind interpolated batch")
	}
	if err := s.machine.RunAll(); err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't run critic update step")
	}
	if err := s.solver.Step(gorgonia.NodesToValueGrads(s.disc.Learnables())); err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't apply solver step to critic")
	}
	s.machine.Reset()

	loss, err := scalarValue(s.lossVal)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't read critic loss")
	}
	wdist, err := scalarValue(s.wdistVal)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't read Wasserstein distance estimate")
	}
	penalty, err := scalarValue(s.penaltyVal)
	if err != nil {
		return 0, 0, 0, errors.Wrap(err, "Can't read gradient penalty")
	}
	return loss, wdist, penalty, nil
}

// Close Releases the tape machine and the interpolation sampler
func (s *DiscriminatorStep) Close() error {
	if err := s.sampler.Close(); err != nil {
		return err
	}
	return s.machine.Close()
}

// GeneratorStep One compiled generator update: fresh noise through the generator,
// critic score on the result, loss = -mean(score), Adam step over the generator
// learnables only. The critic learnables on this graph are never gradient-bound,
// so its parameters and gradients stay untouched here by construction.
type GeneratorStep struct {
	disc *DiscriminatorNet
	gen  *GeneratorNet

	machine gorgonia.VM
	solver  gorgonia.Solver

	noiseInput *gorgonia.Node
	lossVal    gorgonia.Value

	noise     *NoiseSource
	batchSize int
	noiseDim  int
}

func NewGeneratorStep(ps *ParamStore, cfg *Config, channels int, noise *NoiseSource) (*GeneratorStep, error) {
	g := gorgonia.NewGraph()
	batchSize := cfg.BatchSize

	gen, err := BuildGenerator(g, ps, cfg, channels, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build generator part of generator step")
	}
	disc, err := BuildDiscriminator(g, ps, cfg, channels, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build critic part of generator step")
	}

	noiseInput := gorgonia.NewMatrix(g, gorgonia.Float64, gorgonia.WithShape(batchSize, cfg.NNoiseFeatures), gorgonia.WithName("noise_input"))
	fake, err := gen.Apply(noiseInput, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't feedforward noise through generator")
	}
	fakeScore, err := disc.Apply(fake, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't score generated batch")
	}
	loss, err := GeneratorLoss(fakeScore)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build generator loss")
	}

	step := &GeneratorStep{
		disc:       disc,
		gen:        gen,
		noiseInput: noiseInput,
		noise:      noise,
		batchSize:  batchSize,
		noiseDim:   cfg.NNoiseFeatures,
	}
	gorgonia.Read(loss, &step.lossVal)

	if _, err := gorgonia.Grad(loss, gen.Learnables()...); err != nil {
		return nil, errors.Wrap(err, "Can't build backward pass for generator")
	}
	step.machine = gorgonia.NewTapeMachine(g, gorgonia.BindDualValues(gen.Learnables()...))
	step.solver = gorgonia.NewAdamSolver(
		gorgonia.WithLearnRate(solverLearnRate),
		gorgonia.WithBeta1(solverBeta1),
		gorgonia.WithBeta2(solverBeta2),
		gorgonia.WithBatchSize(float64(batchSize)),
	)
	return step, nil
}

// Critic Returns the critic instance wired into this step's graph
func (s *GeneratorStep) Critic() *DiscriminatorNet {
	return s.disc
}

// Generator Returns the generator instance wired into this step's graph
func (s *GeneratorStep) Generator() *GeneratorNet {
	return s.gen
}

// Run Performs one generator update and returns its loss.
// The critic must be frozen for the whole step.
func (s *GeneratorStep) Run() (float64, error) {
	if s.disc.Trainable() {
		return 0, fmt.Errorf("Critic learnables must be frozen during generator update")
	}
	if !s.gen.Trainable() {
		return 0, fmt.Errorf("Generator learnables are frozen, refusing to run generator update")
	}
	if err := gorgonia.Let(s.noiseInput, s.noise.Normal(s.batchSize, s.noiseDim)); err != nil {
		return 0, errors.Wrap(err, "Can't bind noise batch")
	}
	if err := s.machine.RunAll(); err != nil {
		return 0, errors.Wrap(err, "Can't run generator update step")
	}
	if err := s.solver.Step(gorgonia.NodesToValueGrads(s.gen.Learnables())); err != nil {
		return 0, errors.Wrap(err, "Can't apply solver step to generator")
	}
	s.machine.Reset()

	loss, err := scalarValue(s.lossVal)
	if err != nil {
		return 0, errors.Wrap(err, "Can't read generator loss")
	}
	return loss, nil
}

// Close Releases the tape machine
func (s *GeneratorStep) Close() error {
	return s.machine.Close()
}
