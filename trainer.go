package wgan

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorgonia.org/tensor"
)

// TrainingState Mutable counters and metric streams of one training run.
// Streams feed the plots and the scalar event log. None of it is persisted
// across resumes, only model parameters survive a restart.
type TrainingState struct {
	Epoch         int
	GlobalStep    int
	GenIterations int

	DiscLosses        []float64
	GenLosses         []float64
	WassersteinDists  []float64
	GradientPenalties []float64

	// Fixed noise batch reused for every rendered frame so frames are comparable
	FrameNoise *tensor.Dense
}

// Trainer Drives the full adversarial training run: alternates critic phases
// against single generator updates, logs scalar streams, renders frames and
// saves checkpoints on their configured cadences.
type Trainer struct {
	cfg    *Config
	run    *RunDir
	log    *zap.SugaredLogger
	loader *Loader
	noise  *NoiseSource
	params *ParamStore

	discStep  *DiscriminatorStep
	genStep   *GeneratorStep
	sampler   *Sampler
	evaluator *Evaluator
	ckpt      *CheckpointManager
	events    *ScalarWriter

	state *TrainingState
}

func NewTrainer(cfg *Config, run *RunDir, ds Dataset, log *zap.SugaredLogger) (*Trainer, error) {
	noise := NewNoiseSource(cfg.Seed)
	loader, err := NewLoader(ds, cfg.BatchSize, cfg.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "Can't init data loader")
	}

	// Restored tensors must land in the store before any graph is built on it
	params := NewParamStore()
	if run.Resumed {
		if err := RestoreParams(run, params); err != nil {
			return nil, err
		}
		log.Infow("Restored model parameters", "run", run.Root)
	}

	discStep, err := NewDiscriminatorStep(params, cfg, ds.Channels(), noise)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build critic update step")
	}
	genStep, err := NewGeneratorStep(params, cfg, ds.Channels(), noise)
	if err != nil {
		return nil, errors.Wrap(err, "Can't build generator update step")
	}
	sampler, err := NewSampler(params, cfg, ds.Channels())
	if err != nil {
		return nil, errors.Wrap(err, "Can't build sampler")
	}
	evaluator, err := NewEvaluator(params, cfg, ds.Channels())
	if err != nil {
		return nil, errors.Wrap(err, "Can't build evaluator")
	}
	events, err := NewScalarWriter(run.TensorboardDir())
	if err != nil {
		return nil, err
	}

	state := &TrainingState{
		FrameNoise: noise.Normal(cfg.BatchSize, cfg.NNoiseFeatures),
	}
	t := &Trainer{
		cfg:       cfg,
		run:       run,
		log:       log,
		loader:    loader,
		noise:     noise,
		params:    params,
		discStep:  discStep,
		genStep:   genStep,
		sampler:   sampler,
		evaluator: evaluator,
		ckpt:      NewCheckpointManager(run, params, sampler, state, cfg, noise),
		events:    events,
		state:     state,
	}
	if err := t.logStartup(); err != nil {
		return nil, err
	}
	return t, nil
}

// logStartup Logs first-batch statistics and model sizes before training starts
func (t *Trainer) logStartup() error {
	t.loader.Reset()
	batch, _, err := t.loader.Next()
	if err != nil {
		return errors.Wrap(err, "Can't peek first batch")
	}
	data, ok := batch.Data().([]float64)
	if !ok {
		return fmt.Errorf("Batch backing is not []float64 but %T", batch.Data())
	}
	lo, hi := data[0], data[0]
	sum := 0.0
	for _, v := range data {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
		sum += v
	}
	avg := sum / float64(len(data))
	variance := 0.0
	for _, v := range data {
		variance += (v - avg) * (v - avg)
	}
	std := math.Sqrt(variance / float64(len(data)))
	t.log.Infow("First batch stats", "min", lo, "max", hi, "mean", avg, "std", std)
	t.log.Infow("Model parameters",
		"discriminator", countParams(t.params, "discriminator"),
		"generator", countParams(t.params, "generator"),
	)
	return nil
}

func countParams(ps *ParamStore, prefix string) int {
	total := 0
	for _, name := range ps.Names() {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		dense, _ := ps.Get(name)
		total += dense.Shape().TotalSize()
	}
	return total
}

// Params Returns the shared parameter store backing all compiled programs
func (t *Trainer) Params() *ParamStore {
	return t.params
}

// State Returns the mutable training state
func (t *Trainer) State() *TrainingState {
	return t.state
}

// setCriticTrainable Flips the trainable flag on the critic instance of every
// program that holds one. Gradient flow is fixed per compiled graph; the flags
// guard against running a step in the wrong phase.
func (t *Trainer) setCriticTrainable(trainable bool) {
	t.discStep.Critic().SetTrainable(trainable)
	t.genStep.Critic().SetTrainable(trainable)
}

// Run Executes the configured number of epochs and saves final artifacts
func (t *Trainer) Run() error {
	t.genStep.Generator().SetTrainable(true)
	t.log.Infow("Starting training",
		"epochs", t.cfg.Epochs,
		"batches_per_epoch", t.loader.Len(),
		"batch_size", t.cfg.BatchSize,
	)
	for epoch := 0; epoch < t.cfg.Epochs; epoch++ {
		if err := t.runEpoch(epoch); err != nil {
			return errors.Wrap(err, "Can't finish epoch")
		}
		if epoch%t.cfg.Checkpoints == 0 {
			if err := t.ckpt.Save(epoch); err != nil {
				return err
			}
			t.log.Infow("Saved checkpoint", "epoch", epoch)
		}
	}

	realScore, fakeScore, err := t.evaluate()
	if err != nil {
		return err
	}
	t.log.Infow("Final critic scores", "real", realScore, "generated", fakeScore)

	if err := t.ckpt.SaveFinal(); err != nil {
		return err
	}
	t.log.Infow("Training done", "run", t.run.Root)
	return nil
}

func (t *Trainer) runEpoch(epoch int) error {
	start := time.Now()
	t.state.Epoch = epoch
	t.loader.Reset()
	epochDisc, epochGen := []float64{}, []float64{}

	for t.loader.HasNext() {
		// Critic phase: generator frozen, critic takes its scheduled step count
		// (or whatever is left of the epoch).
		t.setCriticTrainable(true)
		t.genStep.Generator().SetTrainable(false)
		criticSteps := DiscStepsFor(t.state.GenIterations, t.cfg.DiscSteps)
		for j := 0; j < criticSteps && t.loader.HasNext(); j++ {
			real, _, err := t.loader.Next()
			if err != nil {
				return err
			}
			loss, wdist, penalty, err := t.discStep.Run(real)
			if err != nil {
				return errors.Wrap(err, "Can't run critic update")
			}
			t.state.DiscLosses = append(t.state.DiscLosses, loss)
			t.state.WassersteinDists = append(t.state.WassersteinDists, wdist)
			t.state.GradientPenalties = append(t.state.GradientPenalties, penalty)
			epochDisc = append(epochDisc, loss)
			if err := t.logCriticScalars(loss, wdist, penalty); err != nil {
				return err
			}
			t.state.GlobalStep++
		}

		// Generator phase: critic frozen, one update
		t.setCriticTrainable(false)
		t.genStep.Generator().SetTrainable(true)
		genLoss, err := t.genStep.Run()
		if err != nil {
			return errors.Wrap(err, "Can't run generator update")
		}
		t.state.GenLosses = append(t.state.GenLosses, genLoss)
		epochGen = append(epochGen, genLoss)
		if err := t.events.Add(TagGenLoss, t.state.GenIterations, genLoss); err != nil {
			return err
		}
		t.state.GenIterations++
	}

	if epoch%t.cfg.PrintEvery == 0 {
		if err := t.renderFrame(epoch); err != nil {
			return err
		}
		t.log.Infow("Epoch stats",
			"epoch", epoch,
			"critic_loss", mean(epochDisc),
			"generator_loss", mean(epochGen),
			"generator_updates", t.state.GenIterations,
			"elapsed", time.Since(start),
		)
	}
	return nil
}

func (t *Trainer) logCriticScalars(loss, wdist, penalty float64) error {
	if err := t.events.Add(TagDiscLoss, t.state.GlobalStep, loss); err != nil {
		return err
	}
	if err := t.events.Add(TagGradientPenalty, t.state.GlobalStep, penalty); err != nil {
		return err
	}
	return t.events.Add(TagWassersteinDist, t.state.GlobalStep, wdist)
}

func (t *Trainer) renderFrame(epoch int) error {
	samples, err := t.sampler.Generate(t.state.FrameNoise)
	if err != nil {
		return errors.Wrap(err, "Can't generate frame batch")
	}
	return RenderGrid(samples, fmt.Sprintf("Epoch %d", epoch+1), t.run.FramePath(epoch))
}

// evaluate Runs one pass over the dataset with all learnables frozen and
// returns mean critic scores on real and freshly generated batches
func (t *Trainer) evaluate() (float64, float64, error) {
	t.setCriticTrainable(false)
	t.genStep.Generator().SetTrainable(false)
	t.loader.Reset()
	realScores, fakeScores := []float64{}, []float64{}
	for t.loader.HasNext() {
		real, _, err := t.loader.Next()
		if err != nil {
			return 0, 0, err
		}
		realMean, fakeMean, err := t.evaluator.Scores(real, t.noise.Normal(t.cfg.BatchSize, t.cfg.NNoiseFeatures))
		if err != nil {
			return 0, 0, errors.Wrap(err, "Can't evaluate batch")
		}
		realScores = append(realScores, realMean)
		fakeScores = append(fakeScores, fakeMean)
	}
	return mean(realScores), mean(fakeScores), nil
}

// Close Releases all compiled programs and the event log
func (t *Trainer) Close() error {
	t.discStep.Close()
	t.genStep.Close()
	t.sampler.Close()
	t.evaluator.Close()
	return t.events.Close()
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
