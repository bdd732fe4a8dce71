package wgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// InterpolateBatch Mixes real and fake batches per sample:
// alpha[i]*real[i] + (1-alpha[i])*fake[i].
//
// real and fake must share shape with the batch axis first; alpha is (batchSize, 1)
// with one coefficient per sample, never one per batch. The mix is computed on raw
// tensors, not on graph nodes: the result is fed to the penalty through an input
// node, so no gradient ever flows through the mixing arithmetic (the interpolated
// point is a detached leaf of the critic's graph).
func InterpolateBatch(real, fake, alpha *tensor.Dense) (*tensor.Dense, error) {
	if real == nil || fake == nil || alpha == nil {
		return nil, fmt.Errorf("Interpolation inputs must be non-nil")
	}
	if !real.Shape().Eq(fake.Shape()) {
		return nil, fmt.Errorf("Real and fake batches must have equal shape, got %v and %v", real.Shape(), fake.Shape())
	}
	batchSize := real.Shape()[0]
	if alpha.Shape()[0] != batchSize {
		return nil, fmt.Errorf("Got %d interpolation coefficients for batch size %d", alpha.Shape()[0], batchSize)
	}
	realData, ok := real.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("Real batch backing is not []float64 but %T", real.Data())
	}
	fakeData, ok := fake.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("Fake batch backing is not []float64 but %T", fake.Data())
	}
	alphaData, ok := alpha.Data().([]float64)
	if !ok {
		return nil, fmt.Errorf("Coefficients backing is not []float64 but %T", alpha.Data())
	}
	sampleSize := real.Shape().TotalSize() / batchSize
	out := make([]float64, len(realData))
	for i := 0; i < batchSize; i++ {
		a := alphaData[i]
		for j := i * sampleSize; j < (i+1)*sampleSize; j++ {
			out[j] = a*realData[j] + (1-a)*fakeData[j]
		}
	}
	return tensor.New(tensor.WithShape(real.Shape()...), tensor.WithBacking(out)), nil
}

// GradientPenalty Wires the WGAN-GP regularizer into the graph of provided critic.
//
// interp - input node carrying the interpolated batch (bound per step with Let,
// values produced by InterpolateBatch)
// disc - critic applied to the interpolated batch
// lambda - penalty weight
//
// Scores the interpolated batch with the critic, takes the symbolic gradient of the
// summed score with respect to the interp input node, and returns the per-sample node
// lambda*(||grad||_2 - 1)^2 shaped (batchSize, 1). gorgonia differentiates only with
// respect to input nodes, so interp must be a leaf, never a computed node.
// Differentiation is symbolic, so the penalty stays part of the graph and the final
// critic loss backpropagates through it.
func GradientPenalty(interp *gorgonia.Node, disc *DiscriminatorNet, lambda float64) (*gorgonia.Node, error) {
	batchSize := interp.Shape()[0]
	one := gorgonia.NewConstant(1.0)

	score, err := disc.Apply(interp, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "Can't score interpolated batch")
	}
	summed, err := gorgonia.Sum(score)
	if err != nil {
		return nil, errors.Wrap(err, "Can't sum critic scores")
	}
	grads, err := gorgonia.Grad(summed, interp)
	if err != nil {
		return nil, errors.Wrap(err, "Can't differentiate critic output w.r.t. interpolated batch")
	}

	flat, err := gorgonia.Reshape(grads[0], tensor.Shape{batchSize, grads[0].Shape().TotalSize() / batchSize})
	if err != nil {
		return nil, errors.Wrap(err, "Can't flatten per-sample gradients")
	}
	squared, err := gorgonia.Square(flat)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (x^2)")
	}
	rowSums, err := gorgonia.Sum(squared, 1)
	if err != nil {
		return nil, errors.Wrap(err, "Can't sum squared gradients per sample")
	}
	norms, err := gorgonia.Sqrt(rowSums)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do sqrt(x)")
	}
	deviation, err := gorgonia.Sub(norms, one)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do (norm-1)")
	}
	penalty, err := gorgonia.Square(deviation)
	if err != nil {
		return nil, errors.Wrap(err, "Can't do ((norm-1)^2)")
	}
	weighted, err := gorgonia.Mul(penalty, gorgonia.NewConstant(lambda))
	if err != nil {
		return nil, errors.Wrap(err, "Can't apply penalty weight")
	}
	columned, err := gorgonia.Reshape(weighted, tensor.Shape{batchSize, 1})
	if err != nil {
		return nil, errors.Wrap(err, "Can't reshape penalty to column")
	}
	return columned, nil
}
