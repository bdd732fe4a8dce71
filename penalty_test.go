package wgan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func matrixNode(g *gorgonia.ExprGraph, name string, rows, cols int, data []float64) *gorgonia.Node {
	return gorgonia.NewMatrix(g, gorgonia.Float64,
		gorgonia.WithShape(rows, cols),
		gorgonia.WithName(name),
		gorgonia.WithValue(tensor.New(tensor.WithShape(rows, cols), tensor.WithBacking(data))),
	)
}

// linearCritic Critic whose score is a plain dot product, so its gradient with
// respect to any input equals the weight row regardless of the input itself
func linearCritic(g *gorgonia.ExprGraph, weights []float64) *DiscriminatorNet {
	w := matrixNode(g, "critic_w", 1, len(weights), weights)
	return Discriminator(&Layer{
		WeightNode: w,
		Type:       LayerLinear,
		Activation: NoActivation,
	})
}

// quadraticCritic Critic scoring sum of squared inputs, so its gradient is 2*input
// and the penalty genuinely depends on the interpolated point
func quadraticCritic(g *gorgonia.ExprGraph, features int) *DiscriminatorNet {
	identity := make([]float64, features*features)
	for i := 0; i < features; i++ {
		identity[i*features+i] = 1.0
	}
	ones := make([]float64, features)
	for i := range ones {
		ones[i] = 1.0
	}
	return Discriminator(
		&Layer{
			WeightNode: matrixNode(g, "critic_identity", features, features, identity),
			Type:       LayerLinear,
			Activation: Square,
		},
		&Layer{
			WeightNode: matrixNode(g, "critic_sum", 1, features, ones),
			Type:       LayerLinear,
			Activation: NoActivation,
		},
	)
}

func evalPenalty(t *testing.T, g *gorgonia.ExprGraph, interp *gorgonia.Node, disc *DiscriminatorNet, lambda float64) []float64 {
	t.Helper()
	penalty, err := GradientPenalty(interp, disc, lambda)
	require.NoError(t, err)
	var out gorgonia.Value
	gorgonia.Read(penalty, &out)
	machine := gorgonia.NewTapeMachine(g)
	defer machine.Close()
	require.NoError(t, machine.RunAll())
	data, ok := out.Data().([]float64)
	require.True(t, ok, "penalty backing must be []float64, got %T", out.Data())
	require.Len(t, data, interp.Shape()[0])
	return data
}

func TestInterpolateBatch(t *testing.T) {
	real := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{1, 2, 3, 4}))
	fake := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{5, 6, 7, 8}))
	alpha := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float64{1.0, 0.25}))

	interp, err := InterpolateBatch(real, fake, alpha)
	require.NoError(t, err)
	// First sample is fully real, second is a quarter real
	assert.InDeltaSlice(t, []float64{1, 2, 6, 7}, interp.Data().([]float64), 1e-12)

	short := tensor.New(tensor.WithShape(1, 2), tensor.WithBacking([]float64{0, 0}))
	_, err = InterpolateBatch(real, short, alpha)
	assert.Error(t, err)
	_, err = InterpolateBatch(real, fake, tensor.New(tensor.WithShape(3, 1), tensor.WithBacking([]float64{0, 0, 0})))
	assert.Error(t, err)
	_, err = InterpolateBatch(nil, fake, alpha)
	assert.Error(t, err)
}

func TestGradientPenaltyZeroAtUnitNorm(t *testing.T) {
	g := gorgonia.NewGraph()
	interp := matrixNode(g, "interp", 2, 2, []float64{0.5, -0.25, 0.1, 0.9})

	// ||(0.6, 0.8)|| = 1, so the penalty vanishes for any inputs
	penalties := evalPenalty(t, g, interp, linearCritic(g, []float64{0.6, 0.8}), 10.0)
	for i, p := range penalties {
		assert.InDelta(t, 0.0, p, 1e-9, "sample %d", i)
	}
}

func TestGradientPenaltyClosedForm(t *testing.T) {
	g := gorgonia.NewGraph()
	interp := matrixNode(g, "interp", 2, 2, []float64{1, 2, -1, -2})

	// Gradient is always (3, 4), norm 5: every sample gets lambda*(5-1)^2
	penalties := evalPenalty(t, g, interp, linearCritic(g, []float64{3, 4}), 10.0)
	for i, p := range penalties {
		assert.InDelta(t, 160.0, p, 1e-9, "sample %d", i)
	}
}

func TestGradientPenaltyNonNegative(t *testing.T) {
	g := gorgonia.NewGraph()
	interp := matrixNode(g, "interp", 3, 2, []float64{0.5, -0.25, 0.1, 0.9, -0.7, 0.3})

	penalties := evalPenalty(t, g, interp, linearCritic(g, []float64{0.2, -1.7}), 10.0)
	for i, p := range penalties {
		assert.GreaterOrEqual(t, p, 0.0, "sample %d", i)
	}
}

func TestGradientPenaltyPerSampleAlpha(t *testing.T) {
	// Real rows are (2, 0), fake rows are (0, 0): the mixed point is (2*alpha, 0),
	// the quadratic critic's gradient is 2*interp, so the per-sample norm is
	// 4*alpha and the penalty is lambda*(4*alpha - 1)^2.
	real := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{2, 0, 2, 0}))
	fake := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float64{0, 0, 0, 0}))
	alpha := tensor.New(tensor.WithShape(2, 1), tensor.WithBacking([]float64{0.25, 0.75}))
	mixed, err := InterpolateBatch(real, fake, alpha)
	require.NoError(t, err)

	g := gorgonia.NewGraph()
	interp := matrixNode(g, "interp", 2, 2, mixed.Data().([]float64))

	penalties := evalPenalty(t, g, interp, quadraticCritic(g, 2), 1.0)
	assert.InDelta(t, 0.0, penalties[0], 1e-9)
	assert.InDelta(t, 4.0, penalties[1], 1e-9)
}
