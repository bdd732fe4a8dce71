package wgan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
)

func evalScalarNode(t *testing.T, g *gorgonia.ExprGraph, node *gorgonia.Node) float64 {
	t.Helper()
	var out gorgonia.Value
	gorgonia.Read(node, &out)
	machine := gorgonia.NewTapeMachine(g)
	defer machine.Close()
	require.NoError(t, machine.RunAll())
	v, err := scalarValue(out)
	require.NoError(t, err)
	return v
}

func TestCriticLoss(t *testing.T) {
	g := gorgonia.NewGraph()
	real := matrixNode(g, "real_score", 2, 1, []float64{1, 3})
	fake := matrixNode(g, "fake_score", 2, 1, []float64{2, 5})
	penalty := matrixNode(g, "penalty", 2, 1, []float64{0.5, 0.5})

	loss, err := CriticLoss(real, fake, penalty)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, evalScalarNode(t, g, loss), 1e-12)
}

func TestWassersteinEstimate(t *testing.T) {
	g := gorgonia.NewGraph()
	real := matrixNode(g, "real_score", 2, 1, []float64{1, 3})
	fake := matrixNode(g, "fake_score", 2, 1, []float64{2, 5})

	wdist, err := WassersteinEstimate(real, fake)
	require.NoError(t, err)
	assert.InDelta(t, -1.5, evalScalarNode(t, g, wdist), 1e-12)
}

func TestGeneratorLoss(t *testing.T) {
	g := gorgonia.NewGraph()
	fake := matrixNode(g, "fake_score", 2, 1, []float64{2, 5})

	loss, err := GeneratorLoss(fake)
	require.NoError(t, err)
	assert.InDelta(t, -3.5, evalScalarNode(t, g, loss), 1e-12)
}
