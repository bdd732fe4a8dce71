package wgan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/gorgonia"
)

func TestLeakyRectify(t *testing.T) {
	g := gorgonia.NewGraph()
	x := matrixNode(g, "x", 1, 4, []float64{-2, -0.5, 0, 3})

	out, err := LeakyRectify(0.2)(x)
	require.NoError(t, err)
	var val gorgonia.Value
	gorgonia.Read(out, &val)
	machine := gorgonia.NewTapeMachine(g)
	defer machine.Close()
	require.NoError(t, machine.RunAll())

	assert.InDeltaSlice(t, []float64{-0.4, -0.1, 0, 3}, val.Data().([]float64), 1e-12)
}
