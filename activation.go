package wgan

import (
	"gorgonia.org/gorgonia"
)

// ActivationFunc Just an alias to Gorgonia'a api_gen.go - https://github.com/gorgonia/gorgonia/blob/master/api_gen.go#L1
type ActivationFunc func(a *gorgonia.Node) (*gorgonia.Node, error)

func NoActivation(a *gorgonia.Node) (*gorgonia.Node, error) { return a, nil }
func Tanh(a *gorgonia.Node) (*gorgonia.Node, error)         { return gorgonia.Tanh(a) }
func Sigmoid(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Sigmoid(a) }
func Rectify(a *gorgonia.Node) (*gorgonia.Node, error)      { return gorgonia.Rectify(a) }
func Square(a *gorgonia.Node) (*gorgonia.Node, error)       { return gorgonia.Square(a) }

// LeakyRectify Returns activation function evaluating max(x, slope*x).
// Composed as relu(x) - slope*relu(-x) since there is no ready-made op for it.
func LeakyRectify(slope float64) ActivationFunc {
	return func(a *gorgonia.Node) (*gorgonia.Node, error) {
		pos, err := gorgonia.Rectify(a)
		if err != nil {
			return nil, err
		}
		neg, err := gorgonia.Neg(a)
		if err != nil {
			return nil, err
		}
		negPart, err := gorgonia.Rectify(neg)
		if err != nil {
			return nil, err
		}
		scaled, err := gorgonia.Mul(negPart, gorgonia.NewConstant(slope))
		if err != nil {
			return nil, err
		}
		return gorgonia.Sub(pos, scaled)
	}
}
