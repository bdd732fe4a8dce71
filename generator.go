package wgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// GeneratorNet Abstraction for generator part of GAN
type GeneratorNet struct {
	private *Network
}

// Generator Constructor for GeneratorNet
func Generator(layers ...*Layer) *GeneratorNet {
	return &GeneratorNet{private: &Network{
		Name:   "generator",
		Layers: layers,
	}}
}

// BuildGenerator Constructs the fixed generator topology for given config on provided graph.
//
// Dense stack mapping a noise batch (batchSize, n_noise_features) onto an image batch
// (batchSize, channels, imageSize, imageSize) squashed to [-1;1] by Tanh. Hidden widths
// are multiples of generator_filters. Parameters are created through (or reused from)
// the store, so the same generator weights can be wired into several graphs.
func BuildGenerator(g *gorgonia.ExprGraph, ps *ParamStore, cfg *Config, channels, batchSize int) (*GeneratorNet, error) {
	nf := cfg.GeneratorFilters
	side := cfg.ImageSize
	widths := []int{nf * 2, nf * 4, nf * 8, channels * side * side}
	layers := make([]*Layer, 0, len(widths)+1)
	prev := cfg.NNoiseFeatures
	for i, width := range widths {
		w, err := ps.Node(g, fmt.Sprintf("generator_w%d", i), tensor.Shape{width, prev})
		if err != nil {
			return nil, errors.Wrap(err, "Can't prepare generator weights")
		}
		b, err := ps.Node(g, fmt.Sprintf("generator_b%d", i), tensor.Shape{1, width})
		if err != nil {
			return nil, errors.Wrap(err, "Can't prepare generator biases")
		}
		activation := LeakyRectify(0.2)
		if i == len(widths)-1 {
			activation = Tanh
		}
		layers = append(layers, &Layer{
			WeightNode: w,
			BiasNode:   b,
			Type:       LayerLinear,
			Activation: activation,
		})
		prev = width
	}
	layers = append(layers, &Layer{
		Type:        LayerReshape,
		Activation:  NoActivation,
		ReshapeDims: []int{batchSize, channels, side, side},
	})
	return Generator(layers...), nil
}

// Learnables Returns learnables nodes
func (net *GeneratorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// SetTrainable Toggles whether optimizer steps may touch the generator learnables
func (net *GeneratorNet) SetTrainable(t bool) {
	net.private.SetTrainable(t)
}

// Trainable Reports current trainability of the generator learnables
func (net *GeneratorNet) Trainable() bool {
	return net.private.Trainable()
}

// Apply Feedforwards provided noise batch through the generator
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *GeneratorNet) Apply(input *gorgonia.Node, batchSize int) (*gorgonia.Node, error) {
	out, err := net.private.Apply(input, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "[Generator]")
	}
	return out, nil
}
