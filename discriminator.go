package wgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// DiscriminatorNet Abstraction for discriminator (critic) part of GAN.
// Output is an unbounded per-sample score, not a probability.
type DiscriminatorNet struct {
	private *Network
}

// Discriminator Constructor for DiscriminatorNet
func Discriminator(layers ...*Layer) *DiscriminatorNet {
	return &DiscriminatorNet{private: &Network{
		Name:   "discriminator",
		Layers: layers,
	}}
}

// BuildDiscriminator Constructs the fixed critic topology for given config on provided graph.
//
// Convolutional stack over (batchSize, channels, imageSize, imageSize): 4x4 kernels,
// stride 2, padding 1 halve the spatial side down to 4, channel widths double from
// discriminator_filters up; then flatten and a single linear score head with no
// activation. Convolutions carry no bias. Parameters come from the shared store.
func BuildDiscriminator(g *gorgonia.ExprGraph, ps *ParamStore, cfg *Config, channels, batchSize int) (*DiscriminatorNet, error) {
	side := cfg.ImageSize
	if side < 8 || side&(side-1) != 0 {
		return nil, fmt.Errorf("Image size must be a power of two not less than 8, got %d", side)
	}
	nf := cfg.DiscriminatorFilters
	layers := []*Layer{}
	prev := channels
	width := nf
	for ; side > 4; side /= 2 {
		w, err := ps.Node(g, fmt.Sprintf("discriminator_w%d", len(layers)), tensor.Shape{width, prev, 4, 4})
		if err != nil {
			return nil, errors.Wrap(err, "Can't prepare discriminator kernels")
		}
		layers = append(layers, &Layer{
			WeightNode:   w,
			Type:         LayerConvolutional,
			Activation:   LeakyRectify(0.2),
			KernelHeight: 4,
			KernelWidth:  4,
			Padding:      []int{1, 1},
			Stride:       []int{2, 2},
			Dilation:     []int{1, 1},
		})
		prev = width
		width *= 2
	}
	layers = append(layers, &Layer{
		Type:       LayerFlatten,
		Activation: NoActivation,
	})
	head, err := ps.Node(g, "discriminator_head", tensor.Shape{1, prev * 4 * 4})
	if err != nil {
		return nil, errors.Wrap(err, "Can't prepare discriminator score head")
	}
	layers = append(layers, &Layer{
		WeightNode: head,
		Type:       LayerLinear,
		Activation: NoActivation,
	})
	return Discriminator(layers...), nil
}

// Learnables Returns learnables nodes
func (net *DiscriminatorNet) Learnables() gorgonia.Nodes {
	return net.private.Learnables()
}

// SetTrainable Toggles whether optimizer steps may touch the critic learnables
func (net *DiscriminatorNet) SetTrainable(t bool) {
	net.private.SetTrainable(t)
}

// Trainable Reports current trainability of the critic learnables
func (net *DiscriminatorNet) Trainable() bool {
	return net.private.Trainable()
}

// Apply Feedforwards provided batch through the critic, returns (batchSize, 1) scores
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *DiscriminatorNet) Apply(input *gorgonia.Node, batchSize int) (*gorgonia.Node, error) {
	out, err := net.private.Apply(input, batchSize)
	if err != nil {
		return nil, errors.Wrap(err, "[Discriminator]")
	}
	return out, nil
}
