package wgan

import (
	"fmt"

	"github.com/pkg/errors"
	"gorgonia.org/gorgonia"
)

// Network Abstraction for neural network.
//
// Layers - simple sequence of layers
// trainable - whether optimizer steps are allowed to touch the learnables right now
//
// Single Network can be applied to multiple inputs on the same expression graph
// (WGAN critic scores real, generated and interpolated batches within one graph),
// so Apply() returns the output node instead of storing it.
type Network struct {
	Name      string
	Layers    []*Layer
	trainable bool
}

// Learnables Returns learnables nodes
func (net *Network) Learnables() gorgonia.Nodes {
	learnables := make(gorgonia.Nodes, 0, 2*len(net.Layers))
	for _, l := range net.Layers {
		if l != nil {
			if l.WeightNode != nil {
				learnables = append(learnables, l.WeightNode)
			}
			if l.BiasNode != nil {
				learnables = append(learnables, l.BiasNode)
			}
		}
	}
	return learnables
}

// SetTrainable Marks learnables of the network as (not) subject to optimizer steps.
// Update step programs check the flag before stepping their solver.
func (net *Network) SetTrainable(t bool) {
	net.trainable = t
}

// Trainable Reports whether optimizer steps over the learnables are currently allowed
func (net *Network) Trainable() bool {
	return net.trainable
}

// Apply Feedforwards provided input through every layer and returns activated output of the last one
//
// input - Input node
// batchSize - batch size. If it's >= 2 then broadcast function will be applied
//
func (net *Network) Apply(input *gorgonia.Node, batchSize int) (*gorgonia.Node, error) {
	networkName := "network"
	if net.Name != "" {
		networkName = net.Name
	}
	if len(net.Layers) == 0 {
		return nil, fmt.Errorf("Network must have one layer atleast")
	}
	lastActivated := input
	for i, layer := range net.Layers {
		if layer == nil {
			return nil, fmt.Errorf("Network's layer #%d is nil", i)
		}
		nonActivated, err := layer.Fwd(lastActivated, batchSize)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("[Network '%s', Layer #%d] Can't feedforward input before activation", networkName, i))
		}
		activated, err := layer.Activation(nonActivated)
		if err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("Can't apply activation function to non-activated output of Network's ('%s') layer #%d", networkName, i))
		}
		lastActivated = activated
	}
	return lastActivated, nil
}
