package wgan

import (
	"fmt"

	"gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// ParamStore Named parameter tensors shared by every expression graph of the run.
//
// Each update step program lives on its own expression graph, yet all of them must
// see the same model weights. Nodes created through the store share one tensor.Dense
// backing (gorgonia.WithValue), and solvers update those tensors in place, so a step
// on one graph is immediately visible to the others. Same trick the dual-graph GAN
// setups use for keeping the frozen critic copy in sync.
type ParamStore struct {
	names  []string
	values map[string]*tensor.Dense
}

func NewParamStore() *ParamStore {
	return &ParamStore{
		values: make(map[string]*tensor.Dense),
	}
}

// Node Returns a node for the named parameter on the given graph.
// First request for a name initializes the backing tensor (Glorot by default);
// every following request (other graphs, restored runs) reuses the same backing.
func (ps *ParamStore) Node(g *gorgonia.ExprGraph, name string, shape tensor.Shape) (*gorgonia.Node, error) {
	if existing, ok := ps.values[name]; ok {
		if !existing.Shape().Eq(shape) {
			return nil, fmt.Errorf("Parameter '%s' has shape %v, but %v is requested", name, existing.Shape(), shape)
		}
		return gorgonia.NewTensor(g, gorgonia.Float64, len(shape), gorgonia.WithShape(shape...), gorgonia.WithName(name), gorgonia.WithValue(existing)), nil
	}
	node := gorgonia.NewTensor(g, gorgonia.Float64, len(shape), gorgonia.WithShape(shape...), gorgonia.WithName(name), gorgonia.WithInit(gorgonia.GlorotN(1.0)))
	dense, ok := node.Value().(*tensor.Dense)
	if !ok {
		return nil, fmt.Errorf("Parameter '%s' has non-dense value of type %T", name, node.Value())
	}
	ps.names = append(ps.names, name)
	ps.values[name] = dense
	return node, nil
}

// Set Registers (or replaces) the backing tensor for a named parameter.
// Used by checkpoint restore before any model is built.
func (ps *ParamStore) Set(name string, value *tensor.Dense) {
	if _, ok := ps.values[name]; !ok {
		ps.names = append(ps.names, name)
	}
	ps.values[name] = value
}

// Get Returns the backing tensor of the named parameter
func (ps *ParamStore) Get(name string) (*tensor.Dense, bool) {
	v, ok := ps.values[name]
	return v, ok
}

// Names Returns parameter names in registration order
func (ps *ParamStore) Names() []string {
	out := make([]string, len(ps.names))
	copy(out, ps.names)
	return out
}
