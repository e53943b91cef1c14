// Package graph describes exported tensor programs: an ordered list of nodes,
// each an operator invocation with positional arguments that may reference
// the outputs of other nodes.
package graph

import (
	"errors"
	"fmt"

	"github.com/born-ml/bornc/internal/tensor"
)

// Graph errors.
var (
	ErrUnknownNode   = errors.New("reference to unknown node")
	ErrDuplicateNode = errors.New("duplicate node name")
	ErrCycle         = errors.New("graph contains a cycle")
	ErrNoOutput      = errors.New("graph has no output node")
)

// Graph is an exported program graph.
type Graph struct {
	Name   string
	nodes  []*Node
	byName map[string]*Node
}

// New creates an empty graph.
func New(name string) *Graph {
	return &Graph{
		Name:   name,
		byName: make(map[string]*Node),
	}
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.nodes)
}

// Lookup returns the node with the given name, or nil.
func (g *Graph) Lookup(name string) *Node {
	return g.byName[name]
}

// Add appends n to the graph and links it as a user of the nodes it references.
// References to nodes not yet in the graph are resolved by Link.
func (g *Graph) Add(n *Node) (*Node, error) {
	if n.Name == "" {
		return nil, fmt.Errorf("node with op %q has no name", n.Op)
	}
	if _, dup := g.byName[n.Name]; dup {
		return nil, fmt.Errorf("%w: %q", ErrDuplicateNode, n.Name)
	}
	g.nodes = append(g.nodes, n)
	g.byName[n.Name] = n
	return n, nil
}

// Placeholder adds a graph input.
func (g *Graph) Placeholder(name string, meta Meta) *Node {
	return g.mustAdd(&Node{Name: name, Op: OpPlaceholder, Meta: meta})
}

// GetAttr adds a constant attribute of the program.
func (g *Graph) GetAttr(name string, value *tensor.RawTensor) *Node {
	meta := Meta{Shape: value.Shape().Clone(), DType: value.DType().String()}
	return g.mustAdd(&Node{Name: name, Op: OpGetAttr, Target: name, Meta: meta, Value: value})
}

// CallFunction adds an operator invocation.
func (g *Graph) CallFunction(name, target string, args []Argument, kwargs map[string]Argument, meta Meta) *Node {
	return g.mustAdd(&Node{Name: name, Op: OpCallFunction, Target: target, Args: args, Kwargs: kwargs, Meta: meta})
}

// Output adds the output node returning the given nodes.
func (g *Graph) Output(results ...*Node) *Node {
	items := make([]Argument, len(results))
	for i, r := range results {
		items[i] = Ref(r)
	}
	return g.mustAdd(&Node{Name: "output", Op: OpOutput, Args: []Argument{List(items...)}})
}

// mustAdd is used by the programmatic builders, whose callers control names.
func (g *Graph) mustAdd(n *Node) *Node {
	if _, err := g.Add(n); err != nil {
		panic(err)
	}
	if err := g.link(n); err != nil {
		panic(err)
	}
	return n
}

// Link resolves by-name references and rebuilds every node's user list.
func (g *Graph) Link() error {
	for _, n := range g.nodes {
		n.users = nil
	}
	for _, n := range g.nodes {
		if err := g.link(n); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) link(n *Node) error {
	for i := range n.Args {
		if err := n.Args[i].resolve(g); err != nil {
			return fmt.Errorf("node %s: %w", n.Name, err)
		}
	}
	for k, a := range n.Kwargs {
		if err := a.resolve(g); err != nil {
			return fmt.Errorf("node %s: kwarg %s: %w", n.Name, k, err)
		}
		n.Kwargs[k] = a
	}
	for _, dep := range n.Inputs() {
		dep.users = append(dep.users, n)
	}
	return nil
}

// Inputs returns the placeholder nodes in order.
func (g *Graph) Inputs() []*Node {
	var in []*Node
	for _, n := range g.nodes {
		if n.Op == OpPlaceholder {
			in = append(in, n)
		}
	}
	return in
}

// OutputNode returns the graph's output node, or nil.
func (g *Graph) OutputNode() *Node {
	for _, n := range g.nodes {
		if n.Op == OpOutput {
			return n
		}
	}
	return nil
}

// Outputs returns the nodes returned by the output node.
func (g *Graph) Outputs() []*Node {
	out := g.OutputNode()
	if out == nil {
		return nil
	}
	return out.Inputs()
}

// Validate checks that the graph has exactly one output node and is acyclic.
func (g *Graph) Validate() error {
	outputs := 0
	for _, n := range g.nodes {
		if n.Op == OpOutput {
			outputs++
		}
		if n.Op == OpCallFunction && n.Target == "" {
			return fmt.Errorf("node %s: call_function without target", n.Name)
		}
	}
	if outputs == 0 {
		return ErrNoOutput
	}
	if outputs > 1 {
		return fmt.Errorf("graph has %d output nodes, want 1", outputs)
	}
	_, err := g.TopologicalSort()
	return err
}

// TopologicalSort returns the nodes in execution order.
// Dependencies come before dependents; ties keep insertion order.
func (g *Graph) TopologicalSort() ([]*Node, error) {
	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[*Node]int, len(g.nodes))
	result := make([]*Node, 0, len(g.nodes))

	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch state[n] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w at node %s", ErrCycle, n.Name)
		}
		state[n] = visiting

		// Visit dependencies first
		for _, dep := range n.Inputs() {
			if err := visit(dep); err != nil {
				return err
			}
		}

		state[n] = done
		result = append(result, n)
		return nil
	}

	for _, n := range g.nodes {
		if err := visit(n); err != nil {
			return nil, err
		}
	}
	return result, nil
}
