package graph

import (
	"fmt"
	"sort"

	"github.com/born-ml/bornc/internal/tensor"
)

// OpKind is the role of a node in the exported program.
type OpKind string

// Node roles, named as the exporter writes them.
const (
	OpPlaceholder  OpKind = "placeholder"
	OpCallFunction OpKind = "call_function"
	OpGetAttr      OpKind = "get_attr"
	OpOutput       OpKind = "output"
)

// Meta is the tensor metadata the exporter recorded for a node's output.
type Meta struct {
	Shape []int  `yaml:"shape"`
	DType string `yaml:"dtype"`
}

// DataType parses the recorded dtype.
func (m Meta) DataType() (tensor.DataType, error) {
	if m.DType == "" {
		return 0, fmt.Errorf("no dtype recorded")
	}
	return tensor.ParseDataType(m.DType)
}

// Node represents one operator invocation in a program graph.
type Node struct {
	Name   string              // Unique within the graph
	Op     OpKind              // Node role
	Target string              // Operator name for call_function, e.g. "aten.arange.start_step"
	Args   []Argument          // Positional arguments, in order
	Kwargs map[string]Argument // Keyword arguments
	Meta   Meta                // Output tensor metadata
	Value  *tensor.RawTensor   // Inline constant for get_attr and lifted-constant placeholders

	users []*Node
}

// NumArgs returns the number of positional arguments.
func (n *Node) NumArgs() int {
	return len(n.Args)
}

// Arg returns positional argument i, or None if the node has fewer arguments.
func (n *Node) Arg(i int) Argument {
	if i < 0 || i >= len(n.Args) {
		return None()
	}
	return n.Args[i]
}

// Kwarg returns a keyword argument and whether it was present.
func (n *Node) Kwarg(name string) (Argument, bool) {
	a, ok := n.Kwargs[name]
	return a, ok
}

// Users returns the nodes that consume this node's output.
func (n *Node) Users() []*Node {
	return n.users
}

// Inputs returns the nodes this node depends on, in argument order.
func (n *Node) Inputs() []*Node {
	var deps []*Node
	for _, a := range n.Args {
		deps = a.refs(deps)
	}
	keys := make([]string, 0, len(n.Kwargs))
	for k := range n.Kwargs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		deps = n.Kwargs[k].refs(deps)
	}
	return deps
}

// IsGraphOutput reports whether the output node consumes this node.
func (n *Node) IsGraphOutput() bool {
	for _, u := range n.users {
		if u.Op == OpOutput {
			return true
		}
	}
	return false
}

// String returns a one-line description of the node.
func (n *Node) String() string {
	if n.Target != "" {
		return fmt.Sprintf("%%%s = %s[%s]%v", n.Name, n.Op, n.Target, n.Args)
	}
	return fmt.Sprintf("%%%s = %s", n.Name, n.Op)
}
