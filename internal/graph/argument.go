package graph

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/born-ml/bornc/internal/tensor"
)

// ArgKind tags the variant held by an Argument.
type ArgKind int

// Argument kinds.
const (
	ArgNone ArgKind = iota
	ArgInt
	ArgFloat
	ArgBool
	ArgString
	ArgNode
	ArgList
)

// String returns the kind name.
func (k ArgKind) String() string {
	switch k {
	case ArgNone:
		return "none"
	case ArgInt:
		return "int"
	case ArgFloat:
		return "float"
	case ArgBool:
		return "bool"
	case ArgString:
		return "string"
	case ArgNode:
		return "node"
	case ArgList:
		return "list"
	default:
		return "unknown"
	}
}

// Argument type errors.
var (
	ErrNotScalar = errors.New("argument is not a number")
	ErrNotNode   = errors.New("argument is not a node reference")
	ErrNotList   = errors.New("argument is not a list")
)

// Argument is one positional or keyword argument of a node.
type Argument struct {
	kind     ArgKind
	i        int64
	f        float64
	b        bool
	s        string
	node     *Node
	nodeName string
	list     []Argument
}

// None returns an empty argument.
func None() Argument { return Argument{kind: ArgNone} }

// Int returns an integer argument.
func Int(v int64) Argument { return Argument{kind: ArgInt, i: v} }

// Float returns a floating point argument.
func Float(v float64) Argument { return Argument{kind: ArgFloat, f: v} }

// Bool returns a boolean argument.
func Bool(v bool) Argument { return Argument{kind: ArgBool, b: v} }

// Str returns a string argument.
func Str(v string) Argument { return Argument{kind: ArgString, s: v} }

// Ref returns an argument referencing the output of n.
func Ref(n *Node) Argument { return Argument{kind: ArgNode, node: n, nodeName: n.Name} }

// List returns a list argument.
func List(items ...Argument) Argument { return Argument{kind: ArgList, list: items} }

// IntList returns a list of integer arguments.
func IntList(values ...int64) Argument {
	items := make([]Argument, len(values))
	for i, v := range values {
		items[i] = Int(v)
	}
	return List(items...)
}

// Kind returns the argument kind.
func (a Argument) Kind() ArgKind { return a.kind }

// IsNone reports whether the argument is empty.
func (a Argument) IsNone() bool { return a.kind == ArgNone }

// Scalar returns a numeric argument as a tensor.Scalar.
// Booleans count as the integers 0 and 1.
func (a Argument) Scalar() (tensor.Scalar, error) {
	switch a.kind {
	case ArgInt:
		return tensor.IntScalar(a.i), nil
	case ArgFloat:
		return tensor.FloatScalar(a.f), nil
	case ArgBool:
		if a.b {
			return tensor.IntScalar(1), nil
		}
		return tensor.IntScalar(0), nil
	default:
		return tensor.Scalar{}, fmt.Errorf("%w: got %s", ErrNotScalar, a.kind)
	}
}

// Node returns the referenced node.
func (a Argument) Node() (*Node, error) {
	if a.kind != ArgNode || a.node == nil {
		return nil, fmt.Errorf("%w: got %s", ErrNotNode, a.kind)
	}
	return a.node, nil
}

// Items returns the elements of a list argument.
func (a Argument) Items() ([]Argument, error) {
	if a.kind != ArgList {
		return nil, fmt.Errorf("%w: got %s", ErrNotList, a.kind)
	}
	return a.list, nil
}

// Ints returns a list of integers, e.g. a size argument.
func (a Argument) Ints() ([]int, error) {
	items, err := a.Items()
	if err != nil {
		return nil, err
	}
	out := make([]int, len(items))
	for i, item := range items {
		if item.kind != ArgInt {
			return nil, fmt.Errorf("element %d: %w: got %s", i, ErrNotScalar, item.kind)
		}
		out[i] = int(item.i)
	}
	return out, nil
}

// StringValue returns the value of a string argument.
func (a Argument) StringValue() (string, bool) {
	return a.s, a.kind == ArgString
}

// String renders the argument in a compact, readable form.
func (a Argument) String() string {
	switch a.kind {
	case ArgNone:
		return "None"
	case ArgInt:
		return strconv.FormatInt(a.i, 10)
	case ArgFloat:
		return strconv.FormatFloat(a.f, 'g', -1, 64)
	case ArgBool:
		return strconv.FormatBool(a.b)
	case ArgString:
		return strconv.Quote(a.s)
	case ArgNode:
		return "%" + a.nodeName
	case ArgList:
		parts := make([]string, len(a.list))
		for i, item := range a.list {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "?"
	}
}

// refs appends every node referenced by a (recursively through lists) to out.
func (a Argument) refs(out []*Node) []*Node {
	switch a.kind {
	case ArgNode:
		if a.node != nil {
			out = append(out, a.node)
		}
	case ArgList:
		for _, item := range a.list {
			out = item.refs(out)
		}
	}
	return out
}

// resolve binds by-name references to nodes of g.
func (a *Argument) resolve(g *Graph) error {
	switch a.kind {
	case ArgNode:
		if a.node != nil {
			return nil
		}
		n := g.Lookup(a.nodeName)
		if n == nil {
			return fmt.Errorf("%w: %q", ErrUnknownNode, a.nodeName)
		}
		a.node = n
	case ArgList:
		for i := range a.list {
			if err := a.list[i].resolve(g); err != nil {
				return err
			}
		}
	}
	return nil
}
