package graph

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/born-ml/bornc/internal/tensor"
)

// fileGraph is the on-disk YAML layout of an exported program.
type fileGraph struct {
	Name  string     `yaml:"name"`
	Nodes []fileNode `yaml:"nodes"`
}

type fileNode struct {
	Name   string              `yaml:"name"`
	Op     OpKind              `yaml:"op"`
	Target string              `yaml:"target"`
	Args   []Argument          `yaml:"args"`
	Kwargs map[string]Argument `yaml:"kwargs"`
	Meta   Meta                `yaml:"meta"`
	Value  *fileConstant       `yaml:"value"`
}

type fileConstant struct {
	DType string    `yaml:"dtype"`
	Shape []int     `yaml:"shape"`
	Data  []float64 `yaml:"data"`
}

// LoadFile parses a graph from a YAML file.
//
//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for graph loading
func LoadFile(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	g, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Parse parses a graph from YAML.
//
// Example:
//
//	name: ranges
//	nodes:
//	  - {name: arange, op: call_function, target: aten.arange.start_step, args: [2, 10, 2]}
//	  - {name: output, op: output, args: [[{node: arange}]]}
func Parse(data []byte) (*Graph, error) {
	var fg fileGraph
	if err := yaml.Unmarshal(data, &fg); err != nil {
		return nil, fmt.Errorf("failed to parse graph: %w", err)
	}

	g := New(fg.Name)
	for i := range fg.Nodes {
		fn := &fg.Nodes[i]
		n := &Node{
			Name:   fn.Name,
			Op:     fn.Op,
			Target: fn.Target,
			Args:   fn.Args,
			Kwargs: fn.Kwargs,
			Meta:   fn.Meta,
		}
		switch n.Op {
		case OpPlaceholder, OpCallFunction, OpGetAttr, OpOutput:
		default:
			return nil, fmt.Errorf("node %s: unknown op %q", fn.Name, fn.Op)
		}
		if fn.Value != nil {
			v, err := fn.Value.tensor()
			if err != nil {
				return nil, fmt.Errorf("node %s: value: %w", fn.Name, err)
			}
			n.Value = v
		}
		if _, err := g.Add(n); err != nil {
			return nil, err
		}
	}

	if err := g.Link(); err != nil {
		return nil, err
	}
	return g, nil
}

func (c *fileConstant) tensor() (*tensor.RawTensor, error) {
	dtype := tensor.Float32
	if c.DType != "" {
		dt, err := tensor.ParseDataType(c.DType)
		if err != nil {
			return nil, err
		}
		dtype = dt
	}

	shape := tensor.Shape(c.Shape)
	if c.Shape == nil {
		shape = tensor.Shape{len(c.Data)}
	}
	t, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(c.Data) != t.NumElements() {
		return nil, fmt.Errorf("%d values for shape %v", len(c.Data), c.Shape)
	}
	for i, v := range c.Data {
		t.SetFloat64At(i, v)
	}
	return t, nil
}

// UnmarshalYAML decodes an argument from its YAML form:
// numbers, booleans, strings, null, sequences, and {node: name} references.
func (a *Argument) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return a.decodeScalar(value)
	case yaml.SequenceNode:
		items := make([]Argument, len(value.Content))
		for i, child := range value.Content {
			if err := items[i].UnmarshalYAML(child); err != nil {
				return err
			}
		}
		*a = List(items...)
		return nil
	case yaml.MappingNode:
		var ref struct {
			Node string `yaml:"node"`
		}
		if err := value.Decode(&ref); err != nil {
			return err
		}
		if ref.Node == "" {
			return fmt.Errorf("line %d: mapping argument must be {node: name}", value.Line)
		}
		*a = Argument{kind: ArgNode, nodeName: ref.Node}
		return nil
	default:
		return fmt.Errorf("line %d: unsupported argument", value.Line)
	}
}

func (a *Argument) decodeScalar(value *yaml.Node) error {
	switch value.Tag {
	case "!!null":
		*a = None()
	case "!!int":
		var v int64
		if err := value.Decode(&v); err != nil {
			return err
		}
		*a = Int(v)
	case "!!float":
		var v float64
		if err := value.Decode(&v); err != nil {
			return err
		}
		*a = Float(v)
	case "!!bool":
		var v bool
		if err := value.Decode(&v); err != nil {
			return err
		}
		*a = Bool(v)
	default:
		*a = Str(value.Value)
	}
	return nil
}
