package builders

import (
	"errors"
	"fmt"

	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/tensor"
	"github.com/born-ml/bornc/internal/wrapper"
)

// Visitor errors.
var (
	ErrArgCount        = errors.New("wrong number of arguments")
	ErrEmptyStatic     = errors.New("static tensor has no elements")
	ErrOutOfRange      = errors.New("static value does not fit the accelerator type")
	ErrUndefinedInput  = errors.New("input tensor has not been defined")
	ErrDuplicateTensor = errors.New("duplicate tensor name")
	ErrUnsupportedArg  = errors.New("unsupported argument")
)

// NodeVisitor lowers one graph node.
//
// DefineNode may add tensors to the table and returns the accelerator op it
// built, or nil when the node was folded into tensors only.
type NodeVisitor interface {
	Targets() []string
	DefineNode(node *graph.Node, tensors *NodeTensors) (*wrapper.OpWrapper, error)
}

// NodeTensors maps already-lowered nodes to their tensor wrappers.
// It also keeps every defined tensor, including anonymous constants, in definition order.
// Not safe for concurrent use.
type NodeTensors struct {
	byNode map[*graph.Node]*wrapper.TensorWrapper
	names  map[string]struct{}
	order  []*wrapper.TensorWrapper
}

// NewNodeTensors creates an empty table.
func NewNodeTensors() *NodeTensors {
	return &NodeTensors{
		byNode: make(map[*graph.Node]*wrapper.TensorWrapper),
		names:  make(map[string]struct{}),
	}
}

// Get returns the tensor defined for node.
func (t *NodeTensors) Get(node *graph.Node) (*wrapper.TensorWrapper, bool) {
	w, ok := t.byNode[node]
	return w, ok
}

// Len returns the number of node entries. Anonymous constants are not counted.
func (t *NodeTensors) Len() int {
	return len(t.byNode)
}

// All returns every defined tensor in definition order.
func (t *NodeTensors) All() []*wrapper.TensorWrapper {
	return t.order
}

// Has reports whether a tensor called name has been defined.
func (t *NodeTensors) Has(name string) bool {
	_, ok := t.names[name]
	return ok
}

// UniqueName returns base, or base with the first free numeric suffix.
func (t *NodeTensors) UniqueName(base string) string {
	name := base
	for i := 1; t.Has(name); i++ {
		name = fmt.Sprintf("%s_%d", base, i)
	}
	return name
}

func (t *NodeTensors) addConstant(w *wrapper.TensorWrapper) {
	w.Name = t.UniqueName(w.Name)
	t.names[w.Name] = struct{}{}
	t.order = append(t.order, w)
}

func (t *NodeTensors) add(node *graph.Node, w *wrapper.TensorWrapper) error {
	if _, dup := t.names[w.Name]; dup {
		return fmt.Errorf("%w: %q", ErrDuplicateTensor, w.Name)
	}
	t.names[w.Name] = struct{}{}
	t.order = append(t.order, w)
	if node != nil {
		t.byNode[node] = w
	}
	return nil
}

// Base provides the tensor-definition plumbing shared by all visitors.
type Base struct{}

// DefineTensor records value as the tensor produced by source, for use while
// building target, and returns its wrapper.
//
// If source already has a tensor, that tensor is returned unchanged. Static
// values are narrowed to the accelerator's element types and copied into the
// wrapper; other kinds only take their dtype and shape from value.
func (Base) DefineTensor(source, target *graph.Node, value *tensor.RawTensor, kind wrapper.TensorType, tensors *NodeTensors) (*wrapper.TensorWrapper, error) {
	if w, ok := tensors.Get(source); ok {
		return w, nil
	}

	w, err := newTensorWrapper(source.Name, value, kind)
	if err != nil {
		return nil, fmt.Errorf("tensor %s for %s: %w", source.Name, target.Name, err)
	}
	w.Source = source.Name
	if err := tensors.add(source, w); err != nil {
		return nil, err
	}
	return w, nil
}

// DefineTensorFromMeta defines a non-static tensor for source using the shape
// and dtype the exporter recorded for it.
func (b Base) DefineTensorFromMeta(source, target *graph.Node, kind wrapper.TensorType, tensors *NodeTensors) (*wrapper.TensorWrapper, error) {
	if w, ok := tensors.Get(source); ok {
		return w, nil
	}

	w, err := b.metaTensor(source, target, kind)
	if err != nil {
		return nil, err
	}
	if err := tensors.add(source, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (Base) metaTensor(source, target *graph.Node, kind wrapper.TensorType) (*wrapper.TensorWrapper, error) {
	hostType, err := source.Meta.DataType()
	if err != nil {
		return nil, fmt.Errorf("tensor %s for %s: %w", source.Name, target.Name, err)
	}
	dt, err := wrapper.Narrow(hostType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s for %s: %w", source.Name, target.Name, err)
	}

	shape := append([]int(nil), source.Meta.Shape...)
	if len(shape) == 0 {
		shape = []int{1}
	}
	return &wrapper.TensorWrapper{
		Name:     source.Name,
		Type:     kind,
		DataType: dt,
		Shape:    shape,
		Source:   source.Name,
	}, nil
}

// DefineConstant defines an anonymous static tensor owned by target, such as
// a scalar operand. It is not keyed by any node. If name is taken, a numeric
// suffix is appended.
func (b Base) DefineConstant(target *graph.Node, name string, value *tensor.RawTensor, tensors *NodeTensors) (*wrapper.TensorWrapper, error) {
	w, err := b.newConstant(target, name, value)
	if err != nil {
		return nil, err
	}
	tensors.addConstant(w)
	return w, nil
}

func (Base) newConstant(target *graph.Node, name string, value *tensor.RawTensor) (*wrapper.TensorWrapper, error) {
	w, err := newTensorWrapper(name, value, wrapper.TensorTypeStatic)
	if err != nil {
		return nil, fmt.Errorf("constant %s for %s: %w", name, target.Name, err)
	}
	w.Source = target.Name
	return w, nil
}

// OutputKind returns AppRead for nodes returned by the graph and Native otherwise.
func (Base) OutputKind(node *graph.Node) wrapper.TensorType {
	if node.IsGraphOutput() {
		return wrapper.TensorTypeAppRead
	}
	return wrapper.TensorTypeNative
}

func newTensorWrapper(name string, value *tensor.RawTensor, kind wrapper.TensorType) (*wrapper.TensorWrapper, error) {
	dt, err := wrapper.Narrow(value.DType())
	if err != nil {
		return nil, err
	}

	shape := append([]int(nil), value.Shape()...)
	if len(shape) == 0 {
		shape = []int{1} // The accelerator has no rank-0 tensors.
	}
	w := &wrapper.TensorWrapper{
		Name:     name,
		Type:     kind,
		DataType: dt,
		Shape:    shape,
	}
	if kind != wrapper.TensorTypeStatic {
		return w, nil
	}

	if value.NumElements() == 0 {
		return nil, fmt.Errorf("%w: shape %v", ErrEmptyStatic, []int(value.Shape()))
	}
	if value.DType() == tensor.Int64 && !tensor.FitsInt32(value) {
		return nil, fmt.Errorf("%w: int64 values exceed %s", ErrOutOfRange, dt)
	}

	hostType, err := dt.HostType()
	if err != nil {
		return nil, err
	}
	data, err := tensor.CastRaw(value, hostType)
	if err != nil {
		return nil, err
	}
	w.Data = data
	return w, nil
}
