package builders

import (
	"fmt"

	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/tensor"
	"github.com/born-ml/bornc/internal/wrapper"
)

// Arange targets.
const (
	TargetArangeStartStep = "aten.arange.start_step"
	TargetArangeStart     = "aten.arange.start"
	TargetArange          = "aten.arange.default"
)

// Arange folds range generation into a static tensor.
type Arange struct {
	Base
}

// Targets implements NodeVisitor.
func (*Arange) Targets() []string {
	return []string{TargetArangeStartStep, TargetArangeStart, TargetArange}
}

// DefineNode implements NodeVisitor.
func (a *Arange) DefineNode(node *graph.Node, tensors *NodeTensors) (*wrapper.OpWrapper, error) {
	start, end, step, err := arangeArgs(node)
	if err != nil {
		return nil, fmt.Errorf("arange: %w", err)
	}
	dtype, err := dtypeKwarg(node)
	if err != nil {
		return nil, fmt.Errorf("arange: %w", err)
	}

	out, err := tensor.ArangeRaw(start, end, step, dtype)
	if err != nil {
		return nil, fmt.Errorf("arange(%s, %s, %s): %w", start, end, step, err)
	}

	// The value is known ahead of time, so only a static tensor is built
	// for consumers of this node to reference.
	if _, err := a.DefineTensor(node, node, out, wrapper.TensorTypeStatic, tensors); err != nil {
		return nil, err
	}
	return nil, nil
}

// arangeArgs reads (start, end, step) positionally; step defaults to 1.
// aten.arange.default takes only end, with start 0.
func arangeArgs(node *graph.Node) (start, end, step tensor.Scalar, err error) {
	start, step = tensor.IntScalar(0), tensor.IntScalar(1)

	if node.Target == TargetArange {
		if node.NumArgs() != 1 {
			return start, end, step, fmt.Errorf("%w: expected end, got %d arguments", ErrArgCount, node.NumArgs())
		}
		end, err = node.Arg(0).Scalar()
		return start, end, step, err
	}

	if node.NumArgs() < 2 || node.NumArgs() > 3 {
		return start, end, step, fmt.Errorf("%w: expected start, end[, step], got %d arguments", ErrArgCount, node.NumArgs())
	}
	if start, err = node.Arg(0).Scalar(); err != nil {
		return start, end, step, fmt.Errorf("start: %w", err)
	}
	if end, err = node.Arg(1).Scalar(); err != nil {
		return start, end, step, fmt.Errorf("end: %w", err)
	}
	if node.NumArgs() > 2 {
		if step, err = node.Arg(2).Scalar(); err != nil {
			return start, end, step, fmt.Errorf("step: %w", err)
		}
	}
	return start, end, step, nil
}

// dtypeKwarg returns the explicit dtype keyword argument, or nil.
func dtypeKwarg(node *graph.Node) (*tensor.DataType, error) {
	arg, ok := node.Kwarg("dtype")
	if !ok || arg.IsNone() {
		return nil, nil
	}
	name, isStr := arg.StringValue()
	if !isStr {
		return nil, fmt.Errorf("%w: dtype must be a string, got %s", ErrUnsupportedArg, arg.Kind())
	}
	dt, err := tensor.ParseDataType(name)
	if err != nil {
		return nil, err
	}
	return &dt, nil
}
