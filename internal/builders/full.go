package builders

import (
	"fmt"

	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/tensor"
	"github.com/born-ml/bornc/internal/wrapper"
)

// Fill targets.
const (
	TargetFull         = "aten.full.default"
	TargetZeros        = "aten.zeros.default"
	TargetOnes         = "aten.ones.default"
	TargetScalarTensor = "aten.scalar_tensor.default"
)

// Full folds constant-filled tensors into static tensors.
type Full struct {
	Base
}

// Targets implements NodeVisitor.
func (*Full) Targets() []string {
	return []string{TargetFull, TargetZeros, TargetOnes, TargetScalarTensor}
}

// DefineNode implements NodeVisitor.
func (f *Full) DefineNode(node *graph.Node, tensors *NodeTensors) (*wrapper.OpWrapper, error) {
	shape, value, err := fillArgs(node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.Target, err)
	}

	dtype, err := dtypeKwarg(node)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.Target, err)
	}
	dt := tensor.Float32
	switch {
	case dtype != nil:
		dt = *dtype
	case node.Target == TargetFull && !value.IsFloat():
		dt = fillDType(node.Arg(1))
	}

	out, err := tensor.FullRaw(shape, value, dt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.Target, err)
	}
	if _, err := f.DefineTensor(node, node, out, wrapper.TensorTypeStatic, tensors); err != nil {
		return nil, err
	}
	return nil, nil
}

func fillArgs(node *graph.Node) (tensor.Shape, tensor.Scalar, error) {
	switch node.Target {
	case TargetScalarTensor:
		if node.NumArgs() != 1 {
			return nil, tensor.Scalar{}, fmt.Errorf("%w: expected value, got %d arguments", ErrArgCount, node.NumArgs())
		}
		v, err := node.Arg(0).Scalar()
		return tensor.Shape{}, v, err
	case TargetFull:
		if node.NumArgs() != 2 {
			return nil, tensor.Scalar{}, fmt.Errorf("%w: expected size, fill_value, got %d arguments", ErrArgCount, node.NumArgs())
		}
	default:
		if node.NumArgs() != 1 {
			return nil, tensor.Scalar{}, fmt.Errorf("%w: expected size, got %d arguments", ErrArgCount, node.NumArgs())
		}
	}

	size, err := node.Arg(0).Ints()
	if err != nil {
		return nil, tensor.Scalar{}, fmt.Errorf("size: %w", err)
	}

	var value tensor.Scalar
	switch node.Target {
	case TargetZeros:
		value = tensor.FloatScalar(0)
	case TargetOnes:
		value = tensor.FloatScalar(1)
	default:
		if value, err = node.Arg(1).Scalar(); err != nil {
			return nil, tensor.Scalar{}, fmt.Errorf("fill_value: %w", err)
		}
	}
	return tensor.Shape(size), value, nil
}

// fillDType infers the dtype of full() from an integer or boolean fill value.
func fillDType(fill graph.Argument) tensor.DataType {
	if fill.Kind() == graph.ArgBool {
		return tensor.Bool
	}
	return tensor.Int64
}
