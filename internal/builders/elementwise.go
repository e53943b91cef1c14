package builders

import (
	"fmt"
	"sort"

	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/tensor"
	"github.com/born-ml/bornc/internal/wrapper"
)

// elementWiseOps maps binary targets to accelerator op types.
var elementWiseOps = map[string]string{
	"aten.add.Tensor": "ElementWiseAdd",
	"aten.sub.Tensor": "ElementWiseSubtract",
	"aten.mul.Tensor": "ElementWiseMultiply",
	"aten.div.Tensor": "ElementWiseDivide",
}

// ElementWise lowers binary arithmetic onto accelerator element-wise ops.
// Scalar operands become static tensors of the output type, named
// "<node>:operand<i>" with a numeric suffix if that name is taken.
type ElementWise struct {
	Base
}

// Targets implements NodeVisitor.
func (*ElementWise) Targets() []string {
	targets := make([]string, 0, len(elementWiseOps))
	for target := range elementWiseOps {
		targets = append(targets, target)
	}
	sort.Strings(targets)
	return targets
}

// DefineNode implements NodeVisitor.
//
// Nothing is added to tensors unless the whole op can be built.
func (e *ElementWise) DefineNode(node *graph.Node, tensors *NodeTensors) (*wrapper.OpWrapper, error) {
	opType, ok := elementWiseOps[node.Target]
	if !ok {
		return nil, fmt.Errorf("%w: target %s", ErrUnsupportedArg, node.Target)
	}
	if node.NumArgs() != 2 {
		return nil, fmt.Errorf("%s: %w: expected 2 operands, got %d", node.Target, ErrArgCount, node.NumArgs())
	}
	if alpha, ok := node.Kwarg("alpha"); ok && !alpha.IsNone() {
		a, err := alpha.Scalar()
		if err != nil || a.Float64() != 1 {
			return nil, fmt.Errorf("%s: %w: alpha=%s", node.Target, ErrUnsupportedArg, alpha)
		}
	}

	outType, err := node.Meta.DataType()
	if err != nil {
		return nil, fmt.Errorf("%s: output: %w", node.Target, err)
	}

	inputs := make([]*wrapper.TensorWrapper, 0, node.NumArgs())
	var constants []*wrapper.TensorWrapper
	for i, arg := range node.Args {
		in, constant, err := e.operand(node, i, arg, outType, tensors)
		if err != nil {
			return nil, fmt.Errorf("%s: operand %d: %w", node.Target, i, err)
		}
		inputs = append(inputs, in)
		if constant {
			constants = append(constants, in)
		}
	}

	out, defined := tensors.Get(node)
	if !defined {
		if out, err = e.metaTensor(node, node, e.OutputKind(node)); err != nil {
			return nil, err
		}
		if tensors.Has(out.Name) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateTensor, out.Name)
		}
	}

	for _, c := range constants {
		tensors.addConstant(c)
	}
	if !defined {
		if err := tensors.add(node, out); err != nil {
			return nil, err
		}
	}

	op := wrapper.NewOpWrapper(node.Name, opType)
	op.AddInputs(inputs...)
	op.AddOutputs(out)
	return op, nil
}

// operand resolves arg to an already-defined tensor. A scalar becomes a static
// tensor that is not yet recorded, and the second result is true.
func (e *ElementWise) operand(node *graph.Node, i int, arg graph.Argument, dtype tensor.DataType, tensors *NodeTensors) (*wrapper.TensorWrapper, bool, error) {
	if arg.Kind() == graph.ArgNode {
		src, err := arg.Node()
		if err != nil {
			return nil, false, err
		}
		w, ok := tensors.Get(src)
		if !ok {
			return nil, false, fmt.Errorf("%w: %s", ErrUndefinedInput, src.Name)
		}
		return w, false, nil
	}

	s, err := arg.Scalar()
	if err != nil {
		return nil, false, err
	}
	value, err := tensor.FullRaw(tensor.Shape{1}, s, dtype)
	if err != nil {
		return nil, false, err
	}
	c, err := e.newConstant(node, fmt.Sprintf("%s:operand%d", node.Name, i), value)
	if err != nil {
		return nil, false, err
	}
	return c, true, nil
}
