package builders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/tensor"
	"github.com/born-ml/bornc/internal/wrapper"
)

func TestElementWiseWithStaticOperand(t *testing.T) {
	g := graph.New("test")
	meta := graph.Meta{Shape: []int{4}, DType: "torch.float32"}
	x := g.Placeholder("x", meta)
	r := g.CallFunction("r", TargetArangeStartStep, []graph.Argument{graph.Float(0), graph.Float(4)}, nil, meta)
	sum := g.CallFunction("sum", "aten.add.Tensor", []graph.Argument{graph.Ref(x), graph.Ref(r)}, nil, meta)
	g.Output(sum)

	tensors := NewNodeTensors()
	var base Base
	_, err := base.DefineTensorFromMeta(x, x, wrapper.TensorTypeAppWrite, tensors)
	require.NoError(t, err)
	_, err = (&Arange{}).DefineNode(r, tensors)
	require.NoError(t, err)

	op, err := (&ElementWise{}).DefineNode(sum, tensors)
	require.NoError(t, err)
	require.NotNil(t, op)

	assert.Equal(t, "ElementWiseAdd", op.Type)
	assert.Equal(t, wrapper.DefaultOpPackage, op.Package)
	require.Len(t, op.Inputs, 2)
	assert.Equal(t, wrapper.TensorTypeAppWrite, op.Inputs[0].Type)
	assert.Equal(t, wrapper.TensorTypeStatic, op.Inputs[1].Type)
	require.Len(t, op.Outputs, 1)
	assert.Equal(t, wrapper.TensorTypeAppRead, op.Outputs[0].Type, "graph output is read by the application")
	assert.Equal(t, []int{4}, op.Outputs[0].Shape)
}

func TestElementWiseScalarOperand(t *testing.T) {
	g := graph.New("test")
	meta := graph.Meta{Shape: []int{2}, DType: "float32"}
	x := g.Placeholder("x", meta)
	mul := g.CallFunction("mul", "aten.mul.Tensor", []graph.Argument{graph.Ref(x), graph.Int(3)}, nil, meta)
	relu := g.CallFunction("next", "aten.add.Tensor", []graph.Argument{graph.Ref(mul), graph.Float(1)}, nil, meta)
	g.Output(relu)

	tensors := NewNodeTensors()
	var base Base
	_, err := base.DefineTensorFromMeta(x, x, wrapper.TensorTypeAppWrite, tensors)
	require.NoError(t, err)

	op, err := (&ElementWise{}).DefineNode(mul, tensors)
	require.NoError(t, err)

	assert.Equal(t, "ElementWiseMultiply", op.Type)
	scalar := op.Inputs[1]
	assert.Equal(t, "mul:operand1", scalar.Name)
	assert.Equal(t, wrapper.TensorTypeStatic, scalar.Type)
	assert.Equal(t, []float32{3}, scalar.Data.AsFloat32())
	assert.Equal(t, wrapper.TensorTypeNative, op.Outputs[0].Type)

	// The scalar is recorded but not keyed by any node.
	assert.Equal(t, 2, tensors.Len())
	assert.Len(t, tensors.All(), 3)
}

func TestElementWiseErrors(t *testing.T) {
	g := graph.New("test")
	meta := graph.Meta{Shape: []int{2}, DType: "float32"}
	x := g.Placeholder("x", meta)
	undefined := g.CallFunction("a", "aten.add.Tensor", []graph.Argument{graph.Ref(x), graph.Int(1)}, nil, meta)
	arity := g.CallFunction("b", "aten.add.Tensor", []graph.Argument{graph.Int(1)}, nil, meta)
	alpha := g.CallFunction("c", "aten.sub.Tensor", []graph.Argument{graph.Int(1), graph.Int(1)},
		map[string]graph.Argument{"alpha": graph.Int(2)}, meta)
	noMeta := g.CallFunction("d", "aten.div.Tensor", []graph.Argument{graph.Int(1), graph.Int(1)}, nil, graph.Meta{})

	v := &ElementWise{}
	_, err := v.DefineNode(undefined, NewNodeTensors())
	require.ErrorIs(t, err, ErrUndefinedInput)
	_, err = v.DefineNode(arity, NewNodeTensors())
	require.ErrorIs(t, err, ErrArgCount)
	_, err = v.DefineNode(alpha, NewNodeTensors())
	require.ErrorIs(t, err, ErrUnsupportedArg)
	_, err = v.DefineNode(noMeta, NewNodeTensors())
	require.Error(t, err)
}

func TestElementWiseTargetsSorted(t *testing.T) {
	want := []string{"aten.add.Tensor", "aten.div.Tensor", "aten.mul.Tensor", "aten.sub.Tensor"}
	for range 5 {
		assert.Equal(t, want, (&ElementWise{}).Targets())
	}
}

func TestElementWiseOperandNameTaken(t *testing.T) {
	g := graph.New("test")
	meta := graph.Meta{Shape: []int{2}, DType: "float32"}
	x := g.Placeholder("mul:operand1", meta)
	mul := g.CallFunction("mul", "aten.mul.Tensor", []graph.Argument{graph.Ref(x), graph.Int(3)}, nil, meta)
	g.Output(mul)

	tensors := NewNodeTensors()
	var base Base
	_, err := base.DefineTensorFromMeta(x, x, wrapper.TensorTypeAppWrite, tensors)
	require.NoError(t, err)

	op, err := (&ElementWise{}).DefineNode(mul, tensors)
	require.NoError(t, err)
	require.Len(t, op.Inputs, 2)
	assert.Equal(t, "mul:operand1", op.Inputs[0].Name)
	assert.Equal(t, "mul:operand1_1", op.Inputs[1].Name)
	assert.Equal(t, wrapper.TensorTypeStatic, op.Inputs[1].Type)
	assert.Equal(t, "mul", op.Outputs[0].Name)
	assert.True(t, tensors.Has("mul:operand1_1"))
}

func TestElementWiseFailureRecordsNothing(t *testing.T) {
	g := graph.New("test")
	meta := graph.Meta{Shape: []int{2}, DType: "int64"}
	x := g.Placeholder("x", meta)
	outOfRange := g.CallFunction("a", "aten.add.Tensor", []graph.Argument{graph.Int(1), graph.Int(1 << 40)}, nil, meta)
	undefined := g.CallFunction("b", "aten.add.Tensor", []graph.Argument{graph.Int(1), graph.Ref(x)}, nil, meta)
	taken := g.CallFunction("c", "aten.add.Tensor", []graph.Argument{graph.Int(1), graph.Int(2)}, nil, meta)

	v := &ElementWise{}
	tensors := NewNodeTensors()
	_, err := v.DefineNode(outOfRange, tensors)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = v.DefineNode(undefined, tensors)
	require.ErrorIs(t, err, ErrUndefinedInput)
	assert.Empty(t, tensors.All())

	one, err := tensor.FullRaw(tensor.Shape{1}, tensor.IntScalar(1), tensor.Int32)
	require.NoError(t, err)
	_, err = v.DefineConstant(x, "c", one, tensors)
	require.NoError(t, err)

	_, err = v.DefineNode(taken, tensors)
	require.ErrorIs(t, err, ErrDuplicateTensor)
	require.Len(t, tensors.All(), 1, "operand constants of a failed op are not recorded")
	assert.Zero(t, tensors.Len())
}
