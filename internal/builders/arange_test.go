package builders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/tensor"
	"github.com/born-ml/bornc/internal/wrapper"
)

func arangeNode(t *testing.T, target string, args ...graph.Argument) *graph.Node {
	t.Helper()
	g := graph.New("test")
	n := g.CallFunction("arange", target, args, nil, graph.Meta{})
	g.Output(n)
	return n
}

func TestArangeDefaultStep(t *testing.T) {
	node := arangeNode(t, TargetArangeStartStep, graph.Int(0), graph.Int(5))
	tensors := NewNodeTensors()

	op, err := (&Arange{}).DefineNode(node, tensors)
	require.NoError(t, err)
	assert.Nil(t, op, "arange is folded, no accelerator op")

	require.Equal(t, 1, tensors.Len())
	w, ok := tensors.Get(node)
	require.True(t, ok)
	assert.Equal(t, wrapper.TensorTypeStatic, w.Type)
	assert.Equal(t, []int{5}, w.Shape)
	assert.Equal(t, wrapper.DataTypeInt32, w.DataType)
	assert.Equal(t, []int32{0, 1, 2, 3, 4}, w.Data.AsInt32())
	assert.Equal(t, "arange", w.Source)
}

func TestArangeWithStep(t *testing.T) {
	node := arangeNode(t, TargetArangeStartStep, graph.Int(2), graph.Int(10), graph.Int(2))
	tensors := NewNodeTensors()

	_, err := (&Arange{}).DefineNode(node, tensors)
	require.NoError(t, err)

	w, ok := tensors.Get(node)
	require.True(t, ok)
	assert.Equal(t, []int32{2, 4, 6, 8}, w.Data.AsInt32())
}

func TestArangeFloat(t *testing.T) {
	node := arangeNode(t, TargetArangeStartStep, graph.Float(0), graph.Float(1), graph.Float(0.5))
	tensors := NewNodeTensors()

	_, err := (&Arange{}).DefineNode(node, tensors)
	require.NoError(t, err)

	w, _ := tensors.Get(node)
	assert.Equal(t, wrapper.DataTypeFloat32, w.DataType)
	assert.Equal(t, []float32{0, 0.5}, w.Data.AsFloat32())
}

func TestArangeDTypeKwarg(t *testing.T) {
	g := graph.New("test")
	node := g.CallFunction("arange", TargetArangeStart,
		[]graph.Argument{graph.Int(0), graph.Int(3)},
		map[string]graph.Argument{"dtype": graph.Str("torch.float16")},
		graph.Meta{})
	tensors := NewNodeTensors()

	_, err := (&Arange{}).DefineNode(node, tensors)
	require.NoError(t, err)

	w, _ := tensors.Get(node)
	assert.Equal(t, wrapper.DataTypeFloat16, w.DataType)
	assert.Equal(t, tensor.Float16, w.Data.DType())
	assert.Equal(t, 6, w.ByteSize())
}

func TestArangeEndOnly(t *testing.T) {
	node := arangeNode(t, TargetArange, graph.Int(3))
	tensors := NewNodeTensors()

	_, err := (&Arange{}).DefineNode(node, tensors)
	require.NoError(t, err)

	w, _ := tensors.Get(node)
	assert.Equal(t, []int32{0, 1, 2}, w.Data.AsInt32())
}

func TestArangeErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		args   []graph.Argument
		want   error
	}{
		{"one argument", TargetArangeStartStep, []graph.Argument{graph.Int(5)}, ErrArgCount},
		{"four arguments", TargetArangeStartStep, []graph.Argument{graph.Int(0), graph.Int(5), graph.Int(1), graph.Int(1)}, ErrArgCount},
		{"no arguments", TargetArange, nil, ErrArgCount},
		{"zero step", TargetArangeStartStep, []graph.Argument{graph.Int(0), graph.Int(5), graph.Int(0)}, tensor.ErrZeroStep},
		{"step sign", TargetArangeStartStep, []graph.Argument{graph.Int(5), graph.Int(0), graph.Int(1)}, tensor.ErrStepSign},
		{"non-numeric", TargetArangeStartStep, []graph.Argument{graph.Str("a"), graph.Int(5)}, graph.ErrNotScalar},
		{"empty range", TargetArangeStartStep, []graph.Argument{graph.Int(3), graph.Int(3)}, ErrEmptyStatic},
		{"int32 overflow", TargetArangeStartStep, []graph.Argument{graph.Int(1 << 31), graph.Int(1<<31 + 2)}, ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			node := arangeNode(t, tt.target, tt.args...)
			tensors := NewNodeTensors()

			_, err := (&Arange{}).DefineNode(node, tensors)
			require.ErrorIs(t, err, tt.want)
			assert.Equal(t, 0, tensors.Len(), "failed node must not define a tensor")
		})
	}
}

func TestArangeDefinedOnce(t *testing.T) {
	node := arangeNode(t, TargetArangeStartStep, graph.Int(0), graph.Int(4))
	tensors := NewNodeTensors()
	v := &Arange{}

	_, err := v.DefineNode(node, tensors)
	require.NoError(t, err)
	first, _ := tensors.Get(node)

	_, err = v.DefineNode(node, tensors)
	require.NoError(t, err)
	second, _ := tensors.Get(node)

	assert.Same(t, first, second)
	assert.Equal(t, 1, tensors.Len())
	assert.Len(t, tensors.All(), 1)
}
