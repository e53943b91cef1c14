package wrapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/bornc/internal/tensor"
)

func TestNarrow(t *testing.T) {
	cases := map[tensor.DataType]DataType{
		tensor.Float32: DataTypeFloat32,
		tensor.Float64: DataTypeFloat32,
		tensor.Float16: DataTypeFloat16,
		tensor.Int32:   DataTypeInt32,
		tensor.Int64:   DataTypeInt32,
		tensor.Uint8:   DataTypeUint8,
		tensor.Bool:    DataTypeBool8,
	}
	for host, want := range cases {
		got, err := Narrow(host)
		require.NoError(t, err)
		assert.Equal(t, want, got, host.String())

		back, err := got.HostType()
		require.NoError(t, err)
		assert.Equal(t, want, mustNarrow(t, back), "host type round trip for %s", host)
	}
}

func mustNarrow(t *testing.T, dt tensor.DataType) DataType {
	t.Helper()
	d, err := Narrow(dt)
	require.NoError(t, err)
	return d
}

func TestStringRoundTrip(t *testing.T) {
	for _, tt := range []TensorType{TensorTypeAppWrite, TensorTypeAppRead, TensorTypeNative, TensorTypeStatic} {
		got, err := ParseTensorType(tt.String())
		require.NoError(t, err)
		assert.Equal(t, tt, got)
	}
	_, err := ParseTensorType("QNN_TENSOR_TYPE_BOGUS")
	require.Error(t, err)

	d, err := ParseDataType("QNN_DATATYPE_INT_32")
	require.NoError(t, err)
	assert.Equal(t, DataTypeInt32, d)
	_, err = ParseDataType("QNN_DATATYPE_INT_64")
	require.ErrorIs(t, err, ErrUnsupportedDType)
}

func TestOpWrapper(t *testing.T) {
	in := &TensorWrapper{Name: "x", Type: TensorTypeAppWrite, DataType: DataTypeFloat32, Shape: []int{4}}
	out := &TensorWrapper{Name: "y", Type: TensorTypeAppRead, DataType: DataTypeFloat32, Shape: []int{4}}

	op := NewOpWrapper("relu", "Relu")
	op.AddInputs(in)
	op.AddOutputs(out)
	op.AddScalarParam("alpha", tensor.FloatScalar(0.1))

	assert.Equal(t, DefaultOpPackage, op.Package)
	assert.Equal(t, []*TensorWrapper{in}, op.Inputs)
	assert.Equal(t, []*TensorWrapper{out}, op.Outputs)
	require.NotNil(t, op.Params["alpha"].Scalar)
	assert.InDelta(t, 0.1, op.Params["alpha"].Scalar.Float64(), 1e-12)
	assert.Equal(t, "x:QNN_TENSOR_TYPE_APP_WRITE:QNN_DATATYPE_FLOAT_32[4]", in.String())
}
