package onnx

import (
	"errors"
	"fmt"

	"github.com/born-ml/bornc/internal/tensor"
)

// ErrUnsupportedType is returned for ONNX element types with no host dtype.
var ErrUnsupportedType = errors.New("unsupported ONNX element type")

// DataTypeOf maps an ONNX element type to a host dtype.
func DataTypeOf(elemType int32) (tensor.DataType, error) {
	switch elemType {
	case TensorProtoFloat:
		return tensor.Float32, nil
	case TensorProtoDouble:
		return tensor.Float64, nil
	case TensorProtoFloat16:
		return tensor.Float16, nil
	case TensorProtoInt32:
		return tensor.Int32, nil
	case TensorProtoInt64:
		return tensor.Int64, nil
	case TensorProtoUint8:
		return tensor.Uint8, nil
	case TensorProtoBool:
		return tensor.Bool, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnsupportedType, elemType)
	}
}

// TensorFromProto converts an initializer or Constant payload to a host tensor.
// raw_data takes precedence over the typed fields, as in the ONNX runtime.
func TensorFromProto(tp *TensorProto) (*tensor.RawTensor, error) {
	dtype, err := DataTypeOf(tp.DataType)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", tp.Name, err)
	}
	shape := make(tensor.Shape, len(tp.Dims))
	for i, d := range tp.Dims {
		shape[i] = int(d)
	}

	if tp.RawData != nil {
		t, err := tensor.FromBytes(shape, dtype, tp.RawData)
		if err != nil {
			return nil, fmt.Errorf("tensor %q: %w", tp.Name, err)
		}
		return t, nil
	}

	t, err := tensor.NewRaw(shape, dtype)
	if err != nil {
		return nil, fmt.Errorf("tensor %q: %w", tp.Name, err)
	}
	n := t.NumElements()

	var got int
	switch dtype {
	case tensor.Float32:
		got = len(tp.FloatData)
		if got == n {
			copy(t.AsFloat32(), tp.FloatData)
		}
	case tensor.Float64:
		got = len(tp.DoubleData)
		if got == n {
			copy(t.AsFloat64(), tp.DoubleData)
		}
	case tensor.Int64:
		got = len(tp.Int64Data)
		if got == n {
			copy(t.AsInt64(), tp.Int64Data)
		}
	case tensor.Float16:
		// int32_data carries float16 bits in the low half.
		got = len(tp.Int32Data)
		if got == n {
			bits := t.AsFloat16Bits()
			for i, v := range tp.Int32Data {
				bits[i] = uint16(v) //nolint:gosec // G115: low 16 bits hold the value.
			}
		}
	default:
		got = len(tp.Int32Data)
		if got == n {
			for i, v := range tp.Int32Data {
				t.SetFloat64At(i, float64(v))
			}
		}
	}
	if got != n {
		return nil, fmt.Errorf("tensor %q: %d values for shape %v", tp.Name, got, []int(shape))
	}
	return t, nil
}
