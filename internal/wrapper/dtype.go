package wrapper

import (
	"errors"
	"fmt"

	"github.com/born-ml/bornc/internal/tensor"
)

// ErrUnsupportedDType is returned for host types the accelerator cannot represent.
var ErrUnsupportedDType = errors.New("data type not supported by the accelerator")

// DataType is an accelerator element type.
type DataType int

// Accelerator element types.
const (
	DataTypeUndefined DataType = iota
	DataTypeFloat32
	DataTypeFloat16
	DataTypeInt32
	DataTypeUint8
	DataTypeBool8
)

// String returns the runtime name of the data type.
func (d DataType) String() string {
	switch d {
	case DataTypeFloat32:
		return "QNN_DATATYPE_FLOAT_32"
	case DataTypeFloat16:
		return "QNN_DATATYPE_FLOAT_16"
	case DataTypeInt32:
		return "QNN_DATATYPE_INT_32"
	case DataTypeUint8:
		return "QNN_DATATYPE_UINT_8"
	case DataTypeBool8:
		return "QNN_DATATYPE_BOOL_8"
	default:
		return "QNN_DATATYPE_UNDEFINED"
	}
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	for _, d := range []DataType{DataTypeFloat32, DataTypeFloat16, DataTypeInt32, DataTypeUint8, DataTypeBool8} {
		if d.String() == s {
			return d, nil
		}
	}
	return DataTypeUndefined, fmt.Errorf("%w: %q", ErrUnsupportedDType, s)
}

// HostType returns the host dtype that stores this accelerator type.
func (d DataType) HostType() (tensor.DataType, error) {
	switch d {
	case DataTypeFloat32:
		return tensor.Float32, nil
	case DataTypeFloat16:
		return tensor.Float16, nil
	case DataTypeInt32:
		return tensor.Int32, nil
	case DataTypeUint8:
		return tensor.Uint8, nil
	case DataTypeBool8:
		return tensor.Bool, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedDType, d)
	}
}

// Narrow maps a host dtype to the accelerator type that stores it.
// The accelerator has no 64-bit element types: Int64 narrows to Int32 and
// Float64 to Float32.
func Narrow(dt tensor.DataType) (DataType, error) {
	switch dt {
	case tensor.Float32, tensor.Float64:
		return DataTypeFloat32, nil
	case tensor.Float16:
		return DataTypeFloat16, nil
	case tensor.Int32, tensor.Int64:
		return DataTypeInt32, nil
	case tensor.Uint8:
		return DataTypeUint8, nil
	case tensor.Bool:
		return DataTypeBool8, nil
	default:
		return DataTypeUndefined, fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}
