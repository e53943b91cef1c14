// Package wrapper defines the accelerator-side handles a lowered program is made of:
// tensor wrappers (typed, shaped, optionally carrying static data) and op wrappers
// (one accelerator operation with its input and output tensors).
package wrapper

import (
	"fmt"

	"github.com/born-ml/bornc/internal/tensor"
)

// TensorType tags how the accelerator runtime treats a tensor.
type TensorType int

// Tensor kinds.
const (
	TensorTypeNull     TensorType = iota
	TensorTypeAppWrite            // Written by the application: graph input
	TensorTypeAppRead             // Read by the application: graph output
	TensorTypeNative              // Intermediate, owned by the runtime
	TensorTypeStatic              // Compile-time constant embedded in the program
)

// String returns the runtime name of the tensor type.
func (t TensorType) String() string {
	switch t {
	case TensorTypeAppWrite:
		return "QNN_TENSOR_TYPE_APP_WRITE"
	case TensorTypeAppRead:
		return "QNN_TENSOR_TYPE_APP_READ"
	case TensorTypeNative:
		return "QNN_TENSOR_TYPE_NATIVE"
	case TensorTypeStatic:
		return "QNN_TENSOR_TYPE_STATIC"
	default:
		return "QNN_TENSOR_TYPE_NULL"
	}
}

// ParseTensorType is the inverse of TensorType.String.
func ParseTensorType(s string) (TensorType, error) {
	for _, t := range []TensorType{TensorTypeNull, TensorTypeAppWrite, TensorTypeAppRead, TensorTypeNative, TensorTypeStatic} {
		if t.String() == s {
			return t, nil
		}
	}
	return TensorTypeNull, fmt.Errorf("unknown tensor type %q", s)
}

// TensorWrapper is the accelerator handle for one tensor of the program.
type TensorWrapper struct {
	Name     string            // Unique tensor name within the program
	Type     TensorType        // Runtime treatment
	DataType DataType          // Accelerator element type
	Shape    []int             // Dimensions
	Data     *tensor.RawTensor // Backing storage, Static tensors only
	Source   string            // Name of the graph node that defined the tensor
}

// IsStatic reports whether the tensor carries compile-time data.
func (w *TensorWrapper) IsStatic() bool {
	return w.Type == TensorTypeStatic
}

// ByteSize returns the size of the static data, or 0.
func (w *TensorWrapper) ByteSize() int {
	if w.Data == nil {
		return 0
	}
	return w.Data.ByteSize()
}

// String returns a short description, e.g. "arange:QNN_TENSOR_TYPE_STATIC:QNN_DATATYPE_INT_32[4]".
func (w *TensorWrapper) String() string {
	return fmt.Sprintf("%s:%s:%s%v", w.Name, w.Type, w.DataType, w.Shape)
}

// Default op package for built-in accelerator operations.
const DefaultOpPackage = "qti.aisw"

// Param is a scalar or tensor parameter attached to an op.
type Param struct {
	Scalar *tensor.Scalar
	Tensor *TensorWrapper
}

// OpWrapper is one accelerator operation.
type OpWrapper struct {
	Name    string
	Package string
	Type    string
	Inputs  []*TensorWrapper
	Outputs []*TensorWrapper
	Params  map[string]Param
}

// NewOpWrapper creates an op in the default package.
func NewOpWrapper(name, opType string) *OpWrapper {
	return &OpWrapper{
		Name:    name,
		Package: DefaultOpPackage,
		Type:    opType,
		Params:  make(map[string]Param),
	}
}

// AddInputs appends input tensors.
func (o *OpWrapper) AddInputs(ts ...*TensorWrapper) {
	o.Inputs = append(o.Inputs, ts...)
}

// AddOutputs appends output tensors.
func (o *OpWrapper) AddOutputs(ts ...*TensorWrapper) {
	o.Outputs = append(o.Outputs, ts...)
}

// AddScalarParam attaches a scalar parameter.
func (o *OpWrapper) AddScalarParam(name string, v tensor.Scalar) {
	o.Params[name] = Param{Scalar: &v}
}

// AddTensorParam attaches a static tensor parameter.
func (o *OpWrapper) AddTensorParam(name string, t *TensorWrapper) {
	o.Params[name] = Param{Tensor: t}
}
