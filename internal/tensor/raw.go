package tensor

import (
	"fmt"
	"strconv"
	"strings"
	"unsafe"

	"github.com/x448/float16"
)

// RawTensor is the low-level host tensor representation: a dense row-major
// byte buffer interpreted through its DataType.
type RawTensor struct {
	data   []byte
	shape  Shape
	stride []int
	dtype  DataType
}

// NewRaw creates a new RawTensor with the given shape and type.
// Memory is allocated and zeroed.
func NewRaw(shape Shape, dtype DataType) (*RawTensor, error) {
	size, err := shape.ByteSize(dtype.Size())
	if err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}

	return &RawTensor{
		data:   make([]byte, size),
		shape:  shape.Clone(),
		stride: shape.ComputeStrides(),
		dtype:  dtype,
	}, nil
}

// FromBytes creates a RawTensor over a copy of data.
// The length of data must match shape and dtype exactly.
func FromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	size, err := shape.ByteSize(dtype.Size())
	if err != nil {
		return nil, fmt.Errorf("invalid shape: %w", err)
	}
	if len(data) != size {
		return nil, fmt.Errorf("data length %d does not match %s%v (%d bytes)", len(data), dtype, []int(shape), size)
	}

	t, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}
	copy(t.data, data)
	return t, nil
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// Strides returns the tensor's memory strides.
func (r *RawTensor) Strides() []int {
	return r.stride
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the total memory size in bytes.
func (r *RawTensor) ByteSize() int {
	return r.NumElements() * r.dtype.Size()
}

// Data returns the raw byte slice.
// WARNING: Direct access to underlying memory. Use with caution.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	r.mustBe(Float32)
	if len(r.data) == 0 {
		return []float32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	r.mustBe(Float64)
	if len(r.data) == 0 {
		return []float64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat16Bits interprets the data as IEEE 754 half precision bit patterns.
// Panics if the tensor's dtype is not Float16.
func (r *RawTensor) AsFloat16Bits() []uint16 {
	r.mustBe(Float16)
	if len(r.data) == 0 {
		return []uint16{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*uint16)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	r.mustBe(Int32)
	if len(r.data) == 0 {
		return []int32{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	r.mustBe(Int64)
	if len(r.data) == 0 {
		return []int64{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsUint8 interprets the data as []uint8.
// Panics if the tensor's dtype is not Uint8.
func (r *RawTensor) AsUint8() []uint8 {
	r.mustBe(Uint8)
	return r.data // Already []byte = []uint8
}

// AsBool interprets the data as []bool.
// Panics if the tensor's dtype is not Bool.
func (r *RawTensor) AsBool() []bool {
	r.mustBe(Bool)
	if len(r.data) == 0 {
		return []bool{}
	}
	//nolint:gosec // unsafe.Slice for zero-copy performance, bounds checked by NumElements()
	return unsafe.Slice((*bool)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// Float64At returns element i (flat index) converted to float64, whatever the dtype.
func (r *RawTensor) Float64At(i int) float64 {
	switch r.dtype {
	case Float32:
		return float64(r.AsFloat32()[i])
	case Float64:
		return r.AsFloat64()[i]
	case Float16:
		return float64(float16.Frombits(r.AsFloat16Bits()[i]).Float32())
	case Int32:
		return float64(r.AsInt32()[i])
	case Int64:
		return float64(r.AsInt64()[i])
	case Uint8:
		return float64(r.AsUint8()[i])
	case Bool:
		if r.AsBool()[i] {
			return 1
		}
		return 0
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
}

// SetFloat64At stores v at flat index i, converting to the tensor's dtype.
// Integer types truncate toward zero.
func (r *RawTensor) SetFloat64At(i int, v float64) {
	switch r.dtype {
	case Float32:
		r.AsFloat32()[i] = float32(v)
	case Float64:
		r.AsFloat64()[i] = v
	case Float16:
		r.AsFloat16Bits()[i] = float16.Fromfloat32(float32(v)).Bits()
	case Int32:
		r.AsInt32()[i] = int32(v)
	case Int64:
		r.AsInt64()[i] = int64(v)
	case Uint8:
		r.AsUint8()[i] = uint8(v)
	case Bool:
		r.AsBool()[i] = v != 0
	default:
		panic(fmt.Sprintf("unsupported dtype %s", r.dtype))
	}
}

// Clone returns a deep copy of the tensor.
func (r *RawTensor) Clone() *RawTensor {
	data := make([]byte, len(r.data))
	copy(data, r.data)
	return &RawTensor{
		data:   data,
		shape:  r.shape.Clone(),
		stride: append([]int(nil), r.stride...),
		dtype:  r.dtype,
	}
}

// String returns a short description, e.g. "int64[5]".
func (r *RawTensor) String() string {
	return fmt.Sprintf("%s%v", r.dtype, []int(r.shape))
}

// Summary renders up to limit elements in flat order, e.g. "[0 1 2 ... 7]".
func (r *RawTensor) Summary(limit int) string {
	n := r.NumElements()
	parts := make([]string, 0, min(n, limit)+1)
	for i := 0; i < n && i < limit; i++ {
		parts = append(parts, strconv.FormatFloat(r.Float64At(i), 'g', -1, 64))
	}
	if n > limit {
		parts = append(parts, "...")
	}
	return "[" + strings.Join(parts, " ") + "]"
}

func (r *RawTensor) mustBe(dt DataType) {
	if r.dtype != dt {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
}
