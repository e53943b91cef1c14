// Package tensor provides the host-side tensor types used while lowering a graph.
//
// Tensors here never run on the accelerator. They hold values that are fully
// known at compile time (ranges, fills, lifted parameters) before those values
// are embedded into the compiled program as static data.
package tensor

import (
	"fmt"
	"strings"
)

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float32 DataType = iota
	Float64
	Float16
	Int32
	Int64
	Uint8
	Bool
)

// Size returns the byte size of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Float16:
		return 2
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Float16:
		return "float16"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the type is a floating point type.
func (dt DataType) IsFloat() bool {
	return dt == Float32 || dt == Float64 || dt == Float16
}

// ParseDataType parses a dtype name as written by an exporter.
// Both plain names ("float32") and torch spellings ("torch.float32", "torch.long") are accepted.
func ParseDataType(s string) (DataType, error) {
	name := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "torch.")
	switch name {
	case "float32", "float", "f32":
		return Float32, nil
	case "float64", "double", "f64":
		return Float64, nil
	case "float16", "half", "f16":
		return Float16, nil
	case "int32", "int", "i32":
		return Int32, nil
	case "int64", "long", "i64":
		return Int64, nil
	case "uint8", "u8":
		return Uint8, nil
	case "bool":
		return Bool, nil
	default:
		return 0, fmt.Errorf("unknown data type %q", s)
	}
}
