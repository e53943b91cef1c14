package tensor

import (
	"errors"
	"fmt"
	"math/bits"
)

// MaxTensorBytes caps the host buffer behind a single tensor.
const MaxTensorBytes = 1 << 32

// ErrShapeTooLarge is returned when a shape needs more than MaxTensorBytes.
var ErrShapeTooLarge = errors.New("tensor shape too large")

// Shape represents the dimensions of a tensor.
type Shape []int

// NumElements returns the total number of elements in the tensor.
func (s Shape) NumElements() int {
	if len(s) == 0 {
		return 1 // Scalar has 1 element
	}
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// ByteSize returns the number of bytes a dense tensor of this shape and
// element size occupies. It fails with ErrShapeTooLarge instead of wrapping.
func (s Shape) ByteSize(elemSize int) (int, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	n := uint64(elemSize) //nolint:gosec // G115: element sizes are small and positive.
	for _, dim := range s {
		hi, lo := bits.Mul64(n, uint64(dim)) //nolint:gosec // G115: Validate rejected negatives.
		if hi != 0 || lo > MaxTensorBytes {
			return 0, fmt.Errorf("%w: %v x %d bytes", ErrShapeTooLarge, []int(s), elemSize)
		}
		n = lo
	}
	return int(n), nil //nolint:gosec // G115: bounded by MaxTensorBytes.
}

// Validate checks if the shape is valid.
// Zero-sized dimensions are allowed: an empty range is a legal host tensor.
func (s Shape) Validate() error {
	for i, dim := range s {
		if dim < 0 {
			return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, dim)
		}
	}
	return nil
}

// Equal checks if two shapes are equal.
func (s Shape) Equal(other Shape) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the shape.
func (s Shape) Clone() Shape {
	clone := make(Shape, len(s))
	copy(clone, s)
	return clone
}

// ComputeStrides calculates row-major strides for the shape.
// Strides define memory layout: stride[i] = product of all dimensions after i.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	if len(s) == 0 {
		return strides
	}

	strides[len(s)-1] = 1
	for i := len(s) - 2; i >= 0; i-- {
		strides[i] = strides[i+1] * s[i+1]
	}
	return strides
}
