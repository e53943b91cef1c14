package tensor

import (
	"errors"
	"fmt"
	"math"
)

// MaxRangeElements bounds the size of a range materialized at compile time.
const MaxRangeElements = math.MaxInt32

// Range argument errors.
var (
	ErrZeroStep      = errors.New("step must be nonzero")
	ErrStepSign      = errors.New("upper bound and larger bound inconsistent with step sign")
	ErrNonFinite     = errors.New("range bounds and step must be finite")
	ErrRangeTooLarge = errors.New("range has too many elements")
)

// ArangeDType returns the dtype arange infers for the given arguments:
// Float32 if any of them is a floating point number, Int64 otherwise.
func ArangeDType(args ...Scalar) DataType {
	for _, a := range args {
		if a.IsFloat() {
			return Float32
		}
	}
	return Int64
}

// ArangeLen returns the number of elements in [start, end) stepping by step,
// i.e. ceil((end - start) / step), after validating the arguments.
func ArangeLen(start, end, step Scalar) (int, error) {
	if !start.IsFinite() || !end.IsFinite() || !step.IsFinite() {
		return 0, fmt.Errorf("%w: start=%s end=%s step=%s", ErrNonFinite, start, end, step)
	}
	if step.Float64() == 0 {
		return 0, ErrZeroStep
	}
	if (step.Float64() > 0 && end.Float64() < start.Float64()) ||
		(step.Float64() < 0 && end.Float64() > start.Float64()) {
		return 0, fmt.Errorf("%w: start=%s end=%s step=%s", ErrStepSign, start, end, step)
	}

	var n float64
	if !start.IsFloat() && !end.IsFloat() && !step.IsFloat() {
		// Exact integer ceiling division; float division loses precision past 2^53.
		s, e, st := start.Int64(), end.Int64(), step.Int64()
		diff := e - s
		if (diff < 0) != (e < s) {
			return 0, fmt.Errorf("%w: %d - %d overflows int64", ErrRangeTooLarge, e, s)
		}
		q := diff / st
		if diff%st != 0 {
			q++
		}
		if q < 0 {
			// MinInt64 / -1 wraps.
			return 0, fmt.Errorf("%w: (%d - %d) / %d overflows int64", ErrRangeTooLarge, e, s, st)
		}
		n = float64(q)
	} else {
		n = math.Ceil((end.Float64() - start.Float64()) / step.Float64())
	}

	if n > MaxRangeElements {
		return 0, fmt.Errorf("%w: %.0f > %d", ErrRangeTooLarge, n, MaxRangeElements)
	}
	return int(n), nil
}

// ArangeRaw creates a 1D tensor with values start, start+step, ... up to end (exclusive).
//
// When dtype is nil the result type is inferred with ArangeDType.
// Invalid arguments are reported as errors rather than panics.
//
// Example:
//
//	t, err := tensor.ArangeRaw(tensor.IntScalar(2), tensor.IntScalar(10), tensor.IntScalar(2), nil)
//	// t is int64[4]: [2 4 6 8]
func ArangeRaw(start, end, step Scalar, dtype *DataType) (*RawTensor, error) {
	n, err := ArangeLen(start, end, step)
	if err != nil {
		return nil, err
	}

	dt := ArangeDType(start, end, step)
	if dtype != nil {
		dt = *dtype
	}

	t, err := NewRaw(Shape{n}, dt)
	if err != nil {
		return nil, err
	}

	// Integer outputs from integer arguments are filled exactly.
	if !dt.IsFloat() && !start.IsFloat() && !step.IsFloat() {
		s, st := start.Int64(), step.Int64()
		switch dt {
		case Int64:
			data := t.AsInt64()
			for i := range data {
				data[i] = s + int64(i)*st
			}
			return t, nil
		case Int32:
			data := t.AsInt32()
			for i := range data {
				data[i] = int32(s + int64(i)*st) //nolint:gosec // G115: wraps like the host library does.
			}
			return t, nil
		}
	}

	s, st := start.Float64(), step.Float64()
	for i := 0; i < n; i++ {
		t.SetFloat64At(i, s+float64(i)*st)
	}
	return t, nil
}

// FullRaw creates a tensor of the given shape with every element set to value.
func FullRaw(shape Shape, value Scalar, dtype DataType) (*RawTensor, error) {
	if !value.IsFinite() && !dtype.IsFloat() {
		return nil, fmt.Errorf("%w: cannot fill %s with %s", ErrNonFinite, dtype, value)
	}

	t, err := NewRaw(shape, dtype)
	if err != nil {
		return nil, err
	}

	if dtype == Int64 && !value.IsFloat() {
		data := t.AsInt64()
		for i := range data {
			data[i] = value.Int64()
		}
		return t, nil
	}

	v := value.Float64()
	for i := 0; i < t.NumElements(); i++ {
		t.SetFloat64At(i, v)
	}
	return t, nil
}
