package tensor

import (
	"math"
	"strconv"
)

// Scalar is a host number that remembers whether it was written as an integer.
// Dtype inference for creation ops depends on that distinction: arange(0, 5)
// is int64 while arange(0, 5.0) is float32.
type Scalar struct {
	i       int64
	f       float64
	isFloat bool
}

// IntScalar returns an integer scalar.
func IntScalar(v int64) Scalar {
	return Scalar{i: v, f: float64(v)}
}

// FloatScalar returns a floating point scalar.
func FloatScalar(v float64) Scalar {
	return Scalar{f: v, isFloat: true}
}

// IsFloat reports whether the scalar was written as a floating point number.
func (s Scalar) IsFloat() bool {
	return s.isFloat
}

// Float64 returns the value as float64.
func (s Scalar) Float64() float64 {
	return s.f
}

// Int64 returns the value as int64. Floating values truncate toward zero.
func (s Scalar) Int64() int64 {
	if s.isFloat {
		return int64(s.f)
	}
	return s.i
}

// IsFinite reports whether the value is neither NaN nor infinite.
func (s Scalar) IsFinite() bool {
	return !math.IsNaN(s.f) && !math.IsInf(s.f, 0)
}

// String formats the scalar the way it was written.
func (s Scalar) String() string {
	if s.isFloat {
		return strconv.FormatFloat(s.f, 'g', -1, 64)
	}
	return strconv.FormatInt(s.i, 10)
}
