package tensor

// CastRaw returns a copy of t converted to dtype.
// Casting to the same dtype returns a deep copy.
func CastRaw(t *RawTensor, dtype DataType) (*RawTensor, error) {
	if t.dtype == dtype {
		return t.Clone(), nil
	}

	out, err := NewRaw(t.shape, dtype)
	if err != nil {
		return nil, err
	}

	// Int64 -> Int32 is the common narrowing for static data; keep it exact in range.
	if t.dtype == Int64 && dtype == Int32 {
		src, dst := t.AsInt64(), out.AsInt32()
		for i, v := range src {
			dst[i] = int32(v) //nolint:gosec // G115: callers check range with FitsInt32.
		}
		return out, nil
	}

	for i := 0; i < t.NumElements(); i++ {
		out.SetFloat64At(i, t.Float64At(i))
	}
	return out, nil
}

// FitsInt32 reports whether every element of an integer tensor is representable as int32.
func FitsInt32(t *RawTensor) bool {
	switch t.dtype {
	case Int64:
		for _, v := range t.AsInt64() {
			if v < -1<<31 || v > 1<<31-1 {
				return false
			}
		}
		return true
	case Int32, Uint8, Bool:
		return true
	default:
		return false
	}
}
