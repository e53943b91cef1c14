package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrTensorNotFound     = errors.New("tensor not found")
	ErrNotStatic          = errors.New("tensor has no static data")
	ErrClosed             = errors.New("file is closed")
)

// ValidationError describes a malformed header.
type ValidationError struct {
	Type    string // e.g. "offset_overlap", "unknown_tensor"
	Tensor  string // Primary tensor name involved
	Tensor2 string // Second tensor, for overlaps
	Op      string // Op name, for dangling references
	Details string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	switch {
	case e.Tensor2 != "":
		return fmt.Sprintf("%s: tensors %q and %q: %s", e.Type, e.Tensor, e.Tensor2, e.Details)
	case e.Op != "":
		return fmt.Sprintf("%s: op %q: tensor %q: %s", e.Type, e.Op, e.Tensor, e.Details)
	case e.Tensor != "":
		return fmt.Sprintf("%s: tensor %q: %s", e.Type, e.Tensor, e.Details)
	default:
		return fmt.Sprintf("%s: %s", e.Type, e.Details)
	}
}
