package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits.
const (
	MaxHeaderSize    = 100 * 1024 * 1024 // 100MB
	MaxTensorCount   = 100_000
	MaxTensorNameLen = 4096
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict checks names, references and data offsets (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and references only.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateTensorOffsets checks that static tensor regions are in bounds and do not overlap.
// Tensors without data are ignored.
func ValidateTensorOffsets(tensors []TensorMeta, dataSize int64) error {
	var regions []TensorMeta
	for _, t := range tensors {
		if t.Offset < 0 || t.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", t.Offset, t.Size),
			}
		}
		if t.Size > 0 {
			regions = append(regions, t)
		}
	}

	sort.Slice(regions, func(i, j int) bool {
		return regions[i].Offset < regions[j].Offset
	})

	for i, t := range regions {
		if t.Offset+t.Size > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  t.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", t.Offset, t.Size, dataSize),
			}
		}
		if i < len(regions)-1 {
			next := regions[i+1]
			if t.Offset+t.Size > next.Offset {
				return &ValidationError{
					Type:    "offset_overlap",
					Tensor:  t.Name,
					Tensor2: next.Name,
					Details: fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
						t.Offset, t.Offset+t.Size, next.Offset, next.Offset+next.Size),
				}
			}
		}
	}
	return nil
}

// ValidateTensorName rejects empty, oversized and path-like names.
func ValidateTensorName(name string) error {
	switch {
	case name == "":
		return &ValidationError{Type: "invalid_name", Details: "empty tensor name"}
	case len(name) > MaxTensorNameLen:
		return &ValidationError{
			Type:    "name_too_long",
			Tensor:  name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen),
		}
	case strings.Contains(name, ".."):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains '..'"}
	case strings.ContainsAny(name, "/\\"):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains path separator"}
	case strings.Contains(name, "\x00"):
		return &ValidationError{Type: "invalid_name", Tensor: name, Details: "contains null byte"}
	}
	return nil
}

// ValidateHeader checks a parsed header against the size of its data section.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Tensors) > MaxTensorCount {
		return &ValidationError{
			Type:    "too_many_tensors",
			Details: fmt.Sprintf("got %d, max %d", len(h.Tensors), MaxTensorCount),
		}
	}

	known := make(map[string]bool, len(h.Tensors))
	for _, t := range h.Tensors {
		if err := ValidateTensorName(t.Name); err != nil {
			return err
		}
		if known[t.Name] {
			return &ValidationError{Type: "duplicate_name", Tensor: t.Name, Details: "declared twice"}
		}
		known[t.Name] = true
	}

	for _, op := range h.Ops {
		for _, name := range append(append([]string(nil), op.Inputs...), op.Outputs...) {
			if !known[name] {
				return &ValidationError{Type: "unknown_tensor", Op: op.Name, Tensor: name, Details: "not declared"}
			}
		}
	}
	for _, name := range append(append([]string(nil), h.Inputs...), h.Outputs...) {
		if !known[name] {
			return &ValidationError{Type: "unknown_tensor", Tensor: name, Details: "graph input or output not declared"}
		}
	}

	if level == ValidationStrict {
		return ValidateTensorOffsets(h.Tensors, dataSize)
	}
	return nil
}
