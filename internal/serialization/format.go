package serialization

import (
	"time"

	"github.com/born-ml/bornc/internal/lower"
	"github.com/born-ml/bornc/internal/wrapper"
)

// Format constants.
const (
	MagicBytes      = "BCTX"
	FormatVersion   = 1
	Alignment       = 64   // Data section and every static tensor start on this boundary
	FixedHeaderSize = 64   // 0x40 bytes
	ChecksumSize    = 32   // SHA-256
	ChecksumOffset  = 0x20 // Checksum position in the fixed header
)

// Flags stored in the fixed header.
const (
	FlagHasMetadata uint32 = 1 << 0 // bit 0: custom metadata included
	FlagPartial     uint32 = 1 << 1 // bit 1: some nodes were skipped during lowering
	FlagNoChecksum  uint32 = 1 << 2 // bit 2: checksum field is not populated
)

// Header is the JSON header of a context binary.
type Header struct {
	FormatVersion   int               `json:"format_version"`
	CompilerVersion string            `json:"compiler_version"`
	ProgramID       string            `json:"program_id"`
	Graph           string            `json:"graph"`
	CreatedAt       time.Time         `json:"created_at"`
	Tensors         []TensorMeta      `json:"tensors"`
	Ops             []OpMeta          `json:"ops"`
	Inputs          []string          `json:"inputs"`
	Outputs         []string          `json:"outputs"`
	Skipped         []string          `json:"skipped,omitempty"`
	Metadata        map[string]string `json:"metadata"`
}

// TensorMeta declares one tensor. Offset and Size are set for static tensors
// and are relative to the start of the data section.
type TensorMeta struct {
	Name   string `json:"name"`
	Type   string `json:"type"`  // e.g. "QNN_TENSOR_TYPE_STATIC"
	DType  string `json:"dtype"` // e.g. "QNN_DATATYPE_INT_32"
	Shape  []int  `json:"shape"`
	Source string `json:"source,omitempty"`
	Offset int64  `json:"offset"`
	Size   int64  `json:"size"`
}

// OpMeta declares one accelerator op by tensor names.
type OpMeta struct {
	Name    string               `json:"name"`
	Package string               `json:"package"`
	Type    string               `json:"type"`
	Inputs  []string             `json:"inputs"`
	Outputs []string             `json:"outputs"`
	Params  map[string]ParamMeta `json:"params,omitempty"`
}

// ParamMeta is a scalar value or a reference to a static tensor.
type ParamMeta struct {
	Scalar string `json:"scalar,omitempty"`
	Tensor string `json:"tensor,omitempty"`
}

// IsStatic reports whether the tensor carries data.
func (m TensorMeta) IsStatic() bool {
	return m.Type == wrapper.TensorTypeStatic.String()
}

// alignUp rounds n up to the next multiple of Alignment.
func alignUp(n int64) int64 {
	return (n + Alignment - 1) / Alignment * Alignment
}

// newHeader describes prog and assigns data offsets to its static tensors.
// It returns the header and the static tensors in data-section order.
func newHeader(prog *lower.Program, version string, metadata map[string]string) (Header, []*wrapper.TensorWrapper) {
	h := Header{
		FormatVersion:   FormatVersion,
		CompilerVersion: version,
		ProgramID:       prog.ID.String(),
		Graph:           prog.Graph,
		CreatedAt:       time.Now().UTC(),
		Tensors:         make([]TensorMeta, 0, len(prog.Tensors)),
		Ops:             make([]OpMeta, 0, len(prog.Ops)),
		Inputs:          tensorNames(prog.Inputs),
		Outputs:         tensorNames(prog.Outputs),
		Skipped:         prog.Skipped,
		Metadata:        metadata,
	}
	if h.Metadata == nil {
		h.Metadata = make(map[string]string)
	}

	var static []*wrapper.TensorWrapper
	var offset int64
	for _, t := range prog.Tensors {
		meta := TensorMeta{
			Name:   t.Name,
			Type:   t.Type.String(),
			DType:  t.DataType.String(),
			Shape:  append([]int(nil), t.Shape...),
			Source: t.Source,
		}
		if t.IsStatic() && t.Data != nil {
			offset = alignUp(offset)
			meta.Offset = offset
			meta.Size = int64(t.ByteSize())
			offset += meta.Size
			static = append(static, t)
		}
		h.Tensors = append(h.Tensors, meta)
	}

	for _, op := range prog.Ops {
		m := OpMeta{
			Name:    op.Name,
			Package: op.Package,
			Type:    op.Type,
			Inputs:  tensorNames(op.Inputs),
			Outputs: tensorNames(op.Outputs),
		}
		if len(op.Params) > 0 {
			m.Params = make(map[string]ParamMeta, len(op.Params))
			for name, p := range op.Params {
				var pm ParamMeta
				if p.Scalar != nil {
					pm.Scalar = p.Scalar.String()
				}
				if p.Tensor != nil {
					pm.Tensor = p.Tensor.Name
				}
				m.Params[name] = pm
			}
		}
		h.Ops = append(h.Ops, m)
	}
	return h, static
}

func tensorNames(ts []*wrapper.TensorWrapper) []string {
	names := make([]string, len(ts))
	for i, t := range ts {
		names[i] = t.Name
	}
	return names
}
