// Package lower turns an exported program graph into an accelerator program.
//
// Lower walks the graph in dependency order and hands every call_function node
// to the visitor registered for its target. Inputs, lifted constants and
// outputs are handled here directly.
package lower

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/born-ml/bornc/internal/wrapper"
)

// Program is the result of lowering one graph.
type Program struct {
	ID      uuid.UUID
	Graph   string
	Tensors []*wrapper.TensorWrapper // Every tensor, in definition order
	Ops     []*wrapper.OpWrapper     // Accelerator ops, in execution order
	Inputs  []*wrapper.TensorWrapper
	Outputs []*wrapper.TensorWrapper
	Skipped []string // Targets without a visitor, in first-seen order
}

// Tensor returns the tensor with the given name, or nil.
func (p *Program) Tensor(name string) *wrapper.TensorWrapper {
	for _, t := range p.Tensors {
		if t.Name == name {
			return t
		}
	}
	return nil
}

// StaticTensors returns the static tensors in definition order.
func (p *Program) StaticTensors() []*wrapper.TensorWrapper {
	var out []*wrapper.TensorWrapper
	for _, t := range p.Tensors {
		if t.IsStatic() {
			out = append(out, t)
		}
	}
	return out
}

// StaticBytes returns the total size of static tensor data.
func (p *Program) StaticBytes() int64 {
	var n int64
	for _, t := range p.StaticTensors() {
		n += int64(t.ByteSize())
	}
	return n
}

// String summarizes the program.
func (p *Program) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Program(%s, graph=%s, tensors=%d, ops=%d", p.ID, p.Graph, len(p.Tensors), len(p.Ops))
	if len(p.Skipped) > 0 {
		fmt.Fprintf(&sb, ", skipped=%v", p.Skipped)
	}
	sb.WriteString(")")
	return sb.String()
}
