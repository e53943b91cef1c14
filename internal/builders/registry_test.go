package builders

import (
	"sort"
	"testing"

	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/wrapper"
)

type customVisitor struct {
	targets []string
}

func (c *customVisitor) Targets() []string { return c.targets }

func (c *customVisitor) DefineNode(_ *graph.Node, _ *NodeTensors) (*wrapper.OpWrapper, error) {
	return nil, nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	// Check that the built-in targets are registered
	essential := []string{
		TargetArangeStartStep, TargetArangeStart, TargetArange,
		TargetFull, TargetZeros, TargetOnes, TargetScalarTensor,
		"aten.add.Tensor", "aten.sub.Tensor", "aten.mul.Tensor", "aten.div.Tensor",
	}

	for _, target := range essential {
		if _, ok := r.Get(target); !ok {
			t.Errorf("Expected target %s to be registered", target)
		}
	}

	v, _ := r.Get(TargetArangeStartStep)
	if _, ok := v.(*Arange); !ok {
		t.Errorf("Expected %s to be handled by *Arange, got %T", TargetArangeStartStep, v)
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	r := NewRegistry()

	if _, ok := r.Get("aten.unknown.default"); ok {
		t.Error("Expected unknown target to not be found")
	}
}

func TestSupportedTargets(t *testing.T) {
	r := NewRegistry()
	targets := r.SupportedTargets()

	if len(targets) != 11 {
		t.Errorf("Expected 11 supported targets, got %d", len(targets))
	}
	if !sort.StringsAreSorted(targets) {
		t.Error("Expected targets to be sorted")
	}
}

func TestRegisterCustomVisitor(t *testing.T) {
	r := NewRegistry()

	if err := r.Register(&customVisitor{targets: []string{"custom.op.default"}}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, ok := r.Get("custom.op.default"); !ok {
		t.Error("Expected custom visitor to be registered")
	}
}

func TestRegisterDuplicateTarget(t *testing.T) {
	r := NewRegistry()

	err := r.Register(&customVisitor{targets: []string{"custom.a", TargetArangeStartStep}})
	if err == nil {
		t.Fatal("Expected duplicate target error")
	}
	if _, ok := r.Get("custom.a"); ok {
		t.Error("Expected no target to be registered after a conflict")
	}
}
