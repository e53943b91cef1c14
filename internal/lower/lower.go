package lower

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"k8s.io/klog/v2"

	"github.com/born-ml/bornc/internal/builders"
	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/wrapper"
)

// Lowering errors.
var (
	ErrUnsupportedTarget = errors.New("no visitor registered for target")
	ErrMissingValue      = errors.New("constant node has no value")
	ErrUndefinedOutput   = errors.New("graph output was not lowered")
)

// Options configures Lower.
type Options struct {
	// Strict fails on targets without a visitor instead of skipping them.
	Strict bool

	// Registry maps targets to visitors. Defaults to builders.NewRegistry().
	Registry *builders.Registry
}

// Lower converts g into an accelerator program.
//
// Nodes are visited in topological order. In non-strict mode a node whose
// target has no visitor is skipped with a warning, and so is every node that
// consumes its result.
func Lower(ctx context.Context, g *graph.Graph, opts Options) (*Program, error) {
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("graph %s: %w", g.Name, err)
	}
	order, err := g.TopologicalSort()
	if err != nil {
		return nil, fmt.Errorf("graph %s: %w", g.Name, err)
	}

	registry := opts.Registry
	if registry == nil {
		registry = builders.NewRegistry()
	}

	l := &lowering{
		opts:     opts,
		registry: registry,
		tensors:  builders.NewNodeTensors(),
		skipped:  make(map[*graph.Node]bool),
		prog: &Program{
			ID:    uuid.New(),
			Graph: g.Name,
		},
	}

	start := time.Now()
	for _, node := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		klog.V(2).Infof("lowering %s", node)
		if err := l.visit(node); err != nil {
			return nil, fmt.Errorf("node %s (%s): %w", node.Name, node.Op, err)
		}
	}
	l.prog.Tensors = l.tensors.All()

	klog.V(1).Infof("lowered graph %s in %s: %d tensors, %d ops, %d static bytes",
		g.Name, time.Since(start), len(l.prog.Tensors), len(l.prog.Ops), l.prog.StaticBytes())
	return l.prog, nil
}

type lowering struct {
	builders.Base

	opts     Options
	registry *builders.Registry
	tensors  *builders.NodeTensors
	skipped  map[*graph.Node]bool
	seen     map[string]bool
	prog     *Program
}

func (l *lowering) visit(node *graph.Node) error {
	switch node.Op {
	case graph.OpPlaceholder:
		return l.placeholder(node)
	case graph.OpGetAttr:
		if node.Value == nil {
			return ErrMissingValue
		}
		_, err := l.DefineTensor(node, node, node.Value, wrapper.TensorTypeStatic, l.tensors)
		return err
	case graph.OpCallFunction:
		return l.callFunction(node)
	case graph.OpOutput:
		return l.output(node)
	default:
		return fmt.Errorf("unknown node kind %q", node.Op)
	}
}

// placeholder defines a graph input, or a static tensor for lifted constants.
func (l *lowering) placeholder(node *graph.Node) error {
	if node.Value != nil {
		_, err := l.DefineTensor(node, node, node.Value, wrapper.TensorTypeStatic, l.tensors)
		return err
	}
	w, err := l.DefineTensorFromMeta(node, node, wrapper.TensorTypeAppWrite, l.tensors)
	if err != nil {
		return err
	}
	l.prog.Inputs = append(l.prog.Inputs, w)
	return nil
}

func (l *lowering) callFunction(node *graph.Node) error {
	for _, in := range node.Inputs() {
		if l.skipped[in] {
			klog.Warningf("skipping node %s: input %s was skipped", node.Name, in.Name)
			l.skipped[node] = true
			return nil
		}
	}

	visitor, ok := l.registry.Get(node.Target)
	if !ok {
		if l.opts.Strict {
			return fmt.Errorf("%w: %s", ErrUnsupportedTarget, node.Target)
		}
		klog.Warningf("skipping node %s: no visitor for %s", node.Name, node.Target)
		l.skipped[node] = true
		l.skipTarget(node.Target)
		return nil
	}

	op, err := visitor.DefineNode(node, l.tensors)
	if err != nil {
		return err
	}
	if op != nil {
		l.prog.Ops = append(l.prog.Ops, op)
	}
	return nil
}

func (l *lowering) skipTarget(target string) {
	if l.seen == nil {
		l.seen = make(map[string]bool)
	}
	if !l.seen[target] {
		l.seen[target] = true
		l.prog.Skipped = append(l.prog.Skipped, target)
	}
}

// output collects the tensors returned by the graph.
func (l *lowering) output(node *graph.Node) error {
	for _, src := range node.Inputs() {
		w, ok := l.tensors.Get(src)
		if !ok {
			if l.skipped[src] {
				klog.Warningf("graph output %s was skipped", src.Name)
				continue
			}
			return fmt.Errorf("%w: %s", ErrUndefinedOutput, src.Name)
		}
		l.prog.Outputs = append(l.prog.Outputs, w)
	}
	return nil
}
