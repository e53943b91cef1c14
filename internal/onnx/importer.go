package onnx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"k8s.io/klog/v2"

	"github.com/born-ml/bornc/internal/builders"
	"github.com/born-ml/bornc/internal/graph"
	"github.com/born-ml/bornc/internal/tensor"
)

// Import errors.
var (
	ErrUnknownValue   = errors.New("reference to unknown value")
	ErrDynamicShape   = errors.New("dynamic dimension")
	ErrNonConstant    = errors.New("operand is not a constant")
	ErrBadConstant    = errors.New("malformed Constant node")
	ErrBroadcastShape = errors.New("shapes do not broadcast")
)

// binaryTargets maps ONNX arithmetic ops onto exported-program targets.
var binaryTargets = map[string]string{
	"Add": "aten.add.Tensor",
	"Sub": "aten.sub.Tensor",
	"Mul": "aten.mul.Tensor",
	"Div": "aten.div.Tensor",
}

// LoadFile parses an .onnx file and imports its graph.
func LoadFile(path string) (*graph.Graph, error) {
	m, err := ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	g, err := Import(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Import converts an ONNX model into a program graph.
//
// Initializers and Constant nodes become get_attr constants when used, graph inputs
// become placeholders and Range with constant operands becomes
// aten.arange.start_step. Ops without a mapping are kept as "onnx::<OpType>"
// call_function nodes so that lowering can report or skip them.
func Import(m *ModelProto) (*graph.Graph, error) {
	if m == nil || m.Graph == nil {
		return nil, errors.New("model has no graph")
	}
	name := m.Graph.Name
	if name == "" {
		name = "model"
	}

	im := &importer{
		g:      graph.New(name),
		values: make(map[string]*graph.Node),
		consts: make(map[string]*tensor.RawTensor),
		infos:  make(map[string]*ValueInfoProto),
		names:  map[string]int{"output": 1},
	}
	for _, list := range [][]ValueInfoProto{m.Graph.ValueInfo, m.Graph.Outputs} {
		for i := range list {
			im.infos[list[i].Name] = &list[i]
		}
	}

	if err := im.importGraph(m.Graph); err != nil {
		return nil, err
	}
	klog.V(1).Infof("imported ONNX graph %s: %d nodes, %d initializers", name, len(m.Graph.Nodes), len(m.Graph.Initializers))
	return im.g, nil
}

type importer struct {
	g      *graph.Graph
	values map[string]*graph.Node       // ONNX value name -> producing node
	consts map[string]*tensor.RawTensor // ONNX value name -> constant payload
	infos  map[string]*ValueInfoProto   // declared types of intermediate and output values
	names  map[string]int               // node names handed out so far
}

func (im *importer) importGraph(gp *GraphProto) error {
	initialized := make(map[string]bool, len(gp.Initializers))
	for i := range gp.Initializers {
		tp := &gp.Initializers[i]
		t, err := TensorFromProto(tp)
		if err != nil {
			return fmt.Errorf("initializer: %w", err)
		}
		im.constant(tp.Name, t)
		initialized[tp.Name] = true
	}

	for i := range gp.Inputs {
		vi := &gp.Inputs[i]
		if initialized[vi.Name] {
			continue
		}
		meta, err := metaOf(vi)
		if err != nil {
			return fmt.Errorf("input %s: %w", vi.Name, err)
		}
		im.values[vi.Name] = im.g.Placeholder(im.nodeName(vi.Name), meta)
	}

	for i := range gp.Nodes {
		np := &gp.Nodes[i]
		if err := im.importNode(np); err != nil {
			return fmt.Errorf("node %s (%s): %w", np.Name, np.OpType, err)
		}
	}

	results := make([]*graph.Node, 0, len(gp.Outputs))
	for _, out := range gp.Outputs {
		n, err := im.value(out.Name)
		if err != nil {
			return fmt.Errorf("graph output: %w", err)
		}
		results = append(results, n)
	}
	im.g.Output(results...)
	return nil
}

func (im *importer) importNode(np *NodeProto) error {
	if len(np.Outputs) == 0 {
		return errors.New("node has no outputs")
	}
	out := np.Outputs[0]

	switch np.OpType {
	case "Constant":
		t, err := constantValue(np)
		if err != nil {
			return err
		}
		im.constant(out, t)
		return nil

	case "Identity":
		if len(np.Inputs) != 1 {
			return fmt.Errorf("expected 1 operand, got %d", len(np.Inputs))
		}
		if t, ok := im.consts[np.Inputs[0]]; ok {
			im.consts[out] = t
			return nil
		}
		n, err := im.value(np.Inputs[0])
		if err != nil {
			return err
		}
		im.values[out] = n
		return nil

	case "Range":
		return im.importRange(np, out)
	}

	if target, ok := binaryTargets[np.OpType]; ok && np.Domain == "" {
		return im.importBinary(np, out, target)
	}
	return im.importOpaque(np, out)
}

// importRange folds the three scalar operands of Range into arange arguments.
// ONNX Range takes its output type from the operands.
func (im *importer) importRange(np *NodeProto, out string) error {
	if len(np.Inputs) != 3 {
		return fmt.Errorf("expected 3 operands, got %d", len(np.Inputs))
	}
	args := make([]graph.Argument, 3)
	scalars := make([]tensor.Scalar, 3)
	var dtype tensor.DataType
	for i, in := range np.Inputs {
		t, ok := im.consts[in]
		if !ok {
			return fmt.Errorf("%w: %s", ErrNonConstant, in)
		}
		if t.NumElements() != 1 {
			return fmt.Errorf("operand %s: want a scalar, got %s", in, t)
		}
		switch {
		case t.DType().IsFloat():
			v := t.Float64At(0)
			args[i], scalars[i] = graph.Float(v), tensor.FloatScalar(v)
		case t.DType() == tensor.Int64:
			v := t.AsInt64()[0]
			args[i], scalars[i] = graph.Int(v), tensor.IntScalar(v)
		default:
			v := int64(t.Float64At(0))
			args[i], scalars[i] = graph.Int(v), tensor.IntScalar(v)
		}
		if i == 0 {
			dtype = t.DType()
		}
	}

	meta := graph.Meta{DType: dtype.String()}
	if n, err := tensor.ArangeLen(scalars[0], scalars[1], scalars[2]); err == nil {
		meta.Shape = []int{n}
	}
	kwargs := map[string]graph.Argument{"dtype": graph.Str(dtype.String())}
	im.values[out] = im.g.CallFunction(im.nodeName(out), builders.TargetArangeStartStep, args, kwargs, meta)
	klog.V(2).Infof("Range %s -> arange(%s, %s, %s)", out, scalars[0], scalars[1], scalars[2])
	return nil
}

func (im *importer) importBinary(np *NodeProto, out, target string) error {
	if len(np.Inputs) != 2 {
		return fmt.Errorf("expected 2 operands, got %d", len(np.Inputs))
	}
	lhs, err := im.value(np.Inputs[0])
	if err != nil {
		return err
	}
	rhs, err := im.value(np.Inputs[1])
	if err != nil {
		return err
	}

	meta, ok, err := im.declaredMeta(out)
	if err != nil {
		return err
	}
	if !ok {
		shape, err := broadcastShapes(lhs.Meta.Shape, rhs.Meta.Shape)
		if err != nil {
			return err
		}
		meta = graph.Meta{Shape: shape, DType: lhs.Meta.DType}
	}

	args := []graph.Argument{graph.Ref(lhs), graph.Ref(rhs)}
	im.values[out] = im.g.CallFunction(im.nodeName(out), target, args, nil, meta)
	return nil
}

// importOpaque keeps an unmapped op in the graph under an "onnx::" target.
// Only its first output is addressable.
func (im *importer) importOpaque(np *NodeProto, out string) error {
	args := make([]graph.Argument, len(np.Inputs))
	for i, in := range np.Inputs {
		if in == "" {
			args[i] = graph.None()
			continue
		}
		n, err := im.value(in)
		if err != nil {
			return err
		}
		args[i] = graph.Ref(n)
	}
	meta, _, err := im.declaredMeta(out)
	if err != nil {
		return err
	}

	target := "onnx::" + np.OpType
	if np.Domain != "" && np.Domain != "ai.onnx" {
		target = np.Domain + "::" + np.OpType
	}
	im.values[out] = im.g.CallFunction(im.nodeName(out), target, args, nil, meta)
	klog.V(2).Infof("no mapping for %s, kept as %s", np.OpType, target)
	return nil
}

func (im *importer) constant(name string, t *tensor.RawTensor) {
	im.consts[name] = t
}

// value returns the node producing name. Constants get their get_attr node
// on first use, so operands folded into Range never reach the program.
func (im *importer) value(name string) (*graph.Node, error) {
	if n, ok := im.values[name]; ok {
		return n, nil
	}
	t, ok := im.consts[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownValue, name)
	}
	n := im.g.GetAttr(im.nodeName(name), t)
	im.values[name] = n
	return n, nil
}

// declaredMeta returns the metadata recorded in value_info or the graph outputs.
func (im *importer) declaredMeta(name string) (graph.Meta, bool, error) {
	vi, ok := im.infos[name]
	if !ok || vi.ElemType == TensorProtoUndefined {
		return graph.Meta{}, false, nil
	}
	meta, err := metaOf(vi)
	if err != nil {
		return graph.Meta{}, false, fmt.Errorf("value %s: %w", name, err)
	}
	return meta, true, nil
}

// nodeName turns an ONNX value name such as "/layer/Range_output_0" into a
// unique node name usable as a tensor name.
func (im *importer) nodeName(value string) string {
	var b strings.Builder
	for _, r := range value {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	name := strings.Trim(b.String(), "_")
	switch {
	case name == "":
		name = "value"
	case unicode.IsDigit(rune(name[0])):
		name = "v" + name
	}

	base := name
	for im.names[name] > 0 {
		im.names[base]++
		name = base + "_" + strconv.Itoa(im.names[base]-1)
	}
	im.names[name]++
	return name
}

func metaOf(vi *ValueInfoProto) (graph.Meta, error) {
	dt, err := DataTypeOf(vi.ElemType)
	if err != nil {
		return graph.Meta{}, err
	}
	shape := make([]int, len(vi.Dims))
	for i, d := range vi.Dims {
		if d < 0 {
			return graph.Meta{}, fmt.Errorf("%w at axis %d", ErrDynamicShape, i)
		}
		shape[i] = int(d)
	}
	return graph.Meta{Shape: shape, DType: dt.String()}, nil
}

// constantValue decodes the payload of a Constant node.
func constantValue(np *NodeProto) (*tensor.RawTensor, error) {
	if len(np.Attributes) != 1 {
		return nil, fmt.Errorf("%w: want exactly one attribute, got %d", ErrBadConstant, len(np.Attributes))
	}
	a := &np.Attributes[0]
	switch a.Name {
	case "value":
		if a.T == nil {
			return nil, fmt.Errorf("%w: value without tensor", ErrBadConstant)
		}
		return TensorFromProto(a.T)
	case "value_float":
		return scalarTensor(tensor.Float32, float64(a.F))
	case "value_int":
		t, err := tensor.NewRaw(tensor.Shape{}, tensor.Int64)
		if err != nil {
			return nil, err
		}
		t.AsInt64()[0] = a.I
		return t, nil
	case "value_floats":
		t, err := tensor.NewRaw(tensor.Shape{len(a.Floats)}, tensor.Float32)
		if err != nil {
			return nil, err
		}
		copy(t.AsFloat32(), a.Floats)
		return t, nil
	case "value_ints":
		t, err := tensor.NewRaw(tensor.Shape{len(a.Ints)}, tensor.Int64)
		if err != nil {
			return nil, err
		}
		copy(t.AsInt64(), a.Ints)
		return t, nil
	default:
		return nil, fmt.Errorf("%w: unsupported attribute %s", ErrBadConstant, a.Name)
	}
}

func scalarTensor(dtype tensor.DataType, v float64) (*tensor.RawTensor, error) {
	t, err := tensor.NewRaw(tensor.Shape{}, dtype)
	if err != nil {
		return nil, err
	}
	t.SetFloat64At(0, v)
	return t, nil
}

// broadcastShapes returns the numpy-style broadcast of a and b.
func broadcastShapes(a, b []int) ([]int, error) {
	if len(a) < len(b) {
		a, b = b, a
	}
	out := make([]int, len(a))
	copy(out, a)
	offset := len(a) - len(b)
	for i, d := range b {
		j := i + offset
		switch {
		case out[j] == d || d == 1:
		case out[j] == 1:
			out[j] = d
		default:
			return nil, fmt.Errorf("%w: %v and %v", ErrBroadcastShape, a, b)
		}
	}
	return out, nil
}
