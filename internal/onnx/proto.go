package onnx

// Decoded subset of the ONNX protobuf schema. Fields the importer never
// reads are skipped by the parser.

// ModelProto is the top-level ONNX message.
type ModelProto struct {
	IRVersion    int64
	OpsetImport  []OperatorSetID
	ProducerName string
	Graph        *GraphProto
}

// GraphProto is the computation graph of a model.
type GraphProto struct {
	Name         string
	Nodes        []NodeProto
	Inputs       []ValueInfoProto
	Outputs      []ValueInfoProto
	Initializers []TensorProto
	ValueInfo    []ValueInfoProto
}

// NodeProto is one operator invocation.
type NodeProto struct {
	Name       string
	OpType     string
	Domain     string
	Inputs     []string
	Outputs    []string
	Attributes []AttributeProto
}

// Attribute returns the named attribute, or nil.
func (n *NodeProto) Attribute(name string) *AttributeProto {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i]
		}
	}
	return nil
}

// TensorProto is a constant tensor: an initializer or a Constant value.
type TensorProto struct {
	Name       string
	DataType   int32
	Dims       []int64
	RawData    []byte
	FloatData  []float32
	Int32Data  []int32
	Int64Data  []int64
	DoubleData []float64
}

// ValueInfoProto describes a graph input, output or intermediate value.
// Symbolic dimensions are recorded as -1.
type ValueInfoProto struct {
	Name     string
	ElemType int32
	Dims     []int64
}

// AttributeProto is a node attribute. Only scalar, tensor and list
// payloads are decoded.
type AttributeProto struct {
	Name   string
	Type   int32
	F      float32
	I      int64
	S      []byte
	T      *TensorProto
	Floats []float32
	Ints   []int64
}

// OperatorSetID identifies an opset version.
type OperatorSetID struct {
	Domain  string
	Version int64
}

// ONNX element types (TensorProto.DataType).
const (
	TensorProtoUndefined = 0
	TensorProtoFloat     = 1
	TensorProtoUint8     = 2
	TensorProtoInt8      = 3
	TensorProtoInt32     = 6
	TensorProtoInt64     = 7
	TensorProtoBool      = 9
	TensorProtoFloat16   = 10
	TensorProtoDouble    = 11
)

// ONNX attribute types (AttributeProto.Type).
const (
	AttributeProtoFloat  = 1
	AttributeProtoInt    = 2
	AttributeProtoString = 3
	AttributeProtoTensor = 4
	AttributeProtoFloats = 6
	AttributeProtoInts   = 7
)
