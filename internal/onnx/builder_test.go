package onnx

import (
	"encoding/binary"
	"math"
)

// pb encodes protobuf messages for tests.
type pb struct {
	data []byte
}

func (b *pb) tag(field, wire int) {
	b.varint(int64(field<<3 | wire))
}

func (b *pb) varint(v int64) {
	u := uint64(v) //nolint:gosec // G115: two's complement, as protobuf encodes negatives.
	for u >= 0x80 {
		b.data = append(b.data, byte(u)|0x80)
		u >>= 7
	}
	b.data = append(b.data, byte(u))
}

func (b *pb) num(field int, v int64) *pb {
	b.tag(field, wireVarint)
	b.varint(v)
	return b
}

func (b *pb) bytes(field int, data []byte) *pb {
	b.tag(field, wireBytes)
	b.varint(int64(len(data)))
	b.data = append(b.data, data...)
	return b
}

func (b *pb) str(field int, s string) *pb {
	return b.bytes(field, []byte(s))
}

func (b *pb) msg(field int, m *pb) *pb {
	return b.bytes(field, m.data)
}

func (b *pb) float(field int, v float32) *pb {
	b.tag(field, wire32Bit)
	b.data = binary.LittleEndian.AppendUint32(b.data, math.Float32bits(v))
	return b
}

// modelBytes wraps a graph into a ModelProto with opset 13.
func modelBytes(graph *pb) []byte {
	m := &pb{}
	m.num(1, 8)
	m.str(2, "pytorch")
	m.msg(7, graph)
	m.msg(8, (&pb{}).str(1, "").num(2, 13))
	return m.data
}

// valueInfo encodes a ValueInfoProto; negative dims become symbolic.
func valueInfo(name string, elemType int32, dims ...int64) *pb {
	shape := &pb{}
	for _, d := range dims {
		dim := &pb{}
		if d >= 0 {
			dim.num(1, d)
		} else {
			dim.str(2, "batch")
		}
		shape.msg(1, dim)
	}
	tensorType := (&pb{}).num(1, int64(elemType)).msg(2, shape)
	typ := (&pb{}).msg(1, tensorType)
	return (&pb{}).str(1, name).msg(2, typ)
}

// int64Tensor encodes a TensorProto with packed int64_data.
func int64Tensor(name string, dims []int64, values ...int64) *pb {
	t := &pb{}
	for _, d := range dims {
		t.num(1, d)
	}
	t.num(2, TensorProtoInt64)
	packed := &pb{}
	for _, v := range values {
		packed.varint(v)
	}
	t.bytes(7, packed.data)
	return t.str(8, name)
}

// float32Tensor encodes a TensorProto with raw_data.
func float32Tensor(name string, dims []int64, values ...float32) *pb {
	t := &pb{}
	for _, d := range dims {
		t.num(1, d)
	}
	t.num(2, TensorProtoFloat)
	t.str(8, name)
	raw := make([]byte, 0, 4*len(values))
	for _, v := range values {
		raw = binary.LittleEndian.AppendUint32(raw, math.Float32bits(v))
	}
	return t.bytes(9, raw)
}

// node encodes a NodeProto.
func node(opType string, inputs, outputs []string, attrs ...*pb) *pb {
	n := &pb{}
	for _, in := range inputs {
		n.str(1, in)
	}
	for _, out := range outputs {
		n.str(2, out)
	}
	n.str(3, opType+"_"+outputs[0])
	n.str(4, opType)
	for _, a := range attrs {
		n.msg(5, a)
	}
	return n
}

// constantNode encodes a Constant node holding t.
func constantNode(output string, t *pb) *pb {
	attr := (&pb{}).str(1, "value").msg(5, t).num(20, AttributeProtoTensor)
	return node("Constant", nil, []string{output}, attr)
}
