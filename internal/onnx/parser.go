package onnx

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

// ParseFile parses an ONNX model from file.
//
//nolint:gosec // G304: Path is provided by user, file inclusion is intentional for ONNX model loading
func ParseFile(path string) (*ModelProto, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return Parse(data)
}

// Parse parses an ONNX model from bytes.
func Parse(data []byte) (*ModelProto, error) {
	m := &ModelProto{}
	if err := decodeModel(&decoder{data: data}, m); err != nil {
		return nil, fmt.Errorf("failed to parse model: %w", err)
	}
	if m.Graph == nil {
		return nil, errors.New("failed to parse model: no graph")
	}
	return m, nil
}

// Protobuf wire types.
const (
	wireVarint = 0
	wire64Bit  = 1
	wireBytes  = 2
	wire32Bit  = 5
)

// decoder is a minimal protobuf wire format reader over one message.
type decoder struct {
	data []byte
	pos  int
}

// fields calls fn with the number and wire type of every field in the message.
// fn must consume the field's payload, or call skip.
func (d *decoder) fields(fn func(field, wire int) error) error {
	for d.pos < len(d.data) {
		tag, err := d.varint()
		if err != nil {
			return err
		}
		if err := fn(int(tag>>3), int(tag&0x7)); err != nil {
			return err
		}
	}
	return nil
}

// message decodes an embedded message with fn.
func (d *decoder) message(fn func(sub *decoder) error) error {
	data, err := d.bytes()
	if err != nil {
		return err
	}
	return fn(&decoder{data: data})
}

func (d *decoder) varint() (int64, error) {
	var result uint64
	var shift uint
	for {
		if d.pos >= len(d.data) {
			return 0, io.ErrUnexpectedEOF
		}
		b := d.data[d.pos]
		d.pos++
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return int64(result), nil //nolint:gosec // G115: Protobuf varint fits in int64.
		}
		shift += 7
		if shift >= 64 {
			return 0, errors.New("varint overflow")
		}
	}
}

func (d *decoder) bytes() ([]byte, error) {
	length, err := d.varint()
	if err != nil {
		return nil, err
	}
	if length < 0 || length > int64(len(d.data)-d.pos) {
		return nil, io.ErrUnexpectedEOF
	}
	end := d.pos + int(length)
	out := d.data[d.pos:end]
	d.pos = end
	return out, nil
}

func (d *decoder) str() (string, error) {
	b, err := d.bytes()
	return string(b), err
}

func (d *decoder) fixed32() (uint32, error) {
	if d.pos+4 > len(d.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v, nil
}

func (d *decoder) fixed64() (uint64, error) {
	if d.pos+8 > len(d.data) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(d.data[d.pos:])
	d.pos += 8
	return v, nil
}

func (d *decoder) skip(wire int) error {
	switch wire {
	case wireVarint:
		_, err := d.varint()
		return err
	case wire64Bit:
		_, err := d.fixed64()
		return err
	case wireBytes:
		_, err := d.bytes()
		return err
	case wire32Bit:
		_, err := d.fixed32()
		return err
	default:
		return fmt.Errorf("unknown wire type: %d", wire)
	}
}

// int64s appends a repeated varint field, packed or not.
func (d *decoder) int64s(wire int, out *[]int64) error {
	if wire != wireBytes {
		v, err := d.varint()
		*out = append(*out, v)
		return err
	}
	return d.message(func(sub *decoder) error {
		for sub.pos < len(sub.data) {
			v, err := sub.varint()
			if err != nil {
				return err
			}
			*out = append(*out, v)
		}
		return nil
	})
}

// float32s appends a repeated fixed32 float field, packed or not.
func (d *decoder) float32s(wire int, out *[]float32) error {
	if wire != wireBytes {
		v, err := d.fixed32()
		*out = append(*out, math.Float32frombits(v))
		return err
	}
	data, err := d.bytes()
	if err != nil {
		return err
	}
	for i := 0; i+4 <= len(data); i += 4 {
		*out = append(*out, math.Float32frombits(binary.LittleEndian.Uint32(data[i:])))
	}
	return nil
}

// float64s appends a repeated fixed64 double field, packed or not.
func (d *decoder) float64s(wire int, out *[]float64) error {
	if wire != wireBytes {
		v, err := d.fixed64()
		*out = append(*out, math.Float64frombits(v))
		return err
	}
	data, err := d.bytes()
	if err != nil {
		return err
	}
	for i := 0; i+8 <= len(data); i += 8 {
		*out = append(*out, math.Float64frombits(binary.LittleEndian.Uint64(data[i:])))
	}
	return nil
}

func decodeModel(d *decoder, m *ModelProto) error {
	return d.fields(func(field, wire int) (err error) {
		switch field {
		case 1: // ir_version
			m.IRVersion, err = d.varint()
		case 2: // producer_name
			m.ProducerName, err = d.str()
		case 7: // graph
			m.Graph = &GraphProto{}
			err = d.message(func(sub *decoder) error { return decodeGraph(sub, m.Graph) })
		case 8: // opset_import
			var opset OperatorSetID
			err = d.message(func(sub *decoder) error { return decodeOpset(sub, &opset) })
			m.OpsetImport = append(m.OpsetImport, opset)
		default:
			err = d.skip(wire)
		}
		return err
	})
}

func decodeGraph(d *decoder, g *GraphProto) error {
	return d.fields(func(field, wire int) (err error) {
		switch field {
		case 1: // node
			var n NodeProto
			err = d.message(func(sub *decoder) error { return decodeNode(sub, &n) })
			g.Nodes = append(g.Nodes, n)
		case 2: // name
			g.Name, err = d.str()
		case 5: // initializer
			var t TensorProto
			err = d.message(func(sub *decoder) error { return decodeTensor(sub, &t) })
			g.Initializers = append(g.Initializers, t)
		case 11, 12, 13: // input, output, value_info
			var vi ValueInfoProto
			err = d.message(func(sub *decoder) error { return decodeValueInfo(sub, &vi) })
			switch field {
			case 11:
				g.Inputs = append(g.Inputs, vi)
			case 12:
				g.Outputs = append(g.Outputs, vi)
			default:
				g.ValueInfo = append(g.ValueInfo, vi)
			}
		default:
			err = d.skip(wire)
		}
		return err
	})
}

func decodeNode(d *decoder, n *NodeProto) error {
	return d.fields(func(field, wire int) (err error) {
		var s string
		switch field {
		case 1: // input
			s, err = d.str()
			n.Inputs = append(n.Inputs, s)
		case 2: // output
			s, err = d.str()
			n.Outputs = append(n.Outputs, s)
		case 3:
			n.Name, err = d.str()
		case 4:
			n.OpType, err = d.str()
		case 5: // attribute
			var a AttributeProto
			err = d.message(func(sub *decoder) error { return decodeAttribute(sub, &a) })
			n.Attributes = append(n.Attributes, a)
		case 7:
			n.Domain, err = d.str()
		default:
			err = d.skip(wire)
		}
		return err
	})
}

func decodeTensor(d *decoder, t *TensorProto) error {
	return d.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			err = d.int64s(wire, &t.Dims)
		case 2:
			var v int64
			v, err = d.varint()
			t.DataType = int32(v) //nolint:gosec // G115: enum value.
		case 4:
			err = d.float32s(wire, &t.FloatData)
		case 5:
			var vs []int64
			err = d.int64s(wire, &vs)
			for _, v := range vs {
				t.Int32Data = append(t.Int32Data, int32(v)) //nolint:gosec // G115: int32_data holds sign-extended int32 values.
			}
		case 7:
			err = d.int64s(wire, &t.Int64Data)
		case 8:
			t.Name, err = d.str()
		case 9:
			t.RawData, err = d.bytes()
		case 10:
			err = d.float64s(wire, &t.DoubleData)
		default:
			err = d.skip(wire)
		}
		return err
	})
}

// decodeValueInfo flattens ValueInfoProto.type.tensor_type into vi.
func decodeValueInfo(d *decoder, vi *ValueInfoProto) error {
	return d.fields(func(field, wire int) error {
		switch field {
		case 1:
			name, err := d.str()
			vi.Name = name
			return err
		case 2: // type
			return d.message(func(typ *decoder) error {
				return typ.fields(func(field, wire int) error {
					if field != 1 { // tensor_type
						return typ.skip(wire)
					}
					return typ.message(func(tt *decoder) error { return decodeTensorType(tt, vi) })
				})
			})
		default:
			return d.skip(wire)
		}
	})
}

func decodeTensorType(d *decoder, vi *ValueInfoProto) error {
	return d.fields(func(field, wire int) error {
		switch field {
		case 1: // elem_type
			v, err := d.varint()
			vi.ElemType = int32(v) //nolint:gosec // G115: enum value.
			return err
		case 2: // shape
			return d.message(func(shape *decoder) error {
				return shape.fields(func(field, wire int) error {
					if field != 1 { // dim
						return shape.skip(wire)
					}
					dim := int64(-1)
					err := shape.message(func(sub *decoder) error {
						return sub.fields(func(field, wire int) (err error) {
							if field == 1 { // dim_value
								dim, err = sub.varint()
								return err
							}
							return sub.skip(wire)
						})
					})
					vi.Dims = append(vi.Dims, dim)
					return err
				})
			})
		default:
			return d.skip(wire)
		}
	})
}

func decodeAttribute(d *decoder, a *AttributeProto) error {
	return d.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			a.Name, err = d.str()
		case 2:
			var bits uint32
			bits, err = d.fixed32()
			a.F = math.Float32frombits(bits)
		case 3:
			a.I, err = d.varint()
		case 4:
			a.S, err = d.bytes()
		case 5:
			a.T = &TensorProto{}
			err = d.message(func(sub *decoder) error { return decodeTensor(sub, a.T) })
		case 7:
			err = d.float32s(wire, &a.Floats)
		case 8:
			err = d.int64s(wire, &a.Ints)
		case 20:
			var v int64
			v, err = d.varint()
			a.Type = int32(v) //nolint:gosec // G115: enum value.
		default:
			err = d.skip(wire)
		}
		return err
	})
}

func decodeOpset(d *decoder, o *OperatorSetID) error {
	return d.fields(func(field, wire int) (err error) {
		switch field {
		case 1:
			o.Domain, err = d.str()
		case 2:
			o.Version, err = d.varint()
		default:
			err = d.skip(wire)
		}
		return err
	})
}
