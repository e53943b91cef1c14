// Package onnx imports ONNX models as program graphs.
//
// A hand-written protobuf reader decodes the subset of the ONNX schema the
// importer needs: graph inputs and outputs, initializers, nodes with their
// attributes, and value_info. Import then rewrites the model into the same
// graph form the YAML loader produces, so both frontends share one lowering
// path:
//
//   - Initializers and Constant nodes become get_attr constants
//   - Graph inputs become placeholders (static shapes only)
//   - Range with constant operands becomes aten.arange.start_step
//   - Add, Sub, Mul and Div become the aten element-wise targets
//   - Anything else is kept as an "onnx::<OpType>" call_function
//
// Example usage:
//
//	g, err := onnx.LoadFile("positions.onnx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	prog, err := lower.Lower(ctx, g, lower.Options{})
package onnx
